package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	httpRequestTimeout  = 30 * time.Second
	httpResponseMaxRune = 10000
)

// HTTPRequestTool performs an outbound HTTP request against an allowlisted
// domain (grounded on original_source/src/tools/http_request.rs).
type HTTPRequestTool struct {
	AllowedDomains []string
	Client         *http.Client
}

func NewHTTPRequestTool(allowedDomains []string) *HTTPRequestTool {
	return &HTTPRequestTool{
		AllowedDomains: allowedDomains,
		Client:         &http.Client{Timeout: httpRequestTimeout},
	}
}

func (t *HTTPRequestTool) Name() string { return "http_request" }
func (t *HTTPRequestTool) Description() string {
	return "Make an HTTP request to an allowlisted domain."
}

func (t *HTTPRequestTool) ParametersSchema() json.RawMessage {
	return SchemaObject(map[string]any{
		"url": map[string]any{
			"type":        "string",
			"description": "Full URL to request.",
		},
		"method": map[string]any{
			"type":        "string",
			"description": "HTTP method: GET, POST, PUT or DELETE. Defaults to GET.",
		},
		"body": map[string]any{
			"type":        "string",
			"description": "Request body, for POST/PUT.",
		},
		"headers": map[string]any{
			"type":        "object",
			"description": "Extra request headers.",
		},
	}, []string{"url"})
}

func (t *HTTPRequestTool) domainAllowed(host string) bool {
	for _, d := range t.AllowedDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func (t *HTTPRequestTool) Execute(ctx context.Context, params json.RawMessage, _ *Context) (Result, error) {
	var args struct {
		URL     string            `json:"url"`
		Method  string            `json:"method"`
		Body    string            `json:"body"`
		Headers map[string]string `json:"headers"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return Error(fmt.Sprintf("Invalid arguments: %s", err)), nil
	}

	method := strings.ToUpper(args.Method)
	if method == "" {
		method = http.MethodGet
	}
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return Error(fmt.Sprintf("Unsupported HTTP method: %s", method)), nil
	}

	req, err := http.NewRequestWithContext(ctx, method, args.URL, bytes.NewReader([]byte(args.Body)))
	if err != nil {
		return Error(fmt.Sprintf("Invalid request: %s", err)), nil
	}
	if !t.domainAllowed(req.URL.Hostname()) {
		return Error(fmt.Sprintf("Domain %s is not in the allowed list", req.URL.Hostname())), nil
	}
	for k, v := range args.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return Error(fmt.Sprintf("Request failed: %s", err)), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Error(fmt.Sprintf("Failed to read response: %s", err)), nil
	}

	text := string(body)
	runes := []rune(text)
	if len(runes) > httpResponseMaxRune {
		text = fmt.Sprintf("%s... [truncated, %d total bytes]", string(runes[:httpResponseMaxRune]), len(body))
	}

	return Success(fmt.Sprintf("Status: %d\n%s", resp.StatusCode, text)), nil
}
