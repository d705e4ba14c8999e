package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// OpenAIProvider is a thin HTTP client for an OpenAI-Responses-API-shaped
// endpoint. Per spec.md §1 the model-provider client is an out-of-scope,
// replaceable collaborator — this implementation exists only to give the
// opaque Provider contract one concrete, wireable instance; its HTTP/JSON
// plumbing is deliberately minimal.
type OpenAIProvider struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	log     *slog.Logger
}

func NewOpenAIProvider(baseURL, apiKey, model string, log *slog.Logger) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
		log:     log,
	}
}

func (p *OpenAIProvider) Name() string         { return "openai" }
func (p *OpenAIProvider) DefaultModel() string { return p.model }

type wireRequest struct {
	Model              string           `json:"model"`
	Input              []json.RawMessage `json:"input"`
	Tools              []ToolDefinition `json:"tools,omitempty"`
	PreviousResponseID string           `json:"previous_response_id,omitempty"`
	MaxOutputTokens    int              `json:"max_output_tokens,omitempty"`
}

type wireResponse struct {
	ID     string            `json:"id"`
	Status string            `json:"status"`
	Error  *wireResponseError `json:"error,omitempty"`
	Output []json.RawMessage `json:"output"`
	Usage  *Usage            `json:"usage,omitempty"`
}

type wireResponseError struct {
	Message string `json:"message"`
}

func (p *OpenAIProvider) Respond(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	input := make([]json.RawMessage, 0, len(req.Input))
	for _, item := range req.Input {
		raw, err := MarshalItem(item)
		if err != nil {
			return nil, fmt.Errorf("providers: marshal input item: %w", err)
		}
		input = append(input, raw)
	}

	body, err := json.Marshal(wireRequest{
		Model:              model,
		Input:              input,
		Tools:              req.Tools,
		PreviousResponseID: req.PreviousResponseID,
		MaxOutputTokens:    req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("providers: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("providers: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	p.log.Debug("model request", "model", model, "input_items", len(input), "chained", req.PreviousResponseID != "")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("providers: transport error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("providers: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("providers: http %d: %s", resp.StatusCode, string(raw))
	}

	var wr wireResponse
	if err := json.Unmarshal(raw, &wr); err != nil {
		return nil, fmt.Errorf("providers: decode response: %w", err)
	}

	out := &Response{ID: wr.ID, Status: Status(wr.Status), Usage: wr.Usage}
	if wr.Error != nil {
		out.Error = wr.Error.Message
	}
	for _, rawItem := range wr.Output {
		item, err := UnmarshalItem(rawItem)
		if err != nil {
			return nil, fmt.Errorf("providers: decode output item: %w", err)
		}
		out.Output = append(out.Output, item)
	}
	return out, nil
}
