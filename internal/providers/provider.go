package providers

import (
	"context"
	"encoding/json"
)

// ToolDefinition describes one callable tool to the model.
type ToolDefinition struct {
	Type        string          `json:"type"` // "function"
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Usage reports token consumption for one model request.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Status mirrors the provider's terminal response status.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Request is one model call. Input carries only the items relevant to this
// iteration (spec.md §4.1 step 3a); the full tool-definition list always
// accompanies the request.
type Request struct {
	Model              string
	Input              []Item
	Tools              []ToolDefinition
	PreviousResponseID string // empty when chaining is not in effect
	MaxTokens           int
}

// Response is the model's reply to one Request.
type Response struct {
	ID     string
	Status Status
	Error  string // provider message when Status == StatusFailed
	Output []Item // Message / FunctionCall / Reasoning / Other items, in order
	Usage  *Usage
}

// Text concatenates the content of every assistant Message item in the
// response, separated by newlines.
func (r *Response) Text() string {
	var out string
	for _, item := range r.Output {
		if m, ok := item.(Message); ok && m.Role == RoleAssistant {
			if out != "" {
				out += "\n"
			}
			out += m.Content
		}
	}
	return out
}

// FunctionCalls extracts every FunctionCall item from the response, in
// submission order.
func (r *Response) FunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, item := range r.Output {
		if fc, ok := item.(FunctionCall); ok {
			calls = append(calls, fc)
		}
	}
	return calls
}

// Provider is the opaque model-client contract (spec.md §2 row "Model-client
// contract"). Concrete transports (HTTP/SSE, specific vendor APIs) are thin,
// replaceable collaborators specified only at this interface.
type Provider interface {
	// Respond submits one Request and returns the model's Response.
	Respond(ctx context.Context, req Request) (*Response, error)
	// Name identifies the provider for logging/config purposes.
	Name() string
	// DefaultModel is used when a caller does not override Request.Model.
	DefaultModel() string
}
