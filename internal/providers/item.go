// Package providers defines the opaque contract between the agent engine and
// whatever language-model HTTP/SSE client is wired in at runtime. The model
// protocol itself (request/response shapes, specific provider SDKs) is a thin
// collaborator per spec; this package's job is the closed Item sum type that
// must round-trip byte-identically, including types it does not understand.
package providers

import (
	"encoding/json"
	"fmt"
)

// Role is the speaker of a Message item.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Item is one element of a conversation: a closed set of known variants plus
// an Other catch-all for forward compatibility. Every concrete type below
// implements Item by naming its own wire "type" tag.
type Item interface {
	itemType() string
}

// Message is a role + plain-text content item.
type Message struct {
	Role    Role   `json:"-"`
	Content string `json:"-"`
}

func (Message) itemType() string { return "message" }

// FunctionCall is a model-requested tool invocation.
type FunctionCall struct {
	ID        string `json:"-"`
	CallID    string `json:"-"`
	Name      string `json:"-"`
	Arguments string `json:"-"` // raw JSON text, parsed by the tool itself
}

func (FunctionCall) itemType() string { return "function_call" }

// FunctionCallOutput carries a tool's result back to the model.
type FunctionCallOutput struct {
	CallID string `json:"-"`
	Output string `json:"-"`
}

func (FunctionCallOutput) itemType() string { return "function_call_output" }

// Reasoning is an opaque provider-internal item. It is preserved verbatim for
// round-tripping but never written to persistent transcripts (spec.md §3,
// §4.1) — continuity across turns instead relies on response chaining.
type Reasoning struct {
	Raw json.RawMessage
}

func (Reasoning) itemType() string { return "reasoning" }

// Other is the forward-compatible catch-all for any item type this runtime
// does not recognise. Deserialisation must never fail on an unknown type.
type Other struct {
	Type string
	Raw  json.RawMessage
}

func (o Other) itemType() string { return o.Type }

type messageWire struct {
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

type functionCallWire struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type functionCallOutputWire struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

// MarshalItem serialises an Item to its on-disk/on-wire JSON shape (spec.md §6).
func MarshalItem(item Item) ([]byte, error) {
	switch v := item.(type) {
	case Message:
		return json.Marshal(messageWire{Type: "message", Role: string(v.Role), Content: v.Content})
	case FunctionCall:
		return json.Marshal(functionCallWire{
			Type: "function_call", ID: v.ID, CallID: v.CallID, Name: v.Name, Arguments: v.Arguments,
		})
	case FunctionCallOutput:
		return json.Marshal(functionCallOutputWire{Type: "function_call_output", CallID: v.CallID, Output: v.Output})
	case Reasoning:
		if len(v.Raw) == 0 {
			return json.Marshal(map[string]string{"type": "reasoning"})
		}
		return v.Raw, nil
	case Other:
		if len(v.Raw) == 0 {
			return json.Marshal(map[string]string{"type": v.Type})
		}
		return v.Raw, nil
	default:
		return nil, fmt.Errorf("providers: unknown item type %T", item)
	}
}

// UnmarshalItem parses one JSON object into its Item variant, dispatching on
// the "type" tag. Unknown types become Other and never fail parsing.
func UnmarshalItem(data []byte) (Item, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("providers: malformed item: %w", err)
	}

	switch probe.Type {
	case "message":
		var w messageWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return Message{Role: Role(w.Role), Content: w.Content}, nil
	case "function_call":
		var w functionCallWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return FunctionCall{ID: w.ID, CallID: w.CallID, Name: w.Name, Arguments: w.Arguments}, nil
	case "function_call_output":
		var w functionCallOutputWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return FunctionCallOutput{CallID: w.CallID, Output: w.Output}, nil
	case "reasoning":
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return Reasoning{Raw: raw}, nil
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return Other{Type: probe.Type, Raw: raw}, nil
	}
}

// IsPersistable reports whether an item may be written to a durable
// transcript. Reasoning items are deliberately excluded (spec.md §4.1, §4.2).
func IsPersistable(item Item) bool {
	_, isReasoning := item.(Reasoning)
	return !isReasoning
}
