// Package tools implements the tool registry and the concrete tools a turn
// can invoke (spec.md §2 "Tool registry + context", §4.6 memory tools, plus
// the file/process/cron tools supplemented from original_source/src/tools).
package tools

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/superhq-ai/neko/internal/providers"
)

// ChannelContext identifies the channel + recipient an inbound message
// arrived from, so a tool (or a cron job's announce target) can address a
// reply.
type ChannelContext struct {
	Channel     string
	RecipientID string
}

// Attachment is a file queued to be sent alongside the agent's reply
// (spec.md §3).
type Attachment struct {
	Path     string
	MimeType string
}

// Context is passed into every tool invocation (spec.md §3 ToolContext).
type Context struct {
	// Workspace is the immutable security boundary every resolved path must
	// stay under.
	Workspace string

	cwdMu sync.Mutex
	cwd   string

	attachMu sync.Mutex
	attach   []Attachment

	Channel *ChannelContext
}

// NewContext builds a turn-scoped tool context rooted at workspace, with cwd
// reset to the workspace root (spec.md §5 "across turns it resets to the
// workspace root").
func NewContext(workspace string, channel *ChannelContext) *Context {
	return &Context{Workspace: workspace, cwd: workspace, Channel: channel}
}

// CWD returns the turn's current working directory.
func (c *Context) CWD() string {
	c.cwdMu.Lock()
	defer c.cwdMu.Unlock()
	return c.cwd
}

// SetCWD updates the shared working directory. Only the cd tool calls this.
func (c *Context) SetCWD(path string) {
	c.cwdMu.Lock()
	defer c.cwdMu.Unlock()
	c.cwd = path
}

// QueueAttachment appends a file to the pending-attachments queue.
func (c *Context) QueueAttachment(a Attachment) {
	c.attachMu.Lock()
	defer c.attachMu.Unlock()
	c.attach = append(c.attach, a)
}

// DrainAttachments returns and clears the queued attachments. Drained
// exactly once, when composing the outbound message (spec.md §5).
func (c *Context) DrainAttachments() []Attachment {
	c.attachMu.Lock()
	defer c.attachMu.Unlock()
	out := c.attach
	c.attach = nil
	return out
}

// Result is the outcome of one tool execution.
type Result struct {
	Output  string
	IsError bool
}

func Success(output string) Result { return Result{Output: output} }
func Error(output string) Result   { return Result{Output: output, IsError: true} }

// Tool is the interface every registered tool implements.
type Tool interface {
	Name() string
	Description() string
	ParametersSchema() json.RawMessage
	Execute(ctx context.Context, params json.RawMessage, tc *Context) (Result, error)
}

// Registry maps tool names to their implementation.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions renders every registered tool as a provider-facing
// ToolDefinition, sorted by name for deterministic request bodies.
func (r *Registry) Definitions() []providers.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]providers.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, providers.ToolDefinition{
			Type:        "function",
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.ParametersSchema(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SchemaObject builds a JSON Schema object description from a property map
// and required-field list — the Go equivalent of original_source's
// schema_object() helper.
func SchemaObject(properties map[string]any, required []string) json.RawMessage {
	obj := map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
	raw, _ := json.Marshal(obj)
	return raw
}
