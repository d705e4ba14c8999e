package agent

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/superhq-ai/neko/internal/config"
	"github.com/superhq-ai/neko/internal/providers"
	"github.com/superhq-ai/neko/internal/tools"
)

// echoTool implements echo(x) -> x for the tool-use-loop scenario.
type echoTool struct{}

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "echoes x" }
func (echoTool) ParametersSchema() json.RawMessage {
	return tools.SchemaObject(map[string]any{"x": map[string]any{"type": "string"}}, []string{"x"})
}
func (echoTool) Execute(_ context.Context, params json.RawMessage, _ *tools.Context) (tools.Result, error) {
	var args struct {
		X string `json:"x"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return tools.Error(err.Error()), nil
	}
	return tools.Success(args.X), nil
}

// scriptedProvider returns a fixed sequence of responses, one per call.
type scriptedProvider struct {
	responses []*providers.Response
	calls     []providers.Request
	i         int
}

func (p *scriptedProvider) Respond(_ context.Context, req providers.Request) (*providers.Response, error) {
	p.calls = append(p.calls, req)
	if p.i >= len(p.responses) {
		panic("scriptedProvider: out of responses")
	}
	resp := p.responses[p.i]
	p.i++
	return resp, nil
}
func (p *scriptedProvider) Name() string         { return "scripted" }
func (p *scriptedProvider) DefaultModel() string { return "test-model" }

func TestRunTurnWithHistory_ToolUseLoop(t *testing.T) {
	dir := t.TempDir()

	provider := &scriptedProvider{
		responses: []*providers.Response{
			{
				ID:     "resp-1",
				Status: providers.StatusCompleted,
				Output: []providers.Item{
					providers.FunctionCall{CallID: "call-1", Name: "echo", Arguments: `{"x":"hi"}`},
				},
			},
			{
				ID:     "resp-2",
				Status: providers.StatusCompleted,
				Output: []providers.Item{
					providers.Message{Role: providers.RoleAssistant, Content: "hi"},
				},
			},
		},
	}

	registry := tools.NewRegistry()
	registry.Register(echoTool{})

	a := New(provider, registry, config.AgentConfig{MaxIterations: 3, Model: "test-model"}, dir, nil, nil)

	result, err := a.RunTurnWithHistory(context.Background(), nil, "say hi", "", nil)
	require.NoError(t, err)
	require.Equal(t, "hi", result.Text)
	require.Equal(t, "resp-2", result.LastResponseID)

	require.Len(t, result.History, 4)
	msg0, ok := result.History[0].(providers.Message)
	require.True(t, ok)
	require.Equal(t, providers.RoleUser, msg0.Role)
	require.Equal(t, "say hi", msg0.Content)

	fc, ok := result.History[1].(providers.FunctionCall)
	require.True(t, ok)
	require.Equal(t, "echo", fc.Name)

	fcOut, ok := result.History[2].(providers.FunctionCallOutput)
	require.True(t, ok)
	require.Equal(t, "hi", fcOut.Output)
	require.Equal(t, "call-1", fcOut.CallID)

	msg3, ok := result.History[3].(providers.Message)
	require.True(t, ok)
	require.Equal(t, providers.RoleAssistant, msg3.Role)
	require.Equal(t, "hi", msg3.Content)

	recallFiles, err := os.ReadDir(filepath.Join(dir, "memory", "recall"))
	require.NoError(t, err)
	require.Len(t, recallFiles, 1)
}

func TestRunTurnWithHistory_ToolError(t *testing.T) {
	dir := t.TempDir()

	provider := &scriptedProvider{
		responses: []*providers.Response{
			{
				ID:     "resp-1",
				Status: providers.StatusCompleted,
				Output: []providers.Item{
					providers.FunctionCall{CallID: "call-1", Name: "missing_tool", Arguments: `{}`},
				},
			},
			{
				ID:     "resp-2",
				Status: providers.StatusCompleted,
				Output: []providers.Item{
					providers.Message{Role: providers.RoleAssistant, Content: "done"},
				},
			},
		},
	}

	registry := tools.NewRegistry()
	a := New(provider, registry, config.AgentConfig{MaxIterations: 3}, dir, nil, nil)

	result, err := a.RunTurnWithHistory(context.Background(), nil, "go", "", nil)
	require.NoError(t, err)
	require.Equal(t, "done", result.Text)

	fcOut, ok := result.History[2].(providers.FunctionCallOutput)
	require.True(t, ok)
	require.Contains(t, fcOut.Output, "[ERROR]")
}

func TestRunTurnWithHistory_ModelFailure(t *testing.T) {
	dir := t.TempDir()
	provider := &scriptedProvider{
		responses: []*providers.Response{
			{ID: "resp-1", Status: providers.StatusFailed, Error: "rate limited"},
		},
	}
	registry := tools.NewRegistry()
	a := New(provider, registry, config.AgentConfig{MaxIterations: 3}, dir, nil, nil)

	_, err := a.RunTurnWithHistory(context.Background(), nil, "hi", "", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limited")
}

func TestRunTurnWithHistory_ExceedsMaxIterations(t *testing.T) {
	dir := t.TempDir()
	call := providers.FunctionCall{CallID: "call-1", Name: "echo", Arguments: `{"x":"hi"}`}
	provider := &scriptedProvider{
		responses: []*providers.Response{
			{ID: "r1", Status: providers.StatusCompleted, Output: []providers.Item{call}},
			{ID: "r2", Status: providers.StatusCompleted, Output: []providers.Item{call}},
		},
	}
	registry := tools.NewRegistry()
	registry.Register(echoTool{})
	a := New(provider, registry, config.AgentConfig{MaxIterations: 2}, dir, nil, nil)

	_, err := a.RunTurnWithHistory(context.Background(), nil, "loop", "", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "exceeded")
}

func TestRunTurnWithHistory_PrevResponseIDSendsOnlyNewMessage(t *testing.T) {
	dir := t.TempDir()
	provider := &scriptedProvider{
		responses: []*providers.Response{
			{ID: "resp-2", Status: providers.StatusCompleted, Output: []providers.Item{
				providers.Message{Role: providers.RoleAssistant, Content: "ok"},
			}},
		},
	}
	registry := tools.NewRegistry()
	a := New(provider, registry, config.AgentConfig{MaxIterations: 3}, dir, nil, nil)

	existingHistory := []providers.Item{
		providers.Message{Role: providers.RoleUser, Content: "earlier"},
		providers.Message{Role: providers.RoleAssistant, Content: "earlier reply"},
	}
	_, err := a.RunTurnWithHistory(context.Background(), existingHistory, "follow up", "resp-1", nil)
	require.NoError(t, err)

	require.Len(t, provider.calls, 1)
	// system instructions item + exactly the new user message, not the full history.
	require.Len(t, provider.calls[0].Input, 2)
	msg, ok := provider.calls[0].Input[1].(providers.Message)
	require.True(t, ok)
	require.Equal(t, "follow up", msg.Content)
	require.Equal(t, "resp-1", provider.calls[0].PreviousResponseID)
}

func TestRunTurn_EphemeralNoSession(t *testing.T) {
	dir := t.TempDir()
	provider := &scriptedProvider{
		responses: []*providers.Response{
			{ID: "r1", Status: providers.StatusCompleted, Output: []providers.Item{
				providers.Message{Role: providers.RoleAssistant, Content: "pong"},
			}},
		},
	}
	registry := tools.NewRegistry()
	a := New(provider, registry, config.AgentConfig{MaxIterations: 3}, dir, nil, nil)

	text, err := a.RunTurn(context.Background(), "cron:job-1", "ping")
	require.NoError(t, err)
	require.Equal(t, "pong", text)
}

func TestTrimHistory_DropsOldestWithoutSplittingPairs(t *testing.T) {
	history := []providers.Item{
		providers.Message{Role: providers.RoleUser, Content: "1"},
		providers.FunctionCall{CallID: "c1", Name: "a"},
		providers.FunctionCall{CallID: "c2", Name: "b"},
		providers.FunctionCallOutput{CallID: "c1", Output: "o1"},
		providers.FunctionCallOutput{CallID: "c2", Output: "o2"},
		providers.Message{Role: providers.RoleAssistant, Content: "done"},
	}

	// max=4 would normally drop just the first two items, but that would
	// leave FunctionCall{c1} dropped while FunctionCallOutput{c1} survives.
	trimmed := trimHistory(history, 4)

	for _, item := range trimmed {
		if out, ok := item.(providers.FunctionCallOutput); ok {
			found := false
			for _, other := range trimmed {
				if fc, ok := other.(providers.FunctionCall); ok && fc.CallID == out.CallID {
					found = true
				}
			}
			require.True(t, found, "FunctionCallOutput %s survived without its FunctionCall", out.CallID)
		}
	}
}

func TestTrimHistory_NoTrimNeeded(t *testing.T) {
	history := []providers.Item{providers.Message{Role: providers.RoleUser, Content: "hi"}}
	require.Equal(t, history, trimHistory(history, 10))
}

func TestBuildInstructions_MemoryWarningThreshold(t *testing.T) {
	dir := t.TempDir()
	memDir := filepath.Join(dir, "memory")
	require.NoError(t, os.MkdirAll(memDir, 0o755))

	exact := make([]byte, 2000)
	for i := range exact {
		exact[i] = 'a'
	}
	require.NoError(t, os.WriteFile(filepath.Join(memDir, "MEMORY.md"), exact, 0o644))

	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	instructions := buildInstructions("", dir, nil, now)
	require.NotContains(t, instructions, "WARNING")

	over := append(exact, 'b')
	require.NoError(t, os.WriteFile(filepath.Join(memDir, "MEMORY.md"), over, 0o644))
	instructions = buildInstructions("", dir, nil, now)
	require.Contains(t, instructions, "WARNING")
	require.Contains(t, instructions, "2001")
}

func TestBuildInstructions_CreatesTodayLogAndLoadsYesterday(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")

	memDir := filepath.Join(dir, "memory")
	require.NoError(t, os.MkdirAll(memDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(memDir, yesterday+".md"), []byte("yesterday notes"), 0o644))

	instructions := buildInstructions("base prompt", dir, nil, now)
	require.Contains(t, instructions, "yesterday notes")

	_, err := os.Stat(filepath.Join(memDir, now.Format("2006-01-02")+".md"))
	require.NoError(t, err)
}

func TestLogToRecall_TruncatesAt500Chars(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 7, 31, 10, 30, 0, 0, time.UTC)

	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}
	require.NoError(t, logToRecall(dir, "hi", string(long), now))

	content, err := os.ReadFile(filepath.Join(dir, "memory", "recall", "2026-07-31.md"))
	require.NoError(t, err)
	require.Contains(t, string(content), "### 10:30:00")
	require.Contains(t, string(content), "...")
	require.Less(t, len(content), 700)
}
