// Package agent implements the turn engine (spec.md §4.1): the bounded
// iteration loop that drives one model+tool round trip per user message.
//
// Grounded on original_source/src/agent/mod.rs's Agent/run_turn_with_history.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/superhq-ai/neko/internal/config"
	"github.com/superhq-ai/neko/internal/neko"
	"github.com/superhq-ai/neko/internal/providers"
	"github.com/superhq-ai/neko/internal/skills"
	"github.com/superhq-ai/neko/internal/telemetry"
	"github.com/superhq-ai/neko/internal/tools"
)

// TurnResult is the output of one completed turn (spec.md §4.1).
type TurnResult struct {
	Text           string
	History        []providers.Item
	Usage          *providers.Usage
	LastResponseID string
	Attachments    []tools.Attachment
}

// Agent drives the turn engine for one configured provider/tool-registry
// pair. It holds no per-session state — the caller owns history.
type Agent struct {
	provider  providers.Provider
	tools     *tools.Registry
	cfg       config.AgentConfig
	workspace string
	log       *slog.Logger

	skillsMu sync.RWMutex
	skills   []skills.Skill

	now func() time.Time // overridable for tests
}

// New builds an Agent.
func New(provider providers.Provider, registry *tools.Registry, cfg config.AgentConfig, workspace string, skillList []skills.Skill, log *slog.Logger) *Agent {
	if log == nil {
		log = slog.Default()
	}
	return &Agent{
		provider:  provider,
		tools:     registry,
		cfg:       cfg,
		workspace: workspace,
		skills:    skillList,
		log:       log,
		now:       time.Now,
	}
}

// SetSkills replaces the skill set consulted when composing instructions —
// called by skills.Watcher's reload callback (spec.md §9 supplemented live
// reload).
func (a *Agent) SetSkills(skillList []skills.Skill) {
	a.skillsMu.Lock()
	defer a.skillsMu.Unlock()
	a.skills = skillList
}

func (a *Agent) getSkills() []skills.Skill {
	a.skillsMu.RLock()
	defer a.skillsMu.RUnlock()
	return a.skills
}

// RunTurn runs a single ephemeral turn with no session and no history
// retention — used by the scheduler (spec.md §4.5), which satisfies
// scheduler.AgentRunner through this method.
func (a *Agent) RunTurn(ctx context.Context, sessionKey, prompt string) (string, error) {
	result, err := a.RunTurnWithHistory(ctx, nil, prompt, "", nil)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// RunTurnWithHistory runs one turn with externally-managed history
// (spec.md §4.1). channel may be nil for sessions with no reply-to target.
func (a *Agent) RunTurnWithHistory(ctx context.Context, history []providers.Item, userMessage, prevResponseID string, channel *tools.ChannelContext) (result *TurnResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "agent.turn",
		attribute.String("model", a.cfg.Model),
		attribute.Int("history_len", len(history)),
	)
	defer func() {
		telemetry.EndWithError(span, err)
		span.End()
	}()

	userItem := providers.Message{Role: providers.RoleUser, Content: userMessage}
	history = append(history, userItem)

	instructions := buildInstructions(a.cfg.Instructions, a.workspace, a.getSkills(), a.now())
	systemItem := providers.Message{Role: providers.RoleSystem, Content: instructions}

	toolDefs := a.tools.Definitions()
	maxIterations := a.cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 10
	}

	tc := tools.NewContext(a.workspace, channel)

	currentPrevID := prevResponseID
	var pendingOutputs []providers.Item
	var lastUsage *providers.Usage

	for iteration := 0; iteration < maxIterations; iteration++ {
		var input []providers.Item
		switch {
		case iteration == 0 && currentPrevID != "":
			input = []providers.Item{userItem}
		case iteration == 0:
			input = append([]providers.Item{}, history...)
		default:
			input = pendingOutputs
			pendingOutputs = nil
		}

		req := providers.Request{
			Model:              a.cfg.Model,
			Input:              append([]providers.Item{systemItem}, input...),
			Tools:              toolDefs,
			PreviousResponseID: currentPrevID,
			MaxTokens:          a.cfg.MaxTokens,
		}

		resp, err := a.provider.Respond(ctx, req)
		if err != nil {
			return nil, neko.Wrap(neko.KindModel, err, "model request failed (iteration %d)", iteration)
		}
		if resp.Status == providers.StatusFailed {
			return nil, neko.New(neko.KindModel, "model error: %s", resp.Error)
		}

		currentPrevID = resp.ID
		if resp.Usage != nil {
			lastUsage = resp.Usage
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			text := resp.Text()
			history = appendOutputToHistory(history, resp.Output)
			history = stripReasoning(history)
			history = trimHistory(history, a.cfg.MaxHistory)

			if a.workspace != "" {
				if err := logToRecall(a.workspace, userMessage, text, a.now()); err != nil {
					a.log.Warn("failed to write recall log", "error", err)
				}
			}

			return &TurnResult{
				Text:           text,
				History:        history,
				Usage:          lastUsage,
				LastResponseID: currentPrevID,
				Attachments:    tc.DrainAttachments(),
			}, nil
		}

		a.log.Info("executing tool calls", "count", len(calls))
		history = appendOutputToHistory(history, resp.Output)

		for _, call := range calls {
			output := a.executeTool(ctx, call, tc)
			fcOutput := providers.FunctionCallOutput{CallID: call.CallID, Output: output}
			history = append(history, fcOutput)
			pendingOutputs = append(pendingOutputs, fcOutput)
		}
	}

	return nil, neko.New(neko.KindAgent, "agent loop exceeded %d iterations", maxIterations)
}

// executeTool runs one tool call and formats its output, prefixing
// "[ERROR] " on tool error or execution failure (spec.md §4.1 step 3g).
func (a *Agent) executeTool(ctx context.Context, call providers.FunctionCall, tc *tools.Context) string {
	ctx, span := telemetry.StartSpan(ctx, "tool.execute", attribute.String("tool", call.Name))
	var execErr error
	defer func() {
		telemetry.EndWithError(span, execErr)
		span.End()
	}()

	tool, ok := a.tools.Get(call.Name)
	if !ok {
		execErr = neko.New(neko.KindTool, "unknown tool: %s", call.Name)
		return fmt.Sprintf("[ERROR] unknown tool: %s", call.Name)
	}

	result, err := tool.Execute(ctx, json.RawMessage(call.Arguments), tc)
	if err != nil {
		execErr = err
		return fmt.Sprintf("[ERROR] %s", err)
	}
	if result.IsError {
		execErr = neko.New(neko.KindTool, "%s", result.Output)
		return fmt.Sprintf("[ERROR] %s", result.Output)
	}
	return result.Output
}

// appendOutputToHistory copies FunctionCall and assistant Message items from
// a response's output into the persistent transcript. Reasoning/Other items
// are skipped — continuity is carried implicitly via last_response_id
// (spec.md §4.1 step 3e).
func appendOutputToHistory(history []providers.Item, output []providers.Item) []providers.Item {
	for _, item := range output {
		switch v := item.(type) {
		case providers.FunctionCall:
			history = append(history, v)
		case providers.Message:
			if v.Content != "" {
				history = append(history, v)
			}
		}
	}
	return history
}

// stripReasoning removes any stray Reasoning/Other items from history.
// Defensive: appendOutputToHistory already excludes them, but older
// transcripts loaded from disk might carry them.
func stripReasoning(history []providers.Item) []providers.Item {
	out := history[:0:0]
	for _, item := range history {
		switch item.(type) {
		case providers.Reasoning, providers.Other:
			continue
		default:
			out = append(out, item)
		}
	}
	return out
}

// trimHistory drops oldest items until len(history) <= max, without ever
// splitting a FunctionCall from its matching FunctionCallOutput across the
// boundary (spec.md §4.1: "either both survive or neither does") — stricter
// than original_source's trim_history, which drops a fixed oldest-first
// slice with no pairing awareness.
func trimHistory(history []providers.Item, max int) []providers.Item {
	if max <= 0 || len(history) <= max {
		return history
	}
	cut := len(history) - max

	// Extend the cut past any surviving FunctionCallOutput whose call was
	// dropped, so the pair is dropped together rather than split. Extending
	// the cut can drop further FunctionCalls, so repeat until it is stable.
	for {
		// Collect FunctionCalls dropped by this cut whose matching
		// FunctionCallOutput has not also fallen within the dropped prefix.
		dropped := make(map[string]bool)
		for i := 0; i < cut; i++ {
			switch v := history[i].(type) {
			case providers.FunctionCall:
				dropped[v.CallID] = true
			case providers.FunctionCallOutput:
				delete(dropped, v.CallID)
			}
		}

		last := cut - 1
		for i := cut; i < len(history); i++ {
			if out, ok := history[i].(providers.FunctionCallOutput); ok && dropped[out.CallID] {
				last = i
			}
		}
		if last+1 == cut {
			break
		}
		cut = last + 1
	}

	if cut >= len(history) {
		return nil
	}
	return history[cut:]
}
