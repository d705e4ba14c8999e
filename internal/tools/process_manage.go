package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/superhq-ai/neko/internal/process"
)

// ProcessTool manages background sessions spawned by exec (grounded on
// original_source/src/tools/process.rs).
type ProcessTool struct {
	Manager *process.Manager
}

func NewProcessTool(mgr *process.Manager) *ProcessTool {
	return &ProcessTool{Manager: mgr}
}

func (*ProcessTool) Name() string { return "process" }
func (*ProcessTool) Description() string {
	return `Manage background processes spawned by exec. Actions: "list" (show all sessions), "poll" (get new output from a session), "input" (write to stdin, optional eof to close stdin), "kill" (terminate a session).`
}

func (*ProcessTool) ParametersSchema() json.RawMessage {
	return SchemaObject(map[string]any{
		"action": map[string]any{
			"type":        "string",
			"enum":        []string{"list", "poll", "input", "kill"},
			"description": "Action to perform",
		},
		"session_id": map[string]any{
			"type":        "string",
			"description": "Session ID (e.g. bg_1). Required for poll, input, kill.",
		},
		"data": map[string]any{
			"type":        "string",
			"description": "Data to write to stdin (for input action)",
		},
		"eof": map[string]any{
			"type":        "boolean",
			"description": "Close stdin after writing (for input action). Signals end-of-input.",
		},
	}, []string{"action"})
}

func (t *ProcessTool) Execute(_ context.Context, params json.RawMessage, _ *Context) (Result, error) {
	var args struct {
		Action    string `json:"action"`
		SessionID string `json:"session_id"`
		Data      string `json:"data"`
		EOF       bool   `json:"eof"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return Error(fmt.Sprintf("Invalid arguments: %s", err)), nil
	}

	switch args.Action {
	case "list":
		return t.actionList(), nil
	case "poll":
		if args.SessionID == "" {
			return Error("session_id is required for poll"), nil
		}
		return t.actionPoll(args.SessionID), nil
	case "input":
		if args.SessionID == "" {
			return Error("session_id is required for input"), nil
		}
		return t.actionInput(args.SessionID, args.Data, args.EOF), nil
	case "kill":
		if args.SessionID == "" {
			return Error("session_id is required for kill"), nil
		}
		return t.actionKill(args.SessionID), nil
	default:
		return Error(fmt.Sprintf("Unknown action: %s", args.Action)), nil
	}
}

func (t *ProcessTool) actionList() Result {
	infos := t.Manager.List()
	if len(infos) == 0 {
		return Success("No background sessions.")
	}
	var b strings.Builder
	for _, info := range infos {
		status := "running"
		if info.ExitStatus != nil {
			status = fmt.Sprintf("exited (code %d)", *info.ExitStatus)
		}
		fmt.Fprintf(&b, "%s: `%s` — %s (%ds)\n", info.ID, info.Command, status, info.ElapsedSecs)
	}
	return Success(b.String())
}

func (t *ProcessTool) actionPoll(sessionID string) Result {
	sess, ok := t.Manager.Get(sessionID)
	if !ok {
		return Error(fmt.Sprintf("Session '%s' not found", sessionID))
	}

	out, status := sess.PollOutput()

	var b strings.Builder
	if status != nil {
		fmt.Fprintf(&b, "[exited with code %d]\n", *status)
		t.Manager.Remove(sessionID)
	} else {
		b.WriteString("[still running]\n")
	}
	if out == "" {
		b.WriteString("(no new output)")
	} else {
		b.WriteString(out)
	}
	return Success(b.String())
}

func (t *ProcessTool) actionInput(sessionID, data string, eof bool) Result {
	sess, ok := t.Manager.Get(sessionID)
	if !ok {
		return Error(fmt.Sprintf("Session '%s' not found", sessionID))
	}
	if err := sess.WriteStdin(data, eof); err != nil {
		return Error(err.Error())
	}
	msg := "Input sent."
	if eof {
		msg += " stdin closed (EOF)."
	}
	return Success(msg)
}

func (t *ProcessTool) actionKill(sessionID string) Result {
	sess, ok := t.Manager.Get(sessionID)
	if !ok {
		return Error(fmt.Sprintf("Session '%s' not found", sessionID))
	}
	if err := sess.Kill(); err != nil {
		return Error(err.Error())
	}
	output := sess.DrainOutput()
	t.Manager.Remove(sessionID)

	msg := fmt.Sprintf("Session %s killed.", sessionID)
	if output != "" {
		msg += "\n\nFinal output:\n" + output
	}
	return Success(msg)
}
