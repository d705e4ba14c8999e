package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/superhq-ai/neko/internal/process"
)

// ExecTool runs a shell command in the turn's cwd, auto-backgrounding it
// through the process manager when it outlives the yield budget (grounded
// on original_source/src/tools/exec.rs and process_manager.rs).
type ExecTool struct {
	Manager      *process.Manager
	Allowlist    []string
	TimeoutSecs  int64
}

func NewExecTool(mgr *process.Manager, allowlist []string, timeoutSecs int64) *ExecTool {
	if timeoutSecs <= 0 {
		timeoutSecs = 1800
	}
	return &ExecTool{Manager: mgr, Allowlist: allowlist, TimeoutSecs: timeoutSecs}
}

func (*ExecTool) Name() string        { return "exec" }
func (*ExecTool) Description() string { return "Execute a shell command in the current directory. Returns stdout and stderr, or backgrounds long-running commands." }

func (*ExecTool) ParametersSchema() json.RawMessage {
	return SchemaObject(map[string]any{
		"command": map[string]any{
			"type":        "string",
			"description": "Shell command to execute",
		},
		"timeout_secs": map[string]any{
			"type":        "integer",
			"description": "Override the background timeout for this call, up to the configured ceiling.",
		},
	}, []string{"command"})
}

func (t *ExecTool) Execute(_ context.Context, params json.RawMessage, tc *Context) (Result, error) {
	var args struct {
		Command     string `json:"command"`
		TimeoutSecs int64  `json:"timeout_secs"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return Error(fmt.Sprintf("Invalid arguments: %s", err)), nil
	}
	if args.Command == "" {
		return Error("command is required"), nil
	}

	if len(t.Allowlist) > 0 {
		name := strings.Fields(args.Command)
		cmdName := ""
		if len(name) > 0 {
			cmdName = name[0]
		}
		allowed := false
		for _, a := range t.Allowlist {
			if a == cmdName {
				allowed = true
				break
			}
		}
		if !allowed {
			return Error(fmt.Sprintf("Command '%s' is not in the exec allowlist", cmdName)), nil
		}
	}

	timeout := t.TimeoutSecs
	if args.TimeoutSecs > 0 && args.TimeoutSecs < t.TimeoutSecs {
		timeout = args.TimeoutSecs
	}

	result, err := t.Manager.SpawnOrYield(args.Command, tc.CWD(), timeout)
	if err != nil {
		return Error(fmt.Sprintf("Failed to execute: %s", err)), nil
	}

	switch r := result.(type) {
	case process.Completed:
		if r.Success {
			return Success(r.Output), nil
		}
		return Error(r.Output), nil
	case process.Backgrounded:
		msg := fmt.Sprintf("Command backgrounded as session %s (still running).\nOutput so far:\n%s", r.SessionID, r.OutputSoFar)
		return Success(msg), nil
	default:
		return Error("unexpected process manager result"), nil
	}
}
