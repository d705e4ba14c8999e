package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// CDTool changes the turn's shared current working directory (grounded on
// original_source/src/tools/cd.rs).
type CDTool struct{}

func (CDTool) Name() string        { return "cd" }
func (CDTool) Description() string { return "Change the current working directory." }

func (CDTool) ParametersSchema() json.RawMessage {
	return SchemaObject(map[string]any{
		"path": map[string]any{
			"type":        "string",
			"description": "Directory to change into, relative to the current directory.",
		},
	}, []string{"path"})
}

func (CDTool) Execute(_ context.Context, params json.RawMessage, tc *Context) (Result, error) {
	var args struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return Error(fmt.Sprintf("Invalid arguments: %s", err)), nil
	}

	resolved, err := resolveCWDPath(tc.Workspace, tc.CWD(), args.Path)
	if err != nil {
		return Error(err.Error()), nil
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return Error(fmt.Sprintf("Failed to access directory: %s", err)), nil
	}
	if !info.IsDir() {
		return Error(fmt.Sprintf("%s is not a directory", args.Path)), nil
	}

	tc.SetCWD(resolved)

	return Success(fmt.Sprintf("Changed directory to %s", displayPath(tc.Workspace, resolved))), nil
}
