package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// ReadFileTool reads a file addressed relative to the workspace root
// (grounded on original_source/src/tools/read_file.rs).
type ReadFileTool struct{}

func (ReadFileTool) Name() string        { return "read_file" }
func (ReadFileTool) Description() string { return "Read the contents of a file in the workspace." }

func (ReadFileTool) ParametersSchema() json.RawMessage {
	return SchemaObject(map[string]any{
		"path": map[string]any{
			"type":        "string",
			"description": "Path to the file, relative to the workspace root.",
		},
	}, []string{"path"})
}

func (ReadFileTool) Execute(_ context.Context, params json.RawMessage, tc *Context) (Result, error) {
	var args struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return Error(fmt.Sprintf("Invalid arguments: %s", err)), nil
	}

	resolved, err := resolveWorkspacePath(tc.Workspace, args.Path, true)
	if err != nil {
		return Error(err.Error()), nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return Error(fmt.Sprintf("Failed to read file: %s", err)), nil
	}

	return Success(string(data)), nil
}
