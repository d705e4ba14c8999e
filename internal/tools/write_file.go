package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileTool writes a file addressed relative to the workspace root,
// creating parent directories as needed (grounded on
// original_source/src/tools/write_file.rs).
type WriteFileTool struct{}

func (WriteFileTool) Name() string { return "write_file" }
func (WriteFileTool) Description() string {
	return "Write content to a file in the workspace, creating parent directories if needed."
}

func (WriteFileTool) ParametersSchema() json.RawMessage {
	return SchemaObject(map[string]any{
		"path": map[string]any{
			"type":        "string",
			"description": "Path to the file, relative to the workspace root.",
		},
		"content": map[string]any{
			"type":        "string",
			"description": "Content to write.",
		},
	}, []string{"path", "content"})
}

func (WriteFileTool) Execute(_ context.Context, params json.RawMessage, tc *Context) (Result, error) {
	var args struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return Error(fmt.Sprintf("Invalid arguments: %s", err)), nil
	}

	target := filepath.Join(tc.Workspace, args.Path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Error(fmt.Sprintf("Failed to create directories: %s", err)), nil
	}

	// The target file may not exist yet, so the boundary check
	// canonicalizes its parent directory rather than the target itself.
	if _, err := resolveWorkspacePath(tc.Workspace, args.Path, false); err != nil {
		return Error(err.Error()), nil
	}

	if err := os.WriteFile(target, []byte(args.Content), 0o644); err != nil {
		return Error(fmt.Sprintf("Failed to write file: %s", err)), nil
	}

	return Success(fmt.Sprintf("Written %d bytes to %s", len(args.Content), args.Path)), nil
}
