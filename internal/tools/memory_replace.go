package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MemoryReplaceTool finds and replaces the first occurrence of text in a
// memory file (grounded on original_source/src/tools/memory_replace.rs).
type MemoryReplaceTool struct{}

func (MemoryReplaceTool) Name() string { return "memory_replace" }
func (MemoryReplaceTool) Description() string {
	return "Find and replace text in a memory file. Use empty new_text to delete text."
}

func (MemoryReplaceTool) ParametersSchema() json.RawMessage {
	return SchemaObject(map[string]any{
		"file": map[string]any{
			"type":        "string",
			"description": "Filename within the memory directory (e.g. 'MEMORY.md').",
		},
		"old_text": map[string]any{
			"type":        "string",
			"description": "Text to find (exact match).",
		},
		"new_text": map[string]any{
			"type":        "string",
			"description": "Replacement text (empty string to delete).",
		},
	}, []string{"file", "old_text", "new_text"})
}

func (MemoryReplaceTool) Execute(_ context.Context, params json.RawMessage, tc *Context) (Result, error) {
	var args struct {
		File    string `json:"file"`
		OldText string `json:"old_text"`
		NewText string `json:"new_text"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return Error(fmt.Sprintf("Invalid arguments: %s", err)), nil
	}

	if args.File == "" {
		return Error("file is required"), nil
	}
	if args.OldText == "" {
		return Error("old_text is required"), nil
	}
	if !validMemoryFilename(args.File) {
		return Error("Invalid filename: must not contain path separators or '..'"), nil
	}

	filePath := filepath.Join(tc.Workspace, "memory", args.File)
	if _, err := os.Stat(filePath); err != nil {
		return Error(fmt.Sprintf("File not found: memory/%s", args.File)), nil
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return Error(fmt.Sprintf("Failed to read file: %s", err)), nil
	}

	if !strings.Contains(string(content), args.OldText) {
		return Error(fmt.Sprintf("old_text not found in memory/%s", args.File)), nil
	}

	newContent := strings.Replace(string(content), args.OldText, args.NewText, 1)
	if err := os.WriteFile(filePath, []byte(newContent), 0o644); err != nil {
		return Error(fmt.Sprintf("Failed to write file: %s", err)), nil
	}

	if args.NewText == "" {
		return Success(fmt.Sprintf("Deleted text from memory/%s (%d chars removed)", args.File, len(args.OldText))), nil
	}
	return Success(fmt.Sprintf("Replaced text in memory/%s", args.File)), nil
}
