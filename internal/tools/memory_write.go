package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// validMemoryFilename rejects path separators and traversal, matching the
// Rust tools' shared validation.
func validMemoryFilename(name string) bool {
	return name != "" && !strings.Contains(name, "..") &&
		!strings.ContainsAny(name, "/\\")
}

// MemoryWriteTool writes or appends to a file under memory/ (grounded on
// original_source/src/tools/memory_flush.rs; named memory_write per
// spec.md §4.6).
type MemoryWriteTool struct{}

func (MemoryWriteTool) Name() string { return "memory_write" }
func (MemoryWriteTool) Description() string {
	return "Write or append content to a memory file. Creates the file if it doesn't exist."
}

func (MemoryWriteTool) ParametersSchema() json.RawMessage {
	return SchemaObject(map[string]any{
		"file": map[string]any{
			"type":        "string",
			"description": "Filename within the memory directory (e.g. 'notes.md').",
		},
		"content": map[string]any{
			"type":        "string",
			"description": "Content to write or append.",
		},
		"append": map[string]any{
			"type":        "boolean",
			"description": "If true, append to the existing file. If false, overwrite. Default: true.",
		},
	}, []string{"file", "content"})
}

func (MemoryWriteTool) Execute(_ context.Context, params json.RawMessage, tc *Context) (Result, error) {
	args := struct {
		File    string `json:"file"`
		Content string `json:"content"`
		Append  *bool  `json:"append"`
	}{}
	if err := json.Unmarshal(params, &args); err != nil {
		return Error(fmt.Sprintf("Invalid arguments: %s", err)), nil
	}
	append := true
	if args.Append != nil {
		append = *args.Append
	}

	if !validMemoryFilename(args.File) {
		return Error("Invalid filename: must not contain path separators or '..'"), nil
	}

	memDir := filepath.Join(tc.Workspace, "memory")
	if err := os.MkdirAll(memDir, 0o755); err != nil {
		return Error(fmt.Sprintf("Failed to create memory dir: %s", err)), nil
	}
	filePath := filepath.Join(memDir, args.File)

	if append {
		f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return Error(fmt.Sprintf("Failed to open file: %s", err)), nil
		}
		defer f.Close()
		if _, err := f.WriteString(args.Content + "\n"); err != nil {
			return Error(fmt.Sprintf("Failed to write: %s", err)), nil
		}
	} else if err := os.WriteFile(filePath, []byte(args.Content), 0o644); err != nil {
		return Error(fmt.Sprintf("Failed to write file: %s", err)), nil
	}

	verb := "Appended"
	if !append {
		verb = "Written"
	}
	return Success(fmt.Sprintf("%s %d to memory/%s", verb, len(args.Content), args.File)), nil
}
