package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ListFilesTool lists the entries of a directory addressed relative to the
// turn's current working directory (grounded on
// original_source/src/tools/list_files.rs).
type ListFilesTool struct{}

func (ListFilesTool) Name() string        { return "list_files" }
func (ListFilesTool) Description() string { return "List files and directories at the given path." }

func (ListFilesTool) ParametersSchema() json.RawMessage {
	return SchemaObject(map[string]any{
		"path": map[string]any{
			"type":        "string",
			"description": "Directory to list, relative to the current directory. Defaults to \".\".",
		},
	}, nil)
}

func (ListFilesTool) Execute(_ context.Context, params json.RawMessage, tc *Context) (Result, error) {
	var args struct {
		Path string `json:"path"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &args); err != nil {
			return Error(fmt.Sprintf("Invalid arguments: %s", err)), nil
		}
	}
	if args.Path == "" {
		args.Path = "."
	}

	resolved, err := resolveCWDPath(tc.Workspace, tc.CWD(), args.Path)
	if err != nil {
		return Error(err.Error()), nil
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		return Error(fmt.Sprintf("Failed to list directory: %s", err)), nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	return Success(strings.Join(names, "\n")), nil
}
