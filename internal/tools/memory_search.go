package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// MemorySearchTool greps every memory/*.md file for a literal or regex
// pattern, case-insensitively (grounded on
// original_source/src/tools/memory_search.rs; uses the standard library's
// regexp instead of the original's grep-regex/walkdir crates, since
// spec.md's Non-goals explicitly exclude vector-indexed memory search and
// this is a small, line-oriented grep with no third-party analogue wired
// elsewhere in the pack — see DESIGN.md).
type MemorySearchTool struct{}

func (MemorySearchTool) Name() string { return "memory_search" }
func (MemorySearchTool) Description() string {
	return "Search across all memory files for matching text. Case-insensitive. Supports regex patterns when regex=true."
}

func (MemorySearchTool) ParametersSchema() json.RawMessage {
	return SchemaObject(map[string]any{
		"query": map[string]any{
			"type":        "string",
			"description": "Text to search for (case-insensitive). Treated as literal text unless regex=true.",
		},
		"max_results": map[string]any{
			"type":        "integer",
			"description": "Maximum number of matching lines to return. Default: 20.",
		},
		"regex": map[string]any{
			"type":        "boolean",
			"description": "Treat query as a regex pattern instead of literal text. Default: false.",
		},
	}, []string{"query"})
}

func (MemorySearchTool) Execute(_ context.Context, params json.RawMessage, tc *Context) (Result, error) {
	var args struct {
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
		Regex      bool   `json:"regex"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return Error(fmt.Sprintf("Invalid arguments: %s", err)), nil
	}
	if args.Query == "" {
		return Error("query is required"), nil
	}
	maxResults := args.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	memDir := filepath.Join(tc.Workspace, "memory")
	if _, err := os.Stat(memDir); err != nil {
		return Success("No memory directory found. No results."), nil
	}

	pattern := args.Query
	if !args.Regex {
		pattern = regexp.QuoteMeta(pattern)
	}
	matcher, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return Error(fmt.Sprintf("Invalid search pattern: %s", err)), nil
	}

	var matches []string
	err = filepath.Walk(memDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || len(matches) >= maxResults {
			return nil
		}
		if filepath.Ext(path) != ".md" {
			return nil
		}

		rel, relErr := filepath.Rel(tc.Workspace, path)
		if relErr != nil {
			rel = path
		}

		f, openErr := os.Open(path)
		if openErr != nil {
			return nil
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := scanner.Text()
			if matcher.MatchString(line) {
				matches = append(matches, fmt.Sprintf("%s:%d: %s", rel, lineNum, strings.TrimRight(line, " \t")))
				if len(matches) >= maxResults {
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return Error(fmt.Sprintf("Search failed: %s", err)), nil
	}

	if len(matches) == 0 {
		return Success(fmt.Sprintf("No matches found for %q", args.Query)), nil
	}
	return Success(fmt.Sprintf("%d match(es) found:\n%s", len(matches), strings.Join(matches, "\n"))), nil
}
