package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/superhq-ai/neko/internal/skills"
)

// memoryWarningThreshold is the MEMORY.md size past which a warning is
// injected into the system instructions (spec.md §4.6).
const memoryWarningThreshold = 2000

// recallTruncateChars caps each side of a recall log entry (spec.md §4.6).
const recallTruncateChars = 500

const defaultBaseInstructions = `You are a long-running personal agent. You have access to tools for ` +
	`reading and writing files, running commands, and managing your own memory. Use memory/MEMORY.md for ` +
	`durable facts and memory/YYYY-MM-DD.md for daily context.`

// buildInstructions assembles the system prompt for one turn from the
// configured base instructions, a directory listing of the memory tree, the
// verbatim core memory file, today's and yesterday's daily logs, and skill
// metadata (spec.md §4.6). Grounded on
// original_source/src/agent/context.rs's build_instructions.
func buildInstructions(base, workspace string, skillList []skills.Skill, now time.Time) string {
	if strings.TrimSpace(base) == "" {
		base = defaultBaseInstructions
	}

	var b strings.Builder
	b.WriteString(base)

	if tree := buildMemoryFileTree(workspace); tree != "" {
		b.WriteString("\n\n<memory_files>\n")
		b.WriteString(tree)
		b.WriteString("</memory_files>")
	}

	memDir := filepath.Join(workspace, "memory")

	if core, err := os.ReadFile(filepath.Join(memDir, "MEMORY.md")); err == nil {
		b.WriteString("\n\n<core_memory path=\"memory/MEMORY.md\">\n")
		b.Write(core)
		b.WriteString("\n</core_memory>")
		if len(core) > memoryWarningThreshold {
			fmt.Fprintf(&b, "\n\n[WARNING: memory/MEMORY.md is %d characters, over the %d character guideline. "+
				"Consider moving older material into a dated log.]", len(core), memoryWarningThreshold)
		}
	}

	today := now.Format("2006-01-02")
	todayPath := filepath.Join(memDir, today+".md")
	if _, err := os.Stat(todayPath); os.IsNotExist(err) {
		if mkErr := os.MkdirAll(memDir, 0o755); mkErr == nil {
			_ = os.WriteFile(todayPath, []byte(fmt.Sprintf("# %s\n", today)), 0o644)
		}
	}
	if content, err := os.ReadFile(todayPath); err == nil {
		fmt.Fprintf(&b, "\n\n<daily_log date=%q>\n", today)
		b.Write(content)
		b.WriteString("\n</daily_log>")
	}

	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
	if content, err := os.ReadFile(filepath.Join(memDir, yesterday+".md")); err == nil {
		fmt.Fprintf(&b, "\n\n<daily_log date=%q>\n", yesterday)
		b.Write(content)
		b.WriteString("\n</daily_log>")
	}

	if xml := skills.PromptXML(skillList); xml != "" {
		b.WriteString("\n\n")
		b.WriteString(xml)
	}

	return b.String()
}

// buildMemoryFileTree lists every file under workspace/memory with its
// character count, so the model knows what exists without reading it.
func buildMemoryFileTree(workspace string) string {
	memDir := filepath.Join(workspace, "memory")
	entries, err := os.ReadDir(memDir)
	if err != nil {
		return ""
	}

	type fileInfo struct {
		name string
		size int64
	}
	var files []fileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{name: e.Name(), size: info.Size()})
	}
	if len(files) == 0 {
		return ""
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })

	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "memory/%s (%d chars)\n", f.name, f.size)
	}
	return b.String()
}

// logToRecall appends one turn's summary to memory/recall/YYYY-MM-DD.md
// (spec.md §4.6). Failures are non-fatal to the turn — recall is a
// best-effort audit trail, not conversation state.
func logToRecall(workspace, userMessage, assistantText string, now time.Time) error {
	recallDir := filepath.Join(workspace, "memory", "recall")
	if err := os.MkdirAll(recallDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(recallDir, now.Format("2006-01-02")+".md")

	entry := fmt.Sprintf("### %s\n**User:** %s\n**Assistant:** %s\n\n",
		now.Format("15:04:05"), truncateChars(userMessage, recallTruncateChars), truncateChars(assistantText, recallTruncateChars))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(entry)
	return err
}

func truncateChars(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
