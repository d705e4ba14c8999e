package skills

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/superhq-ai/neko/internal/neko"
)

// Watcher reloads the skill set whenever a SKILL.md file under
// workspace/skills changes, is added, or removed (spec.md §9 supplemented
// feature: the original has no live reload, but fsnotify is already in the
// teacher's dependency surface; this watcher is its only user in this module).
type Watcher struct {
	workspace string
	log       *slog.Logger
	onReload  func([]Skill)
}

// NewWatcher builds a Watcher. onReload is invoked with the freshly loaded
// skill set after any relevant filesystem event, debounced by 250ms.
func NewWatcher(workspace string, onReload func([]Skill), log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{workspace: workspace, log: log, onReload: onReload}
}

// Run blocks, watching workspace/skills until ctx is cancelled. If the
// directory doesn't exist yet, Run returns immediately without error —
// skills are optional.
func (w *Watcher) Run(ctx context.Context) error {
	skillsDir := filepath.Join(w.workspace, "skills")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return neko.Wrap(neko.KindIO, err, "create skills watcher")
	}
	defer watcher.Close()

	if err := addRecursive(watcher, skillsDir); err != nil {
		w.log.Debug("skills directory not present, skipping watch", "dir", skillsDir)
		return nil
	}

	var debounce *time.Timer
	reload := func() {
		skills, err := LoadSkills(w.workspace, w.log)
		if err != nil {
			w.log.Error("failed to reload skills", "error", err)
			return
		}
		w.log.Info("reloaded skills", "count", len(skills))
		w.onReload(skills)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(250*time.Millisecond, reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("skills watcher error", "error", err)
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
