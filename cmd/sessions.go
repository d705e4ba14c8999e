package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/superhq-ai/neko/internal/config"
	"github.com/superhq-ai/neko/internal/sessions"
)

func sessionsCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect or clear persisted sessions",
	}
	c.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all sessions, most recently updated first",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runSessionsList(); err != nil {
				fail(err)
			}
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every session's metadata and transcript",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runSessionsClear(); err != nil {
				fail(err)
			}
		},
	})
	return c
}

func openStore() (*sessions.Store, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	workspace, err := cfg.WorkspacePath()
	if err != nil {
		return nil, "", err
	}
	store := sessions.New(filepath.Join(workspace, "sessions"), policyFromConfig(cfg), slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err := store.LoadFromDisk(); err != nil {
		return nil, "", err
	}
	return store, workspace, nil
}

func policyFromConfig(cfg *config.Config) sessions.Policy {
	mode := sessions.ResetDaily
	switch cfg.Session.ResetMode {
	case config.ResetModeIdle:
		mode = sessions.ResetIdle
	case config.ResetModeBoth:
		mode = sessions.ResetBoth
	}
	return sessions.Policy{Mode: mode, ResetAtHour: cfg.Session.ResetAtHour, IdleMinutes: cfg.Session.IdleMinutes}
}

func runSessionsList() error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	metas := store.List()
	if len(metas) == 0 {
		fmt.Println("no sessions")
		return nil
	}
	for _, m := range metas {
		fmt.Printf("%s  key=%s  turns=%d  in=%d  out=%d  updated=%s\n",
			m.SessionID, m.Key, m.TurnCount, m.InputTokens, m.OutputTokens, m.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	return nil
}

func runSessionsClear() error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	if err := store.ClearAll(); err != nil {
		return err
	}
	fmt.Println("all sessions cleared")
	return nil
}
