package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/superhq-ai/neko/internal/config"
)

func initCmd() *cobra.Command {
	var interactive bool
	c := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config.toml and create the workspace tree",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runInit(interactive); err != nil {
				fail(err)
			}
		},
	}
	c.Flags().BoolVar(&interactive, "interactive", false, "prompt for provider, workspace, and bind address")
	return c
}

func runInit(interactive bool) error {
	path := resolveConfigPath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	toml := config.DefaultTOML
	bind := "127.0.0.1:3000"
	workspace := "~/.neko/workspace"
	provider := "openai"
	apiKeyEnv := "OPENAI_API_KEY"

	if interactive {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("Gateway bind address").Value(&bind),
				huh.NewInput().Title("Workspace path").Value(&workspace),
				huh.NewSelect[string]().
					Title("Model provider").
					Options(huh.NewOption("OpenAI", "openai"), huh.NewOption("Anthropic", "anthropic")).
					Value(&provider),
				huh.NewInput().Title("Provider API key env var").Value(&apiKeyEnv),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive setup cancelled: %w", err)
		}
		toml = fmt.Sprintf(`[gateway]
bind = "%s"
workspace = "%s"

[agent]
model = "gpt-5-mini"
provider = "%s"
max_tokens = 4096
tools = ["read_file", "write_file", "list_files", "exec", "http_request", "memory_write"]

[providers.%s]
api_key = "${%s}"
base_url = "https://api.openai.com/v1"
models = ["gpt-5-mini", "gpt-5"]

[session]
dm_scope = "main"
reset_mode = "daily"
reset_at_hour = 4

[tools]
sandbox = false
exec_timeout_secs = 1800
exec_yield_ms = 10000
`, bind, workspace, provider, provider, apiKeyEnv)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(toml), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	cfg, err := config.Parse(toml)
	if err != nil {
		return fmt.Errorf("parse written config: %w", err)
	}
	ws, err := cfg.WorkspacePath()
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}
	for _, sub := range []string{"memory", "memory/recall", "sessions", "cron", "skills"} {
		if err := os.MkdirAll(filepath.Join(ws, sub), 0o755); err != nil {
			return fmt.Errorf("create workspace tree: %w", err)
		}
	}

	fmt.Printf("Wrote config to %s\n", path)
	fmt.Printf("Workspace ready at %s\n", ws)
	return nil
}
