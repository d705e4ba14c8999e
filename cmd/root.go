// Package cmd is neko's CLI surface (spec.md §6), grounded on the teacher's
// cobra command shape (_examples/vanducng-goclaw/cmd/root.go).
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/superhq-ai/neko/internal/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "neko",
	Short: "neko — agent runtime gateway",
	Long:  "neko: a long-running agent runtime that routes natural-language messages from chat channels and HTTP through a tool-using model loop, with durable sessions, memory, and cron-driven jobs.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.neko/config.toml or $NEKO_CONFIG)")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(stopCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(logsCmd())
	rootCmd.AddCommand(messageCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(sessionsCmd())
	rootCmd.AddCommand(memoryCmd())
	rootCmd.AddCommand(skillsCmd())
	rootCmd.AddCommand(cronCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("neko %s\n", Version)
		},
	}
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv("NEKO_CONFIG"); v != "" {
		return v
	}
	return config.DefaultPath()
}

// loadConfig loads the config at resolveConfigPath, returning an error that
// names the path; callers hand it to fail, which prints it as a single line
// and exits non-zero (spec.md §6, §7: "CLI surfaces errors as single-line
// stderr messages").
func loadConfig() (*config.Config, error) {
	path := resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// fail prints a single-line error to stderr and exits non-zero.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "neko: %s\n", err)
	os.Exit(1)
}

// Execute runs the root cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
