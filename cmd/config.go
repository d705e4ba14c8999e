package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Show or edit the configuration file",
	}
	c.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved config file contents",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runConfigShow(); err != nil {
				fail(err)
			}
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "edit",
		Short: "Open the config file in $EDITOR",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runConfigEdit(); err != nil {
				fail(err)
			}
		},
	})
	return c
}

func runConfigShow() error {
	path := resolveConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	fmt.Print(string(data))
	return nil
}

func runConfigEdit() error {
	path := resolveConfigPath()
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	c := exec.Command(editor, path)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("run editor: %w", err)
	}
	return nil
}
