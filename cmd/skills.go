package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/superhq-ai/neko/internal/skills"
)

func skillsCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "skills",
		Short: "Manage workspace skills (markdown capability bundles)",
	}
	c.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List installed skills",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runSkillsList(); err != nil {
				fail(err)
			}
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "install <path>",
		Short: "Install a skill directory (must contain SKILL.md) into the workspace",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := runSkillsInstall(args[0]); err != nil {
				fail(err)
			}
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an installed skill by name",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := runSkillsRemove(args[0]); err != nil {
				fail(err)
			}
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "reload",
		Short: "Re-validate every skill on disk",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runSkillsReload(); err != nil {
				fail(err)
			}
		},
	})
	return c
}

func skillsWorkspaceDir() (workspace, skillsDir string, err error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", "", err
	}
	workspace, err = cfg.WorkspacePath()
	if err != nil {
		return "", "", err
	}
	return workspace, filepath.Join(workspace, "skills"), nil
}

func runSkillsList() error {
	workspace, _, err := skillsWorkspaceDir()
	if err != nil {
		return err
	}
	loaded, err := skills.LoadSkills(workspace, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return err
	}
	if len(loaded) == 0 {
		fmt.Println("no skills installed")
		return nil
	}
	for _, s := range loaded {
		fmt.Printf("%-24s %s\n", s.Name, s.Description)
	}
	return nil
}

// runSkillsInstall validates the SKILL.md at srcPath (a directory or the
// SKILL.md file itself), then copies the whole directory into
// workspace/skills/<name>.
func runSkillsInstall(srcPath string) error {
	_, skillsDir, err := skillsWorkspaceDir()
	if err != nil {
		return err
	}

	srcDir := srcPath
	if info, statErr := os.Stat(srcPath); statErr == nil && !info.IsDir() {
		srcDir = filepath.Dir(srcPath)
	}
	skillMDPath := filepath.Join(srcDir, "SKILL.md")

	skill, err := skills.Load(skillMDPath, os.ReadFile)
	if err != nil {
		return fmt.Errorf("invalid skill at %s: %w", srcDir, err)
	}

	destDir := filepath.Join(skillsDir, skill.Name)
	if err := copyDir(srcDir, destDir); err != nil {
		return fmt.Errorf("copy skill: %w", err)
	}

	fmt.Printf("installed skill %q to %s\n", skill.Name, destDir)
	return nil
}

func runSkillsRemove(name string) error {
	_, skillsDir, err := skillsWorkspaceDir()
	if err != nil {
		return err
	}
	target := filepath.Join(skillsDir, name)
	if _, err := os.Stat(target); os.IsNotExist(err) {
		return fmt.Errorf("no skill named %q", name)
	}
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("remove skill: %w", err)
	}
	fmt.Printf("removed skill %q\n", name)
	return nil
}

func runSkillsReload() error {
	workspace, _, err := skillsWorkspaceDir()
	if err != nil {
		return err
	}
	loaded, err := skills.LoadSkills(workspace, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err != nil {
		return err
	}
	fmt.Printf("reloaded %d skill(s)\n", len(loaded))
	return nil
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}
