package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func memoryCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "memory",
		Short: "Inspect the workspace memory directory",
	}
	c.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List memory files with their character counts",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runMemoryList(); err != nil {
				fail(err)
			}
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "search <query>",
		Short: "Case-insensitive grep across memory/*.md",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := runMemorySearch(args[0]); err != nil {
				fail(err)
			}
		},
	})
	return c
}

func memoryDir() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	workspace, err := cfg.WorkspacePath()
	if err != nil {
		return "", err
	}
	return filepath.Join(workspace, "memory"), nil
}

func runMemoryList() error {
	dir, err := memoryDir()
	if err != nil {
		return err
	}
	var names []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return filepath.SkipDir
			}
			return walkErr
		}
		if !d.IsDir() && strings.HasSuffix(path, ".md") {
			rel, _ := filepath.Rel(dir, path)
			names = append(names, rel)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("walk memory dir: %w", err)
	}
	sort.Strings(names)
	if len(names) == 0 {
		fmt.Println("no memory files")
		return nil
	}
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		fmt.Printf("%-40s %6d chars\n", name, len(data))
	}
	return nil
}

func runMemorySearch(query string) error {
	dir, err := memoryDir()
	if err != nil {
		return err
	}
	pattern, err := regexp.Compile("(?i)" + regexp.QuoteMeta(query))
	if err != nil {
		return err
	}

	var matches int
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return filepath.SkipDir
			}
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()

		rel, _ := filepath.Rel(dir, path)
		scanner := bufio.NewScanner(f)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			if pattern.MatchString(scanner.Text()) {
				fmt.Printf("%s:%d: %s\n", rel, lineNo, scanner.Text())
				matches++
			}
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("walk memory dir: %w", err)
	}
	if matches == 0 {
		fmt.Println("no matches")
	}
	return nil
}
