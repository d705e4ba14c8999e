package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func logsCmd() *cobra.Command {
	var lines int
	c := &cobra.Command{
		Use:   "logs",
		Short: "Print the tail of the gateway log file",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runLogs(lines); err != nil {
				fail(err)
			}
		},
	}
	c.Flags().IntVar(&lines, "lines", 100, "number of trailing lines to print")
	return c
}

func runLogs(lines int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logPath, err := logFilePath(cfg)
	if err != nil {
		return err
	}
	f, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var all []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		all = append(all, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read log file: %w", err)
	}

	start := 0
	if len(all) > lines {
		start = len(all) - lines
	}
	fmt.Println(strings.Join(all[start:], "\n"))
	return nil
}
