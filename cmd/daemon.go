package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/superhq-ai/neko/internal/config"
)

// pidFilePath returns the PID file location under the workspace (spec.md
// §6: "two lines — PID, then the bound address").
func pidFilePath(cfg *config.Config) (string, error) {
	workspace, err := cfg.WorkspacePath()
	if err != nil {
		return "", err
	}
	return filepath.Join(workspace, "neko.pid"), nil
}

func logFilePath(cfg *config.Config) (string, error) {
	workspace, err := cfg.WorkspacePath()
	if err != nil {
		return "", err
	}
	return filepath.Join(workspace, "neko.log"), nil
}

// writePIDFile writes "<pid>\n<addr>\n" after the listener binds.
func writePIDFile(path string, pid int, addr string) error {
	content := fmt.Sprintf("%d\n%s\n", pid, addr)
	return os.WriteFile(path, []byte(content), 0o644)
}

// readPIDFile parses a PID file written by writePIDFile.
func readPIDFile(path string) (pid int, addr string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, "", err
	}
	lines := strings.SplitN(strings.TrimSpace(string(data)), "\n", 2)
	pid, err = strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return 0, "", fmt.Errorf("malformed pid file: %w", err)
	}
	if len(lines) > 1 {
		addr = strings.TrimSpace(lines[1])
	}
	return pid, addr, nil
}

// processAlive reports whether pid refers to a live process, without
// actually sending a disruptive signal.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
