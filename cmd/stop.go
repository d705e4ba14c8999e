package cmd

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running gateway",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runStop(); err != nil {
				fail(err)
			}
		},
	}
}

func runStop() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pidPath, err := pidFilePath(cfg)
	if err != nil {
		return err
	}
	pid, _, err := readPIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("no running instance found: %w", err)
	}
	if !processAlive(pid) {
		_ = os.Remove(pidPath)
		return fmt.Errorf("process %d is not running (stale pid file removed)", pid)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal process %d: %w", pid, err)
	}

	for i := 0; i < 50; i++ {
		if !processAlive(pid) {
			fmt.Println("neko stopped")
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("process %d did not exit within 5s", pid)
}
