package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the gateway is running",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runStatus(); err != nil {
				fail(err)
			}
		},
	}
}

func runStatus() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pidPath, err := pidFilePath(cfg)
	if err != nil {
		return err
	}
	pid, addr, err := readPIDFile(pidPath)
	if err != nil {
		fmt.Println("neko is not running")
		return nil
	}
	if !processAlive(pid) {
		fmt.Println("neko is not running (stale pid file)")
		return nil
	}
	fmt.Printf("neko is running (pid %d, listening on %s)\n", pid, addr)
	return nil
}
