package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/superhq-ai/neko/internal/app"
	"github.com/superhq-ai/neko/internal/config"
	"github.com/superhq-ai/neko/internal/telemetry"
)

// foregroundEnvVar marks a re-exec'd process that should run the gateway in
// the foreground instead of spawning a detached child (spec.md §6 PID file,
// §5 graceful shutdown).
const foregroundEnvVar = "NEKO_FOREGROUND"

func startCmd() *cobra.Command {
	var foreground bool
	c := &cobra.Command{
		Use:   "start",
		Short: "Start the gateway (daemonized by default)",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig()
			if err != nil {
				fail(err)
			}
			if foreground || os.Getenv(foregroundEnvVar) == "1" {
				if err := runForeground(cfg); err != nil {
					fail(err)
				}
				return
			}
			if err := startDetached(cfg); err != nil {
				fail(err)
			}
		},
	}
	c.Flags().BoolVar(&foreground, "foreground", false, "run in the foreground instead of daemonizing")
	return c
}

// startDetached re-execs the current binary with NEKO_FOREGROUND=1, stdio
// redirected to the workspace log file, and returns as soon as the child has
// been spawned and released; it does not wait for the child to bind its
// listener or write its PID file.
func startDetached(cfg *config.Config) error {
	pidPath, err := pidFilePath(cfg)
	if err != nil {
		return err
	}
	if pid, _, err := readPIDFile(pidPath); err == nil && processAlive(pid) {
		return fmt.Errorf("neko is already running (pid %d)", pid)
	}

	logPath, err := logFilePath(cfg)
	if err != nil {
		return err
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	child := exec.Command(self, "start", "--config", resolveConfigPath())
	child.Env = append(os.Environ(), foregroundEnvVar+"=1")
	child.Stdout = logFile
	child.Stderr = logFile
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := child.Start(); err != nil {
		return fmt.Errorf("spawn gateway process: %w", err)
	}
	if err := child.Process.Release(); err != nil {
		return fmt.Errorf("detach gateway process: %w", err)
	}

	fmt.Printf("neko started (pid %d), logging to %s\n", child.Process.Pid, logPath)
	return nil
}

// runForeground builds and runs the App, blocking until SIGINT/SIGTERM
// (spec.md §5 "graceful shutdown: a terminate signal stops the HTTP
// listener; in-flight turns run to completion under a short drain window").
func runForeground(cfg *config.Config) error {
	pidPath, err := pidFilePath(cfg)
	if err != nil {
		return err
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, log)
	if err != nil {
		log.Warn("otel setup failed, continuing without tracing", "error", err)
		shutdownTracing = nil
	}
	if shutdownTracing != nil {
		defer func() { _ = shutdownTracing(context.Background()) }()
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}

	onReady := func(addr string) {
		if err := writePIDFile(pidPath, os.Getpid(), addr); err != nil {
			log.Error("failed to write pid file", "error", err)
		}
	}

	runErr := a.Run(ctx, onReady)
	_ = os.Remove(pidPath)
	return runErr
}
