// Package app is the composition root: it wires config, providers, tools,
// sessions, the agent, the gateway, channels, the scheduler, and the skills
// watcher into one running neko instance (spec.md §1, §6).
//
// Grounded on the teacher's cmd/gateway.go wiring shape (config load →
// tool registry assembly → channel manager → scheduler → signal-driven
// graceful shutdown), trimmed to SPEC_FULL.md's single-tenant scope.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/superhq-ai/neko/internal/agent"
	"github.com/superhq-ai/neko/internal/channels"
	"github.com/superhq-ai/neko/internal/config"
	"github.com/superhq-ai/neko/internal/gateway"
	"github.com/superhq-ai/neko/internal/neko"
	"github.com/superhq-ai/neko/internal/process"
	"github.com/superhq-ai/neko/internal/providers"
	"github.com/superhq-ai/neko/internal/scheduler"
	"github.com/superhq-ai/neko/internal/sessions"
	"github.com/superhq-ai/neko/internal/skills"
	"github.com/superhq-ai/neko/internal/tools"
)

// App owns every long-lived component of a running instance.
type App struct {
	Config    *config.Config
	Workspace string

	Agent     *agent.Agent
	Gateway   *gateway.Gateway
	Server    *gateway.Server
	Sessions  *sessions.Store
	Process   *process.Manager
	Channels  *channels.Manager
	Scheduler *scheduler.Scheduler
	Skills    *skills.Watcher

	log *slog.Logger
}

// New loads cfg, builds every component, and wires them together. It does
// not start anything — call Run to start serving.
func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	workspace, err := cfg.WorkspacePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return nil, neko.Wrap(neko.KindIO, err, "create workspace")
	}

	provider, err := buildProvider(cfg, log)
	if err != nil {
		return nil, err
	}

	procMgr := process.NewManager(cfg.Tools.ExecYieldMs)
	registry := buildRegistry(cfg, procMgr)

	skillList, err := skills.LoadSkills(workspace, log)
	if err != nil {
		log.Warn("failed to load skills", "error", err)
	}

	a := agent.New(provider, registry, cfg.Agent, workspace, skillList, log)

	sessionsDir := filepath.Join(workspace, "sessions")
	if err := os.MkdirAll(sessionsDir, 0o755); err != nil {
		return nil, neko.Wrap(neko.KindIO, err, "create sessions dir")
	}
	store := sessions.New(sessionsDir, sessionPolicy(cfg.Session), log)
	if err := store.LoadFromDisk(); err != nil {
		return nil, err
	}

	dmScope := sessions.DMScopeMain
	if cfg.Session.DmScope == config.DmScopePerChannelPeer {
		dmScope = sessions.DMScopePerChannelPeer
	}
	gw := gateway.New(a, store, dmScope, log)
	srv := gateway.NewServer(gw, cfg.Gateway.APIToken, log)

	chMgr := channels.NewManager(gw, log)
	if cfg.Channels.Telegram != nil && cfg.Channels.Telegram.Enabled {
		tg, err := channels.NewTelegram(*cfg.Channels.Telegram, log)
		if err != nil {
			log.Error("telegram channel disabled: failed to init", "error", err)
		} else {
			chMgr.Register(tg)
		}
	}
	if cfg.Channels.Discord != nil && cfg.Channels.Discord.Enabled {
		dc, err := channels.NewDiscord(*cfg.Channels.Discord, log)
		if err != nil {
			log.Error("discord channel disabled: failed to init", "error", err)
		} else {
			chMgr.Register(dc)
		}
	}
	if cfg.Channels.WebSocket != nil && cfg.Channels.WebSocket.Enabled {
		chMgr.Register(channels.NewWebSocket(*cfg.Channels.WebSocket, log))
	}

	sched := scheduler.New(workspace, a, &announcer{chMgr}, log)

	var watcher *skills.Watcher
	watcher = skills.NewWatcher(workspace, a.SetSkills, log)

	return &App{
		Config:    cfg,
		Workspace: workspace,
		Agent:     a,
		Gateway:   gw,
		Server:    srv,
		Sessions:  store,
		Process:   procMgr,
		Channels:  chMgr,
		Scheduler: sched,
		Skills:    watcher,
		log:       log,
	}, nil
}

// Logger returns the app's configured logger.
func (app *App) Logger() *slog.Logger { return app.log }

// announcer adapts channels.Manager to scheduler.Announcer.
type announcer struct{ mgr *channels.Manager }

func (a *announcer) Announce(ctx context.Context, channel, recipientID, text string) error {
	return a.mgr.SendTo(ctx, channel, gateway.OutboundMessage{Channel: channel, RecipientID: recipientID, Text: text})
}

// Run starts the HTTP server, channel adapters, scheduler, and skills
// watcher, and blocks until ctx is cancelled. If onReady is non-nil, it is
// invoked once the listener is bound with the actual bound address (spec.md
// §6: the PID file records the address only after the listener binds).
func (app *App) Run(ctx context.Context, onReady func(addr string)) error {
	if app.Skills != nil {
		go func() {
			if err := app.Skills.Run(ctx); err != nil {
				app.log.Warn("skills watcher stopped", "error", err)
			}
		}()
	}

	if err := app.Channels.Start(ctx); err != nil {
		app.log.Error("failed to start channels", "error", err)
	}

	go app.Scheduler.Run(ctx)

	ln, err := net.Listen("tcp", app.Config.Gateway.Bind)
	if err != nil {
		return neko.Wrap(neko.KindIO, err, "bind gateway listener")
	}

	httpSrv := &http.Server{Handler: app.Server.Handler()}
	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		errCh <- nil
	}()

	if onReady != nil {
		onReady(ln.Addr().String())
	}
	app.log.Info("neko started", "bind", ln.Addr().String(), "workspace", app.Workspace)

	select {
	case <-ctx.Done():
		_ = app.Channels.Stop(context.Background())
		_ = httpSrv.Shutdown(context.Background())
		return nil
	case err := <-errCh:
		return err
	}
}

func buildProvider(cfg *config.Config, log *slog.Logger) (providers.Provider, error) {
	pc, ok := cfg.Providers[cfg.Agent.Provider]
	if !ok {
		return nil, neko.New(neko.KindConfig, "no provider configured for %q", cfg.Agent.Provider)
	}
	return providers.NewOpenAIProvider(pc.BaseURL, pc.APIKey, cfg.Agent.Model, log), nil
}

func sessionPolicy(cfg config.SessionConfig) sessions.Policy {
	mode := sessions.ResetDaily
	switch cfg.ResetMode {
	case config.ResetModeIdle:
		mode = sessions.ResetIdle
	case config.ResetModeBoth:
		mode = sessions.ResetBoth
	}
	return sessions.Policy{Mode: mode, ResetAtHour: cfg.ResetAtHour, IdleMinutes: cfg.IdleMinutes}
}

// buildRegistry registers every tool named in cfg.Agent.Tools (spec.md §4.4,
// §9) — an unrecognized name is skipped with a warning rather than failing
// startup, matching the teacher's tolerant tool-wiring stance.
func buildRegistry(cfg *config.Config, procMgr *process.Manager) *tools.Registry {
	reg := tools.NewRegistry()

	available := map[string]tools.Tool{
		"read_file":      tools.ReadFileTool{},
		"write_file":     tools.WriteFileTool{},
		"list_files":     tools.ListFilesTool{},
		"cd":             tools.CDTool{},
		"exec":           tools.NewExecTool(procMgr, cfg.Tools.ExecAllowlist, cfg.Tools.ExecTimeoutSecs),
		"process":        tools.NewProcessTool(procMgr),
		"http_request":   tools.NewHTTPRequestTool(cfg.Tools.HTTPAllowedDomains),
		"memory_write":   tools.MemoryWriteTool{},
		"memory_search":  tools.MemorySearchTool{},
		"memory_replace": tools.MemoryReplaceTool{},
		"cron_manage":    tools.CronManageTool{},
		"send_file":      tools.SendFileTool{},
	}

	for _, name := range cfg.Agent.Tools {
		t, ok := available[name]
		if !ok {
			slog.Warn("unknown tool name in config, skipping", "tool", name)
			continue
		}
		reg.Register(t)
	}
	return reg
}
