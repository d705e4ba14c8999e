// Package config loads and validates neko's TOML configuration file
// (spec.md §6), matching the schema original_source/src/config/mod.rs
// actually parses.
package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/superhq-ai/neko/internal/neko"
)

// Config is the top-level parsed configuration.
type Config struct {
	Gateway   GatewayConfig            `toml:"gateway"`
	Agent     AgentConfig              `toml:"agent"`
	Providers map[string]ProviderConfig `toml:"providers"`
	Channels  ChannelsConfig           `toml:"channels"`
	Session   SessionConfig            `toml:"session"`
	Tools     ToolsConfig              `toml:"tools"`
}

// GatewayConfig configures the HTTP API and workspace root (spec.md §6).
type GatewayConfig struct {
	Bind      string `toml:"bind"`
	APIToken  string `toml:"api_token"`
	Workspace string `toml:"workspace"`
}

// AgentConfig configures the turn engine (spec.md §4.1).
type AgentConfig struct {
	Model                string   `toml:"model"`
	Provider             string   `toml:"provider"`
	MaxTokens            int      `toml:"max_tokens"`
	Tools                []string `toml:"tools"`
	CompactionThreshold  int      `toml:"compaction_threshold"`
	MaxHistory           int      `toml:"max_history"`
	MaxIterations        int      `toml:"max_iterations"`
	Instructions         string   `toml:"instructions"`
}

// ProviderConfig configures one model provider (spec.md §6).
type ProviderConfig struct {
	APIKey  string   `toml:"api_key"`
	BaseURL string   `toml:"base_url"`
	Models  []string `toml:"models"`
}

// ChannelsConfig is the table of configured channel adapters (spec.md §1).
type ChannelsConfig struct {
	Telegram  *TelegramConfig  `toml:"telegram"`
	Discord   *DiscordConfig   `toml:"discord"`
	WebSocket *WebSocketConfig `toml:"websocket"`
}

// TelegramConfig configures the Telegram channel adapter.
type TelegramConfig struct {
	Enabled      bool    `toml:"enabled"`
	BotToken     string  `toml:"bot_token"`
	AllowedUsers []int64 `toml:"allowed_users"`
}

// DiscordConfig configures the Discord channel adapter.
type DiscordConfig struct {
	Enabled      bool     `toml:"enabled"`
	BotToken     string   `toml:"bot_token"`
	AllowedUsers []string `toml:"allowed_users"`
}

// WebSocketConfig configures the local full-duplex channel adapter used by
// interactive dev clients (not Telegram/Discord bot traffic). Each frame
// carries one complete message in either direction — spec.md's non-goal on
// streaming partial tokens to channels still applies, so replies are sent
// whole, never token-by-token.
type WebSocketConfig struct {
	Enabled bool   `toml:"enabled"`
	Bind    string `toml:"bind"`
}

// DmScope is spec.md §3's session-key scoping policy for direct messages.
type DmScope string

const (
	DmScopeMain          DmScope = "main"
	DmScopePerChannelPeer DmScope = "per_channel_peer"
)

// ResetMode is spec.md §4.2's session reset policy.
type ResetMode string

const (
	ResetModeDaily ResetMode = "daily"
	ResetModeIdle  ResetMode = "idle"
	ResetModeBoth  ResetMode = "both"
)

// SessionConfig configures session scoping and reset policy (spec.md §3, §4.2).
type SessionConfig struct {
	DmScope      DmScope   `toml:"dm_scope"`
	ResetMode    ResetMode `toml:"reset_mode"`
	ResetAtHour  int       `toml:"reset_at_hour"`
	IdleMinutes  int       `toml:"idle_minutes"`
	MaxHistory   int       `toml:"max_history"`
	MaxCached    int       `toml:"max_cached"`
}

// ToolsConfig configures tool enablement and sandboxing (spec.md §4.4, §9).
type ToolsConfig struct {
	Sandbox            bool     `toml:"sandbox"`
	ExecAllowlist      []string `toml:"exec_allowlist"`
	HTTPAllowedDomains []string `toml:"http_allowed_domains"`
	ExecTimeoutSecs    int64    `toml:"exec_timeout_secs"`
	ExecYieldMs        int64    `toml:"exec_yield_ms"`
	// Python is reserved for forward compatibility; run_python is out of
	// scope and never registered regardless of this field (spec.md §1, §9).
	Python PythonConfig `toml:"python"`
}

// PythonConfig is reserved and unused — see ToolsConfig.Python.
type PythonConfig struct {
	Enabled bool `toml:"enabled"`
}

func defaultConfig() Config {
	return Config{
		Gateway: GatewayConfig{
			Bind:      "127.0.0.1:3000",
			Workspace: "~/.neko/workspace",
		},
		Agent: AgentConfig{
			Model:               "gpt-5-mini",
			Provider:            "openai",
			MaxTokens:           4096,
			Tools:               []string{"read_file", "write_file", "list_files", "exec", "http_request", "memory_write"},
			CompactionThreshold: 50,
			MaxHistory:          100,
			MaxIterations:       10,
		},
		Session: SessionConfig{
			DmScope:     DmScopeMain,
			ResetMode:   ResetModeDaily,
			ResetAtHour: 4,
			MaxHistory:  100,
			MaxCached:   8,
		},
		Tools: ToolsConfig{
			ExecTimeoutSecs: 1800,
			ExecYieldMs:     10_000,
		},
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// SubstituteEnvVars replaces ${VAR_NAME} with the environment variable's
// value, or empty string if unset (spec.md §6).
func SubstituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

// Load reads and parses the TOML config at path, applying defaults for
// every unset field and expanding ${VAR} references first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, neko.Wrap(neko.KindConfig, err, "read config")
	}
	return Parse(string(data))
}

// Parse parses raw TOML text (after env substitution) into a Config
// seeded with defaults.
func Parse(raw string) (*Config, error) {
	cfg := defaultConfig()
	expanded := SubstituteEnvVars(raw)
	if _, err := toml.Decode(expanded, &cfg); err != nil {
		return nil, neko.Wrap(neko.KindTOML, err, "parse config")
	}
	return &cfg, nil
}

// DefaultPath returns ~/.neko/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".neko", "config.toml")
}

// WorkspacePath expands a leading "~" in the configured workspace path.
func (c *Config) WorkspacePath() (string, error) {
	path := c.Gateway.Workspace
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", neko.Wrap(neko.KindConfig, err, "resolve home directory")
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path, nil
}

// DefaultTOML is the config.toml written by `neko init` (spec.md §6).
const DefaultTOML = `[gateway]
bind = "127.0.0.1:3000"
workspace = "~/.neko/workspace"

[agent]
model = "gpt-5-mini"
provider = "openai"
max_tokens = 4096
tools = ["read_file", "write_file", "list_files", "exec", "http_request", "memory_write"]

[providers.openai]
api_key = "${OPENAI_API_KEY}"
base_url = "https://api.openai.com/v1"
models = ["gpt-5-mini", "gpt-5"]

[session]
dm_scope = "main"
reset_mode = "daily"
reset_at_hour = 4

[tools]
sandbox = false
exec_timeout_secs = 1800
exec_yield_ms = 10000
`
