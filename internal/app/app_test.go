package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/superhq-ai/neko/internal/config"
)

func testConfig(workspace string) *config.Config {
	return &config.Config{
		Gateway: config.GatewayConfig{
			Bind:      "127.0.0.1:0",
			APIToken:  "test-token",
			Workspace: workspace,
		},
		Agent: config.AgentConfig{
			Model:         "gpt-5-mini",
			Provider:      "openai",
			MaxIterations: 5,
			Tools:         []string{"read_file", "write_file", "does_not_exist"},
		},
		Providers: map[string]config.ProviderConfig{
			"openai": {APIKey: "sk-test", BaseURL: "https://api.openai.com/v1"},
		},
		Session: config.SessionConfig{
			DmScope:   config.DmScopeMain,
			ResetMode: config.ResetModeDaily,
		},
	}
}

func TestNew_WiresEveryComponent(t *testing.T) {
	dir := t.TempDir()
	a, err := New(testConfig(dir), nil)
	require.NoError(t, err)

	require.NotNil(t, a.Agent)
	require.NotNil(t, a.Gateway)
	require.NotNil(t, a.Server)
	require.NotNil(t, a.Sessions)
	require.NotNil(t, a.Process)
	require.NotNil(t, a.Channels)
	require.NotNil(t, a.Scheduler)
	require.NotNil(t, a.Skills)
}

func TestNew_UnknownProviderFails(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Agent.Provider = "anthropic"

	_, err := New(cfg, nil)
	require.Error(t, err)
}

func TestBuildRegistry_SkipsUnknownTools(t *testing.T) {
	cfg := testConfig(t.TempDir())
	reg := buildRegistry(cfg, nil)

	names := reg.Names()
	require.Contains(t, names, "read_file")
	require.Contains(t, names, "write_file")
	require.NotContains(t, names, "does_not_exist")
}
