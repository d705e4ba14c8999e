package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_DefaultTOMLRoundTrips(t *testing.T) {
	cfg, err := Parse(DefaultTOML)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:3000", cfg.Gateway.Bind)
	require.Equal(t, "gpt-5-mini", cfg.Agent.Model)
	require.Equal(t, 4096, cfg.Agent.MaxTokens)
}

func TestParse_EmptyConfigUsesDefaults(t *testing.T) {
	cfg, err := Parse("")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:3000", cfg.Gateway.Bind)
	require.Equal(t, 4096, cfg.Agent.MaxTokens)
	require.Equal(t, int64(1800), cfg.Tools.ExecTimeoutSecs)
}

func TestSubstituteEnvVars(t *testing.T) {
	require.NoError(t, os.Setenv("NEKO_TEST_VAR", "hello123"))
	defer os.Unsetenv("NEKO_TEST_VAR")

	result := SubstituteEnvVars(`key = "${NEKO_TEST_VAR}"`)
	require.Equal(t, `key = "hello123"`, result)
}

func TestSubstituteEnvVars_MissingVarBecomesEmpty(t *testing.T) {
	result := SubstituteEnvVars(`key = "${NONEXISTENT_VAR_XYZ}"`)
	require.Equal(t, `key = ""`, result)
}

func TestParse_ProvidersTable(t *testing.T) {
	raw := `
[providers.openai]
api_key = "sk-test"
base_url = "https://api.openai.com"
models = ["gpt-5-mini"]
`
	cfg, err := Parse(raw)
	require.NoError(t, err)
	p, ok := cfg.Providers["openai"]
	require.True(t, ok)
	require.Equal(t, "sk-test", p.APIKey)
	require.Equal(t, []string{"gpt-5-mini"}, p.Models)
}

func TestWorkspacePath_ExpandsTilde(t *testing.T) {
	cfg, err := Parse(`[gateway]
workspace = "~/.neko/workspace"
`)
	require.NoError(t, err)
	path, err := cfg.WorkspacePath()
	require.NoError(t, err)
	require.NotContains(t, path, "~")
	require.Contains(t, path, ".neko/workspace")
}
