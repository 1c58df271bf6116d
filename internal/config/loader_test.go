package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func clearEnv(t *testing.T) {
	for _, key := range []string{EnvServiceURL, EnvLevel, EnvOpenAIKey, EnvOpenAIBaseURL, EnvOpenAIModel} {
		t.Setenv(key, "")
	}
}

func TestDefaultsAreValid(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()

	loaded, err := Load(LoadOptions{HomeDir: home, StartDir: t.TempDir()})
	require.NoError(t, err)

	cfg := loaded.Config
	assert.Equal(t, 100, cfg.ChangeCapacity)
	assert.Equal(t, 50, cfg.SaveCapacity)
	assert.Equal(t, 20, cfg.SelectionCapacity)
	assert.Equal(t, 2, cfg.HeuristicThreshold)
	assert.Equal(t, 10*time.Minute, cfg.RecentWindow())
	assert.Equal(t, time.Hour, cfg.ActivityWindow())
	assert.Equal(t, 5*time.Second, cfg.TrackingInterval)
	assert.True(t, cfg.Tracking())
	assert.Contains(t, cfg.ExtensionDirs, filepath.Join(home, ".vscode", "extensions"))
	assert.Empty(t, loaded.Sources)
}

func TestGlobalAndWorkspaceOverlay(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	global := filepath.Join(home, ".ctxbridge", "config.yaml")
	writeFile(t, global, `
serviceURL: http://knowledge.internal:9000
enhancementLevel: minimal
changeCapacity: 200
ignorePatterns: [tmp]
`)

	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, WorkspaceFileName), `
enhancementLevel: maximum
autoTrack: false
trackingInterval: 2s
ignorePatterns: [tmp, coverage]
`)
	start := filepath.Join(ws, "src", "deep")
	require.NoError(t, os.MkdirAll(start, 0755))

	loaded, err := Load(LoadOptions{HomeDir: home, GlobalFile: global, StartDir: start})
	require.NoError(t, err)

	cfg := loaded.Config
	assert.Equal(t, "http://knowledge.internal:9000", cfg.ServiceURL)
	assert.Equal(t, "maximum", cfg.EnhancementLevel)
	assert.Equal(t, 200, cfg.ChangeCapacity)
	assert.Equal(t, 2*time.Second, cfg.TrackingInterval)
	assert.False(t, cfg.Tracking())
	assert.Equal(t, 50, cfg.SaveCapacity, "unset overlay fields keep defaults")

	assert.Contains(t, cfg.IgnorePatterns, "node_modules")
	assert.Contains(t, cfg.IgnorePatterns, "coverage")
	count := 0
	for _, p := range cfg.IgnorePatterns {
		if p == "tmp" {
			count++
		}
	}
	assert.Equal(t, 1, count, "lists are deduplicated")

	assert.Equal(t, ws, loaded.WorkspaceRoot)
	assert.Equal(t, []string{global, filepath.Join(ws, WorkspaceFileName)}, loaded.Sources)
}

func TestEnvOverridesAndDotEnv(t *testing.T) {
	clearEnv(t)
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, ".env"), "OPENAI_MODEL=from-dotenv\nOPENAI_API_KEY=sk-dotenv\n")
	t.Setenv(EnvServiceURL, "https://ctx.example.com")
	t.Setenv(EnvLevel, "bogus")
	// godotenv only fills variables that are entirely absent.
	require.NoError(t, os.Unsetenv(EnvOpenAIModel))
	require.NoError(t, os.Unsetenv(EnvOpenAIKey))
	t.Setenv(EnvOpenAIKey, "sk-env")
	t.Cleanup(func() { _ = os.Unsetenv(EnvOpenAIModel) })

	loaded, err := Load(LoadOptions{HomeDir: t.TempDir(), StartDir: ws})
	require.NoError(t, err)

	assert.Equal(t, "https://ctx.example.com", loaded.ServiceURL)
	assert.Equal(t, "bogus", loaded.EnhancementLevel, "unknown levels are accepted")
	assert.Equal(t, "sk-env", loaded.OpenAI.APIKey, ".env does not override the environment")
	assert.Equal(t, "from-dotenv", loaded.OpenAI.Model)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad url", func(c *Config) { c.ServiceURL = "not a url" }},
		{"zero capacity", func(c *Config) { c.ChangeCapacity = -1 }},
		{"threshold above indicator count", func(c *Config) { c.HeuristicThreshold = 5 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad bridge addr", func(c *Config) { c.BridgeAddr = "nowhere" }},
		{"negative timeout", func(c *Config) { c.RequestTimeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default(t.TempDir())
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestInvalidYAML(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	global := filepath.Join(home, "config.yaml")
	writeFile(t, global, "serviceURL: [unclosed")

	_, err := Load(LoadOptions{HomeDir: home, GlobalFile: global})
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	path := filepath.Join(home, "nested", "config.yaml")

	cfg := Default(home)
	cfg.ServiceURL = "http://127.0.0.1:9999"
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(LoadOptions{HomeDir: home, GlobalFile: path})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9999", loaded.ServiceURL)
	assert.Equal(t, cfg.IgnorePatterns, loaded.IgnorePatterns)
}

func TestFindWorkspaceFile(t *testing.T) {
	ws := t.TempDir()
	assert.Equal(t, "", FindWorkspaceFile(ws))
	writeFile(t, filepath.Join(ws, WorkspaceFileName), "logLevel: debug\n")
	nested := filepath.Join(ws, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	assert.Equal(t, filepath.Join(ws, WorkspaceFileName), FindWorkspaceFile(nested))
}
