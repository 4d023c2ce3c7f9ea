package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Grabemic/Screenshot-wizard/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL",
		"SW_INPUT_DIR", "SW_OUTPUT_DIR", "SW_ARCHIVE_DIR", "SW_MAX_CATEGORIES",
		"SW_METRICS_ADDR", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "config")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "./input", cfg.Folders.Input)
	assert.Equal(t, 2, cfg.Processing.MaxCategories)
	assert.Equal(t, 1.0, cfg.Processing.DebounceSeconds)
	assert.Equal(t, 500*time.Millisecond, cfg.Processing.SettleDelay)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, 4096, cfg.OpenAI.MaxTokens)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileAndProjectRoot(t *testing.T) {
	clearEnv(t)
	path := writeSettings(t, `
folders:
  input: ./shots
  output: /abs/out
processing:
  max_categories: 3
  settle_delay: 200ms
  poll_interval: 900ms
pdf:
  page_size: letter
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	root := filepath.Dir(filepath.Dir(path))
	assert.Equal(t, root, cfg.ProjectRoot())
	assert.Equal(t, filepath.Join(root, "shots"), cfg.InputDir())
	assert.Equal(t, "/abs/out", cfg.OutputDir())
	assert.Equal(t, filepath.Join(root, "archive"), cfg.ArchiveDir())
	assert.Equal(t, 3, cfg.Processing.MaxCategories)
	assert.Equal(t, 200*time.Millisecond, cfg.Processing.SettleDelay)
	assert.Equal(t, 300*time.Millisecond, cfg.PollInterval(), "poll interval is clamped")
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model, "unset keys keep defaults")
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeSettings(t, "openai:\n  model: gpt-4o\n")
	t.Setenv("OPENAI_MODEL", "gpt-4.1-mini")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:8080/v1/")
	t.Setenv("SW_INPUT_DIR", "/watch")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4.1-mini", cfg.OpenAI.Model)
	assert.Equal(t, "http://localhost:8080/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, "/watch", cfg.InputDir())
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err, "an explicit path must exist")
	assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeSettings(t, "folders: [unterminated")

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero categories", func(c *Config) { c.Processing.MaxCategories = 0 }, "max_categories"},
		{"negative debounce", func(c *Config) { c.Processing.DebounceSeconds = -1 }, "debounce_seconds"},
		{"bad dpi", func(c *Config) { c.Processing.RenderDPI = 5000 }, "render_dpi"},
		{"bad page size", func(c *Config) { c.PDF.PageSize = "A3" }, "page_size"},
		{"empty archive", func(c *Config) { c.Folders.Archive = " " }, "folders.archive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.RequireAPIKey())

	cfg.APIKey = "your-api-key-here"
	assert.Error(t, cfg.RequireAPIKey(), "placeholder is rejected")

	cfg.APIKey = "sk-real"
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestDisplay_MasksKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "sk-secret-value"

	out := cfg.Display()
	assert.NotContains(t, out, "sk-secret-value")
	assert.Contains(t, out, "(configured)")
	assert.Contains(t, out, "gpt-4o")
}

func TestEnsureAndSaveFolders(t *testing.T) {
	clearEnv(t)
	path := writeSettings(t, "processing:\n  max_categories: 4\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, cfg.EnsureFolders())
	for _, dir := range []string{cfg.InputDir(), cfg.OutputDir(), cfg.ArchiveDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	require.NoError(t, cfg.SaveFolders("./new-in", "./new-out"))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./new-in", reloaded.Folders.Input)
	assert.Equal(t, "./new-out", reloaded.Folders.Output)
	assert.Equal(t, 4, reloaded.Processing.MaxCategories)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "APIKey"))
}
