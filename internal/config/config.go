// Package config provides configuration loading for Screenshot Wizard.
// Supports a YAML settings file, a .env file, and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Grabemic/Screenshot-wizard/internal/domain"
)

// DefaultPath is the settings file location relative to the working directory.
const DefaultPath = "config/settings.yaml"

const apiKeyPlaceholder = "your-api-key-here"

// Config holds all configuration for Screenshot Wizard.
type Config struct {
	Folders       FoldersConfig       `yaml:"folders"`
	Processing    ProcessingConfig    `yaml:"processing"`
	PDF           PDFConfig           `yaml:"pdf"`
	OpenAI        OpenAIConfig        `yaml:"openai"`
	Ledger        LedgerConfig        `yaml:"ledger"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Observability ObservabilityConfig `yaml:"observability"`

	// APIKey is read from the environment only and never written back.
	APIKey string `yaml:"-"`

	path        string
	projectRoot string
}

// FoldersConfig holds the watched, output and archive directories.
type FoldersConfig struct {
	Input   string `yaml:"input"`
	Output  string `yaml:"output"`
	Archive string `yaml:"archive"`
}

// ProcessingConfig holds detection and pipeline settings.
type ProcessingConfig struct {
	PollingInterval int           `yaml:"polling_interval"`
	MaxCategories   int           `yaml:"max_categories"`
	DebounceSeconds float64       `yaml:"debounce_seconds"`
	SettleDelay     time.Duration `yaml:"settle_delay"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	RenderDPI       int           `yaml:"render_dpi"`
}

// PDFConfig holds output document settings.
type PDFConfig struct {
	PageSize   string  `yaml:"page_size"`
	FontFamily string  `yaml:"font_family"`
	FontSize   float64 `yaml:"font_size"`
	Margin     float64 `yaml:"margin"`
}

// OpenAIConfig holds analysis service settings.
type OpenAIConfig struct {
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

// LedgerConfig holds processing history settings.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig holds the prometheus endpoint settings.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads configuration from a YAML file and applies environment overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, domain.ConfigError("resolve config path", err)
	}

	cfg := DefaultConfig()
	cfg.path = abs
	cfg.projectRoot = projectRootFor(abs)

	_ = godotenv.Load(filepath.Join(cfg.projectRoot, ".env")) // ignore error if .env doesn't exist

	data, err := os.ReadFile(abs)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.ConfigError("parse config file", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, domain.ConfigError("read config file", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns the configuration used when no settings file exists.
func DefaultConfig() *Config {
	wd, _ := os.Getwd()
	return &Config{
		Folders: FoldersConfig{
			Input:   "./input",
			Output:  "./output",
			Archive: "./archive",
		},
		Processing: ProcessingConfig{
			PollingInterval: 5,
			MaxCategories:   2,
			DebounceSeconds: 1.0,
			SettleDelay:     500 * time.Millisecond,
			PollInterval:    250 * time.Millisecond,
			RenderDPI:       200,
		},
		PDF: PDFConfig{
			PageSize:   "A4",
			FontFamily: "Helvetica",
			FontSize:   11,
			Margin:     72,
		},
		OpenAI: OpenAIConfig{
			Model:     "gpt-4o",
			MaxTokens: 4096,
			BaseURL:   "https://api.openai.com/v1",
			Timeout:   2 * time.Minute,
		},
		Ledger: LedgerConfig{
			Path: "./screenshot-wizard.db",
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
		projectRoot: wd,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Processing.MaxCategories < 1 {
		return domain.ConfigError(fmt.Sprintf("max_categories must be at least 1, got %d", c.Processing.MaxCategories), nil)
	}
	if c.Processing.DebounceSeconds < 0 {
		return domain.ConfigError("debounce_seconds must not be negative", nil)
	}
	if c.Processing.RenderDPI < 36 || c.Processing.RenderDPI > 600 {
		return domain.ConfigError(fmt.Sprintf("render_dpi must be between 36 and 600, got %d", c.Processing.RenderDPI), nil)
	}
	switch strings.ToLower(c.PDF.PageSize) {
	case "a4", "letter":
	default:
		return domain.ConfigError(fmt.Sprintf("invalid pdf page_size: %s", c.PDF.PageSize), nil)
	}
	for name, dir := range map[string]string{"input": c.Folders.Input, "output": c.Folders.Output, "archive": c.Folders.Archive} {
		if strings.TrimSpace(dir) == "" {
			return domain.ConfigError(fmt.Sprintf("folders.%s is required", name), nil)
		}
	}
	return nil
}

// RequireAPIKey fails unless a usable API key is configured.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" || c.APIKey == apiKeyPlaceholder {
		return domain.ConfigError("OpenAI API key not configured. Please set OPENAI_API_KEY in your .env file or environment variables", nil)
	}
	return nil
}

// ResolvePath resolves a path relative to the project root.
func (c *Config) ResolvePath(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.projectRoot, p)
}

// InputDir returns the resolved watched directory.
func (c *Config) InputDir() string { return c.ResolvePath(c.Folders.Input) }

// OutputDir returns the resolved output directory.
func (c *Config) OutputDir() string { return c.ResolvePath(c.Folders.Output) }

// ArchiveDir returns the resolved archive directory.
func (c *Config) ArchiveDir() string { return c.ResolvePath(c.Folders.Archive) }

// LedgerPath returns the resolved history database path, or "" when disabled.
func (c *Config) LedgerPath() string {
	if strings.TrimSpace(c.Ledger.Path) == "" {
		return ""
	}
	return c.ResolvePath(c.Ledger.Path)
}

// Debounce returns the debounce window as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Processing.DebounceSeconds * float64(time.Second))
}

// PollInterval returns the foreground poll interval clamped to 150-300ms.
func (c *Config) PollInterval() time.Duration {
	d := c.Processing.PollInterval
	switch {
	case d < 150*time.Millisecond:
		return 150 * time.Millisecond
	case d > 300*time.Millisecond:
		return 300 * time.Millisecond
	}
	return d
}

// ProjectRoot returns the directory relative paths are resolved against.
func (c *Config) ProjectRoot() string { return c.projectRoot }

// Path returns the settings file path.
func (c *Config) Path() string { return c.path }

// EnsureFolders creates the input, output and archive directories.
func (c *Config) EnsureFolders() error {
	for _, dir := range []string{c.InputDir(), c.OutputDir(), c.ArchiveDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domain.FilesystemError("create folder "+dir, err)
		}
	}
	return nil
}

// SaveFolders writes updated folder paths back to the settings file.
func (c *Config) SaveFolders(input, output string) error {
	c.Folders.Input = input
	c.Folders.Output = output

	data, err := yaml.Marshal(c)
	if err != nil {
		return domain.ConfigError("encode settings", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return domain.FilesystemError("create config directory", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return domain.FilesystemError("write settings", err)
	}
	return nil
}

// Display returns the configuration without sensitive data.
func (c *Config) Display() string {
	key := "(not configured)"
	if c.RequireAPIKey() == nil {
		key = strings.Repeat("*", 8) + "..." + strings.Repeat("*", 4) + " (configured)"
	}
	return fmt.Sprintf(`Screenshot Wizard Configuration
==============================
Input Folder:     %s
Output Folder:    %s
Archive Folder:   %s
Polling Interval: %ds
Debounce:         %.1fs
Max Categories:   %d
Render DPI:       %d
OpenAI Model:     %s
API Key:          %s
`, c.InputDir(), c.OutputDir(), c.ArchiveDir(), c.Processing.PollingInterval,
		c.Processing.DebounceSeconds, c.Processing.MaxCategories, c.Processing.RenderDPI,
		c.OpenAI.Model, key)
}

// projectRootFor treats the parent of a "config" directory as the project root.
func projectRootFor(configPath string) string {
	dir := filepath.Dir(configPath)
	if filepath.Base(dir) == "config" {
		return filepath.Dir(dir)
	}
	return dir
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	cfg.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))

	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAI.Model = v
	}

	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAI.BaseURL = strings.TrimRight(v, "/")
	}

	if v := os.Getenv("SW_INPUT_DIR"); v != "" {
		cfg.Folders.Input = v
	}

	if v := os.Getenv("SW_OUTPUT_DIR"); v != "" {
		cfg.Folders.Output = v
	}

	if v := os.Getenv("SW_ARCHIVE_DIR"); v != "" {
		cfg.Folders.Archive = v
	}

	if v := os.Getenv("SW_MAX_CATEGORIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Processing.MaxCategories = n
		}
	}

	if v := os.Getenv("SW_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
