// Package config provides configuration loading for researchd.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Config is the root configuration for researchd, assembled once per
// process and passed down explicitly. Nothing below the CLI layer reads
// environment variables or other ambient state.
type Config struct {
	Run       RunConfig              `koanf:"run"`
	Stages    map[string]StageConfig `koanf:"stages"`
	LLM       LLMConfig              `koanf:"llm"`
	Search    SearchConfig           `koanf:"search"`
	GitHub    GitHubConfig           `koanf:"github"`
	Server    ServerConfig           `koanf:"server"`
	Logging   LoggingConfig          `koanf:"logging"`
	Telemetry TelemetryConfig        `koanf:"telemetry"`
}

// RunConfig holds pipeline thresholds and output locations.
type RunConfig struct {
	OutputDir             string  `koanf:"output_dir"`
	CheckpointDir         string  `koanf:"checkpoint_dir"`
	SchemaPath            string  `koanf:"schema_path"`
	FindingsThreshold     int     `koanf:"findings_threshold"`
	MinViabilityScore     float64 `koanf:"min_viability_score"`
	MaxPlanningIterations int     `koanf:"max_planning_iterations"`
	MaxRepairAttempts     int     `koanf:"max_repair_attempts"`
}

// StageConfig configures a single pipeline stage. Provider, model and
// tool selectors are passed through to the stage untouched by the
// orchestration core.
type StageConfig struct {
	Enabled     *bool    `koanf:"enabled"`
	Provider    string   `koanf:"provider"`
	Model       string   `koanf:"model"`
	Temperature *float64 `koanf:"temperature"`
	MaxTokens   int      `koanf:"max_tokens"`
	Tools       []string `koanf:"tools"`
}

// IsEnabled reports whether the stage is enabled. A stage with no
// explicit setting is enabled.
func (s StageConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// LLMConfig selects and configures LLM providers.
type LLMConfig struct {
	DefaultProvider string         `koanf:"default_provider"`
	OpenAI          ProviderConfig `koanf:"openai"`
	Anthropic       ProviderConfig `koanf:"anthropic"`
	Ollama          OllamaConfig   `koanf:"ollama"`
}

// ProviderConfig holds credentials and defaults for a hosted LLM provider.
type ProviderConfig struct {
	APIKey  Secret `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

// OllamaConfig holds settings for a local Ollama server.
type OllamaConfig struct {
	ServerURL string `koanf:"server_url"`
	Model     string `koanf:"model"`
}

// SearchConfig configures the web search collaborator.
type SearchConfig struct {
	TavilyAPIKey  Secret  `koanf:"tavily_api_key"`
	MaxResults    int     `koanf:"max_results"`
	RatePerSecond float64 `koanf:"rate_per_second"`
	Burst         int     `koanf:"burst"`
}

// GitHubConfig configures prior-art search and issue publishing.
type GitHubConfig struct {
	Token     Secret `koanf:"token"`
	IssueRepo string `koanf:"issue_repo"` // "owner/repo" target for the publish stage
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds the user-facing logging knobs. The logging
// package derives its full configuration from these.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	OTEL   bool   `koanf:"otel"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled        bool     `koanf:"enabled"`
	Endpoint       string   `koanf:"endpoint"`
	ServiceName    string   `koanf:"service_name"`
	Insecure       bool     `koanf:"insecure"`
	ExportInterval Duration `koanf:"export_interval"`
}

// LoadWithFile loads configuration from a YAML file, then overrides
// with environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (RUN_OUTPUT_DIR, LLM_DEFAULT_PROVIDER, ...)
//  2. YAML config file (~/.config/researchd/config.yaml)
//  3. Hardcoded defaults
//
// The configPath parameter specifies the YAML file to load. If empty,
// the default path is used.
//
// Config files must be owner-readable only (0600 or 0400), must live in
// ~/.config/researchd/ or /etc/researchd/, and may not exceed 1MB. The
// file check happens on the opened descriptor to avoid a TOCTOU race.
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "researchd", "config.yaml")
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if err := validateConfigFileProperties(info); err != nil {
			return nil, fmt.Errorf("config file validation failed: %w", err)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Environment variables use underscore separator and are uppercased.
	// Example: RUN_OUTPUT_DIR -> run.output_dir
	if err := k.Load(env.Provider("", ".", envTransformer), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Load returns a configuration built from defaults and environment
// variables only, without touching the filesystem. Used by tests and by
// callers that manage their own config file handling.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", envTransformer), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envTransformer maps SECTION_FIELD_NAME env vars to section.field_name
// koanf keys. Splits on the first underscore only; field names keep
// their underscores.
func envTransformer(s string) string {
	lower := strings.ToLower(s)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// EnsureConfigDir creates the researchd config directory if it doesn't
// exist, with 0700 permissions.
func EnsureConfigDir() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	configDir := filepath.Join(home, ".config", "researchd")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}
	return nil
}

// validateConfigPath checks if path is in allowed directories. Runs
// even if the file doesn't exist yet.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	// Follow symlinks so one cannot escape the allowed directories.
	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		// Paths that don't exist yet still validate against absPath.
		resolvedPath = absPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	allowedDirs := []string{
		filepath.Join(home, ".config", "researchd"),
		"/etc/researchd",
	}

	for _, dir := range allowedDirs {
		if strings.HasPrefix(resolvedPath, dir) {
			return nil
		}
	}
	return fmt.Errorf("config file must be in ~/.config/researchd/ or /etc/researchd/")
}

// validateConfigFileProperties checks file permissions and size using
// FileInfo from an already-opened descriptor.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Run.OutputDir == "" {
		cfg.Run.OutputDir = "proposals"
	}
	if cfg.Run.CheckpointDir == "" {
		cfg.Run.CheckpointDir = filepath.Join(cfg.Run.OutputDir, ".checkpoints")
	}
	if cfg.Run.SchemaPath == "" {
		cfg.Run.SchemaPath = "schema/proposal-schema.json"
	}
	if cfg.Run.FindingsThreshold == 0 {
		cfg.Run.FindingsThreshold = 3
	}
	if cfg.Run.MinViabilityScore == 0 {
		cfg.Run.MinViabilityScore = 51
	}
	if cfg.Run.MaxPlanningIterations == 0 {
		cfg.Run.MaxPlanningIterations = 3
	}
	if cfg.Run.MaxRepairAttempts == 0 {
		cfg.Run.MaxRepairAttempts = 3
	}

	if cfg.LLM.DefaultProvider == "" {
		cfg.LLM.DefaultProvider = "openai"
	}
	if cfg.LLM.OpenAI.Model == "" {
		cfg.LLM.OpenAI.Model = "gpt-4o"
	}
	if cfg.LLM.Anthropic.Model == "" {
		cfg.LLM.Anthropic.Model = "claude-sonnet-4-5-20250929"
	}
	if cfg.LLM.Ollama.ServerURL == "" {
		cfg.LLM.Ollama.ServerURL = "http://localhost:11434"
	}
	if cfg.LLM.Ollama.Model == "" {
		cfg.LLM.Ollama.Model = "llama3"
	}

	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 5
	}
	if cfg.Search.RatePerSecond == 0 {
		cfg.Search.RatePerSecond = 1
	}
	if cfg.Search.Burst == 0 {
		cfg.Search.Burst = 3
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9292
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "researchd"
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = Duration(60 * time.Second)
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Run.FindingsThreshold < 1 {
		return fmt.Errorf("run.findings_threshold must be >= 1, got %d", c.Run.FindingsThreshold)
	}
	if c.Run.MinViabilityScore < 0 || c.Run.MinViabilityScore > 100 {
		return fmt.Errorf("run.min_viability_score must be in [0,100], got %v", c.Run.MinViabilityScore)
	}
	if c.Run.MaxPlanningIterations < 1 {
		return fmt.Errorf("run.max_planning_iterations must be >= 1, got %d", c.Run.MaxPlanningIterations)
	}
	if c.Run.MaxRepairAttempts < 1 {
		return fmt.Errorf("run.max_repair_attempts must be >= 1, got %d", c.Run.MaxRepairAttempts)
	}
	switch c.LLM.DefaultProvider {
	case "openai", "anthropic", "ollama":
	default:
		return fmt.Errorf("llm.default_provider must be one of openai, anthropic, ollama; got %q", c.LLM.DefaultProvider)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1,65535], got %d", c.Server.Port)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	return nil
}

// Stage returns the configuration for the named stage, zero-valued
// (enabled, no overrides) when the stage has no explicit entry.
func (c *Config) Stage(name string) StageConfig {
	if c.Stages == nil {
		return StageConfig{}
	}
	return c.Stages[name]
}
