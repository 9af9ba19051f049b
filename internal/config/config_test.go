package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "proposals", cfg.Run.OutputDir)
	assert.Equal(t, 3, cfg.Run.FindingsThreshold)
	assert.Equal(t, float64(51), cfg.Run.MinViabilityScore)
	assert.Equal(t, 3, cfg.Run.MaxPlanningIterations)
	assert.Equal(t, 3, cfg.Run.MaxRepairAttempts)
	assert.Equal(t, "openai", cfg.LLM.DefaultProvider)
	assert.Equal(t, 9292, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "researchd", cfg.Telemetry.ServiceName)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero findings threshold rejected",
			mutate:  func(c *Config) { c.Run.FindingsThreshold = -1 },
			wantErr: "findings_threshold",
		},
		{
			name:    "score above 100 rejected",
			mutate:  func(c *Config) { c.Run.MinViabilityScore = 150 },
			wantErr: "min_viability_score",
		},
		{
			name:    "unknown provider rejected",
			mutate:  func(c *Config) { c.LLM.DefaultProvider = "bedrock" },
			wantErr: "default_provider",
		},
		{
			name:    "bad log format rejected",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name:    "bad port rejected",
			mutate:  func(c *Config) { c.Server.Port = 99999 },
			wantErr: "server.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			applyDefaults(cfg)
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

func TestEnvTransformer(t *testing.T) {
	assert.Equal(t, "run.output_dir", envTransformer("RUN_OUTPUT_DIR"))
	assert.Equal(t, "llm.default_provider", envTransformer("LLM_DEFAULT_PROVIDER"))
	assert.Equal(t, "run.max_planning_iterations", envTransformer("RUN_MAX_PLANNING_ITERATIONS"))
	assert.Equal(t, "path", envTransformer("PATH"))
}

func TestStageConfigIsEnabled(t *testing.T) {
	var s StageConfig
	assert.True(t, s.IsEnabled(), "unset stage defaults to enabled")

	off := false
	s.Enabled = &off
	assert.False(t, s.IsEnabled())

	on := true
	s.Enabled = &on
	assert.True(t, s.IsEnabled())
}

func TestStageLookup(t *testing.T) {
	off := false
	cfg := &Config{
		Stages: map[string]StageConfig{
			"criticism": {Enabled: &off, Provider: "anthropic"},
		},
	}

	assert.False(t, cfg.Stage("criticism").IsEnabled())
	assert.Equal(t, "anthropic", cfg.Stage("criticism").Provider)
	assert.True(t, cfg.Stage("plan").IsEnabled(), "unknown stage is enabled with no overrides")

	var empty Config
	assert.True(t, empty.Stage("plan").IsEnabled())
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("tvly-abc123")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "tvly-abc123", s.Value())
	assert.True(t, s.IsSet())

	data, err := json.Marshal(struct {
		Key Secret `json:"key"`
	}{Key: s})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "tvly-abc123")
	assert.Contains(t, string(data), "[REDACTED]")

	var empty Secret
	assert.Equal(t, "", empty.String())
	assert.False(t, empty.IsSet())
}

func TestDurationUnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-5s")), "negative durations rejected")
	assert.Error(t, d.UnmarshalText([]byte("bogus")))
}
