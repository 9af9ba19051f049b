package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input   string
		want    zapcore.Level
		wantErr bool
	}{
		{"trace", TraceLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := LevelFromString(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Format = "xml"
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Output.Stdout = false
	cfg.Output.OTEL = false
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Fields = map[string]string{"": "value"}
	assert.Error(t, cfg.Validate())
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(NewDefaultConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Enabled(zapcore.DebugLevel))

	_, err = NewLogger(&Config{Format: "bogus"}, nil)
	assert.Error(t, err)
}

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ContextFields(ctx))

	ctx = WithRunID(ctx, "run-abc123")
	ctx = WithStage(ctx, "criticism")
	ctx = WithRequestID(ctx, "req-1")

	fields := ContextFields(ctx)
	keys := make(map[string]string, len(fields))
	for _, f := range fields {
		keys[f.Key] = f.String
	}
	assert.Equal(t, "run-abc123", keys["run.id"])
	assert.Equal(t, "criticism", keys["run.stage"])
	assert.Equal(t, "req-1", keys["request.id"])
}

func TestWithRunIDValidation(t *testing.T) {
	assert.Panics(t, func() { WithRunID(context.Background(), "") })
	assert.Panics(t, func() { WithRunID(context.Background(), "bad id with spaces") })
	assert.NotPanics(t, func() { WithRunID(context.Background(), "run_01-ok") })
}

func TestFromContextDefaultsToNop(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	// Must not panic when used.
	logger.Info(context.Background(), "ignored")
}

func TestWithLoggerRoundTrip(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	assert.Same(t, tl.Logger, FromContext(ctx))
}

func TestTestLoggerObservation(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithRunID(context.Background(), "run-1")

	tl.Info(ctx, "stage complete", zap.String("stage", "plan"))
	tl.Warn(ctx, "search degraded")

	tl.AssertLogged(t, zapcore.InfoLevel, "stage complete")
	tl.AssertLogged(t, zapcore.WarnLevel, "search degraded")
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "stage complete")
	tl.AssertField(t, "stage complete", "stage", "plan")
	tl.AssertField(t, "stage complete", "run.id", "run-1")

	tl.Reset()
	assert.Empty(t, tl.All())
}

func TestTraceLevelGating(t *testing.T) {
	tl := NewTestLogger()
	tl.Trace(context.Background(), "prompt payload")
	tl.AssertLogged(t, TraceLevel, "prompt payload")
}

func TestNamedAndWith(t *testing.T) {
	tl := NewTestLogger()
	child := tl.Logger.Named("pipeline").With(zap.String("run.id", "run-2"))
	child.Info(context.Background(), "routing")

	entries := tl.FilterMessage("routing").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "pipeline", entries[0].LoggerName)
}
