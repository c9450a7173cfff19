package config_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codegnosis/internal/config"
)

func validConfig() config.Config {
	return config.Config{
		Analyzer: config.AnalyzerConfig{
			Path:           "codegnosis-analyzer",
			TimeoutSeconds: 240,
			Extensions:     []string{"go", "py"},
			Theme:          "dark",
		},
		Store: config.StoreConfig{
			Path: "codegnosis.db",
		},
		Telemetry: config.TelemetryConfig{
			SampleRatio: 0.5,
			LogLevel:    "info",
		},
	}
}

func TestValidate_ValidConfig_NoError(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_MissingAnalyzerPath_ReturnsError(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Analyzer.Path = ""

	err := cfg.Validate()
	assert.ErrorIs(t, err, config.ErrMissingAnalyzerPath)
}

func TestValidate_InvalidTimeout_ReturnsError(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Analyzer.TimeoutSeconds = 0

	err := cfg.Validate()
	assert.ErrorIs(t, err, config.ErrInvalidTimeout)
}

func TestValidate_MissingStorePath_ReturnsError(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Store.Path = ""

	err := cfg.Validate()
	assert.ErrorIs(t, err, config.ErrMissingStorePath)
}

func TestValidate_InvalidSampleRatio_Negative_ReturnsError(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Telemetry.SampleRatio = -0.1

	err := cfg.Validate()
	assert.ErrorIs(t, err, config.ErrInvalidSampleRatio)
}

func TestValidate_InvalidSampleRatio_TooHigh_ReturnsError(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Telemetry.SampleRatio = 1.1

	err := cfg.Validate()
	assert.ErrorIs(t, err, config.ErrInvalidSampleRatio)
}

func TestValidate_InvalidLogLevel_ReturnsError(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Telemetry.LogLevel = "verbose"

	err := cfg.Validate()
	assert.ErrorIs(t, err, config.ErrInvalidLogLevel)
}

func TestValidate_DiagnosticsEnabledWithoutAddr_ReturnsError(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Diagnostics.Enabled = true
	cfg.Diagnostics.Addr = ""

	err := cfg.Validate()
	assert.ErrorIs(t, err, config.ErrMissingDiagnosticsAddr)
}

func TestObservability_MapsTelemetryFields(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Telemetry.Environment = "staging"
	cfg.Telemetry.OTLPEndpoint = "localhost:4317"
	cfg.Telemetry.OTLPInsecure = true
	cfg.Telemetry.DebugTrace = true
	cfg.Telemetry.LogLevel = "warn"
	cfg.Telemetry.LogJSON = true

	obs := cfg.Observability("1.2.3")

	assert.Equal(t, "codegnosis", obs.ServiceName)
	assert.Equal(t, "1.2.3", obs.ServiceVersion)
	assert.Equal(t, "staging", obs.Environment)
	assert.Equal(t, "localhost:4317", obs.OTLPEndpoint)
	assert.True(t, obs.OTLPInsecure)
	assert.True(t, obs.DebugTrace)
	assert.InDelta(t, 0.5, obs.SampleRatio, 0.001)
	assert.Equal(t, slog.LevelWarn, obs.LogLevel)
	assert.True(t, obs.LogJSON)
}

func TestObservability_UnknownLogLevel_KeepsDefault(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Telemetry.LogLevel = "nonsense"

	obs := cfg.Observability("dev")

	assert.Equal(t, slog.LevelInfo, obs.LogLevel)
}
