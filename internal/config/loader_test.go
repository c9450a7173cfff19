package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codegnosis/internal/config"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, "empty.yaml", "")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, config.DefaultAnalyzerPath, cfg.Analyzer.Path)
	assert.Equal(t, config.DefaultAnalyzerTimeoutSeconds, cfg.Analyzer.TimeoutSeconds)
	assert.Empty(t, cfg.Analyzer.Extensions)
	assert.Empty(t, cfg.Analyzer.Excluded)
	assert.Equal(t, config.DefaultAnalyzerTheme, cfg.Analyzer.Theme)
	assert.Equal(t, config.DefaultStorePath, cfg.Store.Path)
	assert.Equal(t, config.DefaultTelemetryLogLevel, cfg.Telemetry.LogLevel)
	assert.False(t, cfg.Diagnostics.Enabled)
	assert.Equal(t, config.DefaultDiagnosticsAddr, cfg.Diagnostics.Addr)
}

func TestLoadConfig_ValidFile_Unmarshals(t *testing.T) {
	t.Parallel()

	content := `analyzer:
  path: /usr/local/bin/codegnosis-analyzer
  timeout_seconds: 600
  extensions:
    - go
    - py
  excluded:
    - vendor
    - node_modules
  theme: light
store:
  path: /var/lib/codegnosis/projects.db
telemetry:
  environment: production
  otlp_endpoint: collector:4317
  otlp_insecure: true
  debug_trace: true
  sample_ratio: 0.25
  log_level: debug
  log_json: true
diagnostics:
  enabled: true
  addr: 127.0.0.1:9999
`
	path := writeConfigFile(t, ".codegnosis.yaml", content)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	expectedTimeout := 600

	assert.Equal(t, "/usr/local/bin/codegnosis-analyzer", cfg.Analyzer.Path)
	assert.Equal(t, expectedTimeout, cfg.Analyzer.TimeoutSeconds)
	assert.Equal(t, []string{"go", "py"}, cfg.Analyzer.Extensions)
	assert.Equal(t, []string{"vendor", "node_modules"}, cfg.Analyzer.Excluded)
	assert.Equal(t, "light", cfg.Analyzer.Theme)

	assert.Equal(t, "/var/lib/codegnosis/projects.db", cfg.Store.Path)

	assert.Equal(t, "production", cfg.Telemetry.Environment)
	assert.Equal(t, "collector:4317", cfg.Telemetry.OTLPEndpoint)
	assert.True(t, cfg.Telemetry.OTLPInsecure)
	assert.True(t, cfg.Telemetry.DebugTrace)
	assert.InDelta(t, 0.25, cfg.Telemetry.SampleRatio, 0.001)
	assert.Equal(t, "debug", cfg.Telemetry.LogLevel)
	assert.True(t, cfg.Telemetry.LogJSON)

	assert.True(t, cfg.Diagnostics.Enabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.Diagnostics.Addr)
}

func TestLoadConfig_PartialConfig_MergesDefaults(t *testing.T) {
	t.Parallel()

	content := `analyzer:
  timeout_seconds: 60
`
	path := writeConfigFile(t, ".codegnosis.yaml", content)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	expectedTimeout := 60

	assert.Equal(t, expectedTimeout, cfg.Analyzer.TimeoutSeconds)
	assert.Equal(t, config.DefaultAnalyzerPath, cfg.Analyzer.Path)
	assert.Equal(t, config.DefaultStorePath, cfg.Store.Path)
}

func TestLoadConfig_MalformedYAML_ReturnsError(t *testing.T) {
	t.Parallel()

	content := `analyzer:
  path: [invalid yaml
`
	path := writeConfigFile(t, "bad.yaml", content)

	cfg, err := config.LoadConfig(path)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadConfig_InvalidValues_ReturnsValidationError(t *testing.T) {
	t.Parallel()

	content := `analyzer:
  timeout_seconds: -5
`
	path := writeConfigFile(t, ".codegnosis.yaml", content)

	cfg, err := config.LoadConfig(path)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, config.ErrInvalidTimeout)
}

func TestLoadConfig_UnknownKeys_NoError(t *testing.T) {
	t.Parallel()

	content := `unknown_section:
  unknown_key: "value"
analyzer:
  theme: light
`
	path := writeConfigFile(t, ".codegnosis.yaml", content)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "light", cfg.Analyzer.Theme)
}

func TestLoadConfig_EnvOverride_AnalyzerTimeout(t *testing.T) {
	path := writeConfigFile(t, "empty.yaml", "")

	t.Setenv("CODEGNOSIS_ANALYZER_TIMEOUT_SECONDS", "90")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	expectedTimeout := 90

	assert.Equal(t, expectedTimeout, cfg.Analyzer.TimeoutSeconds)
}

func TestLoadConfig_EnvOverride_StorePath(t *testing.T) {
	path := writeConfigFile(t, "empty.yaml", "")

	t.Setenv("CODEGNOSIS_STORE_PATH", "/tmp/override.db")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.Store.Path)
}

func TestLoadConfig_ExplicitPath_NotFound_ReturnsError(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Nil(t, cfg)
}
