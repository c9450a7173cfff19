// Package config provides YAML-based configuration for codegnosis.
package config

import (
	"errors"
	"log/slog"

	"github.com/Sumatoshi-tech/codegnosis/internal/observability"
)

// Config is the top-level configuration struct for codegnosis.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Analyzer    AnalyzerConfig    `mapstructure:"analyzer"`
	Store       StoreConfig       `mapstructure:"store"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
}

// AnalyzerConfig holds settings for the external analyzer process.
type AnalyzerConfig struct {
	Path           string   `mapstructure:"path"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	Extensions     []string `mapstructure:"extensions"`
	Excluded       []string `mapstructure:"excluded"`
	Theme          string   `mapstructure:"theme"`
}

// StoreConfig holds SQLite persistence settings.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// TelemetryConfig holds tracing, metrics, and logging settings.
type TelemetryConfig struct {
	Environment  string  `mapstructure:"environment"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	DebugTrace   bool    `mapstructure:"debug_trace"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	LogLevel     string  `mapstructure:"log_level"`
	LogJSON      bool    `mapstructure:"log_json"`
}

// DiagnosticsConfig holds the optional diagnostics HTTP server settings.
type DiagnosticsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Analyzer defaults.
const (
	DefaultAnalyzerPath           = "codegnosis-analyzer"
	DefaultAnalyzerTimeoutSeconds = 240
	DefaultAnalyzerTheme          = "dark"
)

// Store defaults.
const (
	DefaultStorePath = "codegnosis.db"
)

// Telemetry defaults.
const (
	DefaultTelemetryLogLevel = "info"
)

// Diagnostics defaults.
const (
	DefaultDiagnosticsAddr = "127.0.0.1:9464"
)

// Sentinel errors for configuration validation.
var (
	// ErrMissingAnalyzerPath indicates the analyzer binary path is empty.
	ErrMissingAnalyzerPath = errors.New("analyzer.path must be set")
	// ErrInvalidTimeout indicates the analyzer timeout is not positive.
	ErrInvalidTimeout = errors.New("analyzer.timeout_seconds must be positive")
	// ErrMissingStorePath indicates the store database path is empty.
	ErrMissingStorePath = errors.New("store.path must be set")
	// ErrInvalidSampleRatio indicates the trace sample ratio is out of range.
	ErrInvalidSampleRatio = errors.New("telemetry.sample_ratio must be between 0 and 1")
	// ErrInvalidLogLevel indicates the log level is not a recognized severity.
	ErrInvalidLogLevel = errors.New("telemetry.log_level must be one of debug, info, warn, error")
	// ErrMissingDiagnosticsAddr indicates diagnostics are enabled without an address.
	ErrMissingDiagnosticsAddr = errors.New("diagnostics.addr must be set when diagnostics are enabled")
)

// logLevels maps config log level names to slog severities.
var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Analyzer.Path == "" {
		return ErrMissingAnalyzerPath
	}

	if c.Analyzer.TimeoutSeconds <= 0 {
		return ErrInvalidTimeout
	}

	if c.Store.Path == "" {
		return ErrMissingStorePath
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return ErrInvalidSampleRatio
	}

	_, known := logLevels[c.Telemetry.LogLevel]
	if !known {
		return ErrInvalidLogLevel
	}

	if c.Diagnostics.Enabled && c.Diagnostics.Addr == "" {
		return ErrMissingDiagnosticsAddr
	}

	return nil
}

// Observability maps telemetry settings onto an observability.Config.
// Service name and version come from build metadata, not the config file,
// so the caller supplies the version.
func (c *Config) Observability(serviceVersion string) observability.Config {
	obs := observability.DefaultConfig()

	obs.ServiceVersion = serviceVersion
	obs.Environment = c.Telemetry.Environment
	obs.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	obs.OTLPInsecure = c.Telemetry.OTLPInsecure
	obs.DebugTrace = c.Telemetry.DebugTrace
	obs.SampleRatio = c.Telemetry.SampleRatio
	obs.LogJSON = c.Telemetry.LogJSON

	level, known := logLevels[c.Telemetry.LogLevel]
	if known {
		obs.LogLevel = level
	}

	return obs
}
