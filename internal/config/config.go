// Package config provides configuration loading for insightd.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the insightd daemon.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Engine    EngineConfig    `koanf:"engine"`
	Storage   StorageConfig   `koanf:"storage"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
	Endpoint    string `koanf:"endpoint"`
	Insecure    bool   `koanf:"insecure"`
}

// StorageConfig holds snapshot persistence settings.
type StorageConfig struct {
	Enabled          bool     `koanf:"enabled"`
	DataDir          string   `koanf:"data_dir"`
	SnapshotInterval Duration `koanf:"snapshot_interval"`
}

// EngineConfig holds the pattern engine thresholds.
//
// The numeric defaults are tuned heuristics, not physically meaningful
// constants. They are exposed here so deployments can adjust qualitative
// behavior without a rebuild.
type EngineConfig struct {
	// MinOccurrences is the minimum cluster size required before a cluster
	// becomes (or extends) a detected pattern.
	MinOccurrences int `koanf:"min_occurrences"`

	// MinConfidence is the minimum confidence for creating a new pattern.
	MinConfidence float64 `koanf:"min_confidence"`

	// TimeWindowDays bounds the signal corpus used for clustering.
	TimeWindowDays int `koanf:"time_window_days"`

	// MaxCorpusMeetings bounds the signal corpus by meeting count.
	MaxCorpusMeetings int `koanf:"max_corpus_meetings"`

	// SeriesCapacity is the per-variable bound of the time-series store.
	SeriesCapacity int `koanf:"series_capacity"`

	// TrendWindow is the sub-window length for trend classification.
	TrendWindow Duration `koanf:"trend_window"`

	// RecencyWindow weights recent pattern instances higher in confidence.
	RecencyWindow Duration `koanf:"recency_window"`

	// SuccessThreshold marks a meeting as successful for best-practice mining.
	SuccessThreshold float64 `koanf:"success_threshold"`

	// MinSupportingMeetings is the meeting count required for a best practice.
	MinSupportingMeetings int `koanf:"min_supporting_meetings"`

	// SevereIndicatorThreshold is the fatigue score below which an indicator
	// is considered severe.
	SevereIndicatorThreshold float64 `koanf:"severe_indicator_threshold"`

	// ChronicWindow is how long a score must stay severe before the
	// indicator escalates to critical and is marked chronic.
	ChronicWindow Duration `koanf:"chronic_window"`

	// AnomalyZThreshold is the z-score magnitude that flags a point.
	AnomalyZThreshold float64 `koanf:"anomaly_z_threshold"`

	// AnomalyWindowDays is the default trailing window for anomaly scans.
	AnomalyWindowDays int `koanf:"anomaly_window_days"`

	// ForecastMinPoints is the series length required before forecasting.
	ForecastMinPoints int `koanf:"forecast_min_points"`

	// MaxClusterIterations bounds the k-means iteration budget.
	MaxClusterIterations int `koanf:"max_cluster_iterations"`

	// MaxVectorDimensions caps the vectorizer vocabulary.
	MaxVectorDimensions int `koanf:"max_vector_dimensions"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8087,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			ServiceName: "insightd",
			Endpoint:    "localhost:4317",
			Insecure:    true,
		},
		Storage: StorageConfig{
			Enabled:          false,
			DataDir:          "",
			SnapshotInterval: Duration(5 * time.Minute),
		},
		Engine: DefaultEngine(),
	}
}

// DefaultEngine returns the engine threshold defaults.
func DefaultEngine() EngineConfig {
	return EngineConfig{
		MinOccurrences:           3,
		MinConfidence:            0.6,
		TimeWindowDays:           90,
		MaxCorpusMeetings:        10,
		SeriesCapacity:           1000,
		TrendWindow:              Duration(30 * 24 * time.Hour),
		RecencyWindow:            Duration(30 * 24 * time.Hour),
		SuccessThreshold:         0.7,
		MinSupportingMeetings:    3,
		SevereIndicatorThreshold: 0.2,
		ChronicWindow:            Duration(30 * 24 * time.Hour),
		AnomalyZThreshold:        2.0,
		AnomalyWindowDays:        30,
		ForecastMinPoints:        10,
		MaxClusterIterations:     20,
		MaxVectorDimensions:      1000,
	}
}

// Validate checks the configuration for invalid values.
//
// A validation failure here is fatal at startup: the daemon refuses to run
// with thresholds that would make engine behavior undefined.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	if c.Storage.Enabled && c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required when storage is enabled")
	}
	return c.Engine.Validate()
}

// Validate checks engine thresholds.
func (e *EngineConfig) Validate() error {
	if e.MinOccurrences < 1 {
		return fmt.Errorf("engine.min_occurrences must be >= 1, got %d", e.MinOccurrences)
	}
	if e.MinConfidence < 0 || e.MinConfidence > 1 {
		return fmt.Errorf("engine.min_confidence must be in [0,1], got %g", e.MinConfidence)
	}
	if e.TimeWindowDays < 1 {
		return fmt.Errorf("engine.time_window_days must be >= 1, got %d", e.TimeWindowDays)
	}
	if e.SeriesCapacity < 10 {
		return fmt.Errorf("engine.series_capacity must be >= 10, got %d", e.SeriesCapacity)
	}
	if e.SuccessThreshold < 0 || e.SuccessThreshold > 1 {
		return fmt.Errorf("engine.success_threshold must be in [0,1], got %g", e.SuccessThreshold)
	}
	if e.SevereIndicatorThreshold < 0 || e.SevereIndicatorThreshold > 1 {
		return fmt.Errorf("engine.severe_indicator_threshold must be in [0,1], got %g", e.SevereIndicatorThreshold)
	}
	if e.AnomalyZThreshold <= 0 {
		return fmt.Errorf("engine.anomaly_z_threshold must be > 0, got %g", e.AnomalyZThreshold)
	}
	if e.ForecastMinPoints < 3 {
		return fmt.Errorf("engine.forecast_min_points must be >= 3, got %d", e.ForecastMinPoints)
	}
	if e.MaxClusterIterations < 1 {
		return fmt.Errorf("engine.max_cluster_iterations must be >= 1, got %d", e.MaxClusterIterations)
	}
	if e.MaxVectorDimensions < 10 {
		return fmt.Errorf("engine.max_vector_dimensions must be >= 10, got %d", e.MaxVectorDimensions)
	}
	return nil
}
