package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8087, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "insightd", cfg.Telemetry.ServiceName)
	assert.False(t, cfg.Storage.Enabled)
	assert.Equal(t, 5*time.Minute, time.Duration(cfg.Storage.SnapshotInterval))

	assert.Equal(t, 3, cfg.Engine.MinOccurrences)
	assert.InDelta(t, 0.6, cfg.Engine.MinConfidence, 1e-9)
	assert.Equal(t, 90, cfg.Engine.TimeWindowDays)
	assert.Equal(t, 10, cfg.Engine.MaxCorpusMeetings)
	assert.Equal(t, 1000, cfg.Engine.SeriesCapacity)
	assert.Equal(t, 10, cfg.Engine.ForecastMinPoints)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"port too low", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"storage without data dir", func(c *Config) { c.Storage.Enabled = true }, "storage.data_dir"},
		{"min occurrences zero", func(c *Config) { c.Engine.MinOccurrences = 0 }, "min_occurrences"},
		{"confidence above one", func(c *Config) { c.Engine.MinConfidence = 1.5 }, "min_confidence"},
		{"series capacity tiny", func(c *Config) { c.Engine.SeriesCapacity = 5 }, "series_capacity"},
		{"z threshold negative", func(c *Config) { c.Engine.AnomalyZThreshold = -1 }, "anomaly_z_threshold"},
		{"forecast min points too low", func(c *Config) { c.Engine.ForecastMinPoints = 2 }, "forecast_min_points"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("no file returns defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 8087, cfg.Server.Port)
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("yaml file overrides defaults", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: 9000
engine:
  min_occurrences: 5
  time_window_days: 30
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, 5, cfg.Engine.MinOccurrences)
		assert.Equal(t, 30, cfg.Engine.TimeWindowDays)
		// Untouched fields keep their defaults.
		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.InDelta(t, 0.6, cfg.Engine.MinConfidence, 1e-9)
	})

	t.Run("environment beats file", func(t *testing.T) {
		path := writeConfig(t, "server:\n  port: 9000\n")
		t.Setenv("INSIGHTD_SERVER_PORT", "9100")
		t.Setenv("INSIGHTD_ENGINE_MIN_OCCURRENCES", "4")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 9100, cfg.Server.Port)
		assert.Equal(t, 4, cfg.Engine.MinOccurrences)
	})

	t.Run("invalid yaml is an error", func(t *testing.T) {
		path := writeConfig(t, "server: [not a map")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("invalid thresholds fail validation", func(t *testing.T) {
		path := writeConfig(t, "engine:\n  min_confidence: 2.0\n")
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

func TestDurationUnmarshal(t *testing.T) {
	path := writeConfig(t, "storage:\n  snapshot_interval: 90s\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, time.Duration(cfg.Storage.SnapshotInterval))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
