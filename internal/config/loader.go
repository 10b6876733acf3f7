package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// envPrefix namespaces insightd environment variables.
	envPrefix = "INSIGHTD_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Load builds configuration from defaults, an optional YAML file, and
// environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (INSIGHTD_SERVER_PORT, INSIGHTD_ENGINE_MIN_OCCURRENCES, ...)
//  2. YAML config file
//  3. Defaults
//
// If configPath is empty, no file is loaded. A missing file at an explicit
// path is an error; invalid thresholds fail Validate and are fatal.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	cfg := Default()

	if configPath != "" {
		data, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
		}
	}

	// Environment overrides: INSIGHTD_ENGINE_MIN_CONFIDENCE -> engine.min_confidence.
	// Section names never contain underscores, so only the first underscore
	// becomes a dot.
	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// envTransform maps INSIGHTD_SECTION_FIELD_NAME to section.field_name.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// readConfigFile reads a config file with a size guard.
func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return data, nil
}
