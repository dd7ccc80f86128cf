// Package config manages configuration for the Smart Farm Dashboard.
//
// Handles loading config from a YAML file and environment variables,
// and provides default values for all settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Configuration struct
// =============================================================================

// Config holds all runtime configuration values.
type Config struct {
	// Logging
	LogLevel       string
	LogFormat      string // "text" or "json"
	LogFile        string
	LogMaxBytes    int
	LogBackupCount int
	LogToStdout    bool

	// Server
	BaseURL           string
	RequestTimeoutSec float64

	// Polling
	SensorIntervalMS      int
	LatestImageIntervalMS int

	// Camera
	SaveDir string

	// Window
	WindowWidth  int
	WindowHeight int
	Fullscreen   bool
}

// =============================================================================
// Defaults
// =============================================================================

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		// Logging
		LogLevel:       "info",
		LogFormat:      "text",
		LogFile:        "./logs/farm_dashboard.log",
		LogMaxBytes:    5 * 1024 * 1024, // 5 MB
		LogBackupCount: 3,
		LogToStdout:    true,

		// Server
		BaseURL:           "http://localhost:15020",
		RequestTimeoutSec: 10.0,

		// Polling
		SensorIntervalMS:      2000,
		LatestImageIntervalMS: 30000,

		// Camera
		SaveDir: ".",

		// Window
		WindowWidth:  1024,
		WindowHeight: 640,
		Fullscreen:   false,
	}
}

// =============================================================================
// File layout
// =============================================================================

// fileConfig mirrors the YAML file. Pointers tell a missing key apart from a
// zero value so missing keys keep their defaults.
type fileConfig struct {
	Logging *struct {
		Level       *string `yaml:"level"`
		Format      *string `yaml:"format"`
		File        *string `yaml:"file"`
		MaxBytes    *int    `yaml:"max_bytes"`
		BackupCount *int    `yaml:"backup_count"`
		Stdout      *bool   `yaml:"stdout"`
	} `yaml:"logging"`

	Server *struct {
		BaseURL           *string  `yaml:"base_url"`
		RequestTimeoutSec *float64 `yaml:"request_timeout_sec"`
	} `yaml:"server"`

	Polling *struct {
		SensorIntervalMS      *int `yaml:"sensor_interval_ms"`
		LatestImageIntervalMS *int `yaml:"latest_image_interval_ms"`
	} `yaml:"polling"`

	Camera *struct {
		SaveDir *string `yaml:"save_dir"`
	} `yaml:"camera"`

	Window *struct {
		Width      *int  `yaml:"width"`
		Height     *int  `yaml:"height"`
		Fullscreen *bool `yaml:"fullscreen"`
	} `yaml:"window"`
}

// =============================================================================
// Clamping + parsing helpers
// =============================================================================

// clampInt bounds v. Pass nil for unbounded.
func clampInt(v int, minVal, maxVal *int) int {
	if minVal != nil && v < *minVal {
		v = *minVal
	}
	if maxVal != nil && v > *maxVal {
		v = *maxVal
	}
	return v
}

// clampFloat bounds v. Pass nil for unbounded.
func clampFloat(v float64, minVal, maxVal *float64) float64 {
	if minVal != nil && v < *minVal {
		v = *minVal
	}
	if maxVal != nil && v > *maxVal {
		v = *maxVal
	}
	return v
}

// asBool parses a string as boolean. Truthy: "1","true","yes","on".
// Falsy: "0","false","no","off". Returns fallback on empty/unrecognised.
func asBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// asInt parses a string as int with optional clamping. Returns fallback on
// parse error.
func asInt(value string, fallback int, minVal, maxVal *int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return clampInt(parsed, minVal, maxVal)
}

// Helper functions to create pointers for min/max bounds
func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// =============================================================================
// Load + Apply
// =============================================================================

// ConfigPath returns the YAML file path to use, respecting env vars.
func ConfigPath() string {
	if p := os.Getenv("FARM_DASHBOARD_CONFIG"); p != "" {
		return p
	}
	return "./farm_dashboard.yaml"
}

// Load reads the YAML file at the given path (or the default/env path)
// and returns a fully populated Config. Missing sections or keys
// fall back to DefaultConfig() values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// No file is not an error
	case err != nil:
		return cfg, fmt.Errorf("config: failed to read %s: %w", path, err)
	default:
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			applyEnv(cfg)
			return cfg, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
		applyFile(cfg, &fc)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyFile maps the parsed file onto the Config struct, clamping values.
func applyFile(cfg *Config, fc *fileConfig) {
	if l := fc.Logging; l != nil {
		if l.Level != nil {
			cfg.LogLevel = strings.ToLower(strings.TrimSpace(*l.Level))
		}
		if l.Format != nil {
			if v := strings.ToLower(strings.TrimSpace(*l.Format)); v == "text" || v == "json" {
				cfg.LogFormat = v
			}
		}
		if l.File != nil {
			cfg.LogFile = *l.File
		}
		if l.MaxBytes != nil {
			cfg.LogMaxBytes = clampInt(*l.MaxBytes, intPtr(1024), nil)
		}
		if l.BackupCount != nil {
			cfg.LogBackupCount = clampInt(*l.BackupCount, intPtr(1), nil)
		}
		if l.Stdout != nil {
			cfg.LogToStdout = *l.Stdout
		}
	}

	if s := fc.Server; s != nil {
		if s.BaseURL != nil {
			cfg.BaseURL = strings.TrimSpace(*s.BaseURL)
		}
		if s.RequestTimeoutSec != nil {
			cfg.RequestTimeoutSec = clampFloat(*s.RequestTimeoutSec, floatPtr(0.5), floatPtr(120.0))
		}
	}

	if p := fc.Polling; p != nil {
		if p.SensorIntervalMS != nil {
			cfg.SensorIntervalMS = clampInt(*p.SensorIntervalMS, intPtr(250), nil)
		}
		if p.LatestImageIntervalMS != nil {
			cfg.LatestImageIntervalMS = clampInt(*p.LatestImageIntervalMS, intPtr(1000), nil)
		}
	}

	if c := fc.Camera; c != nil && c.SaveDir != nil {
		cfg.SaveDir = *c.SaveDir
	}

	if w := fc.Window; w != nil {
		if w.Width != nil {
			cfg.WindowWidth = clampInt(*w.Width, intPtr(320), intPtr(7680))
		}
		if w.Height != nil {
			cfg.WindowHeight = clampInt(*w.Height, intPtr(240), intPtr(4320))
		}
		if w.Fullscreen != nil {
			cfg.Fullscreen = *w.Fullscreen
		}
	}
}

// applyEnv applies environment variable overrides.
func applyEnv(cfg *Config) {
	if v := os.Getenv("FARM_DASHBOARD_BASE_URL"); v != "" {
		cfg.BaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("FARM_DASHBOARD_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("FARM_DASHBOARD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("FARM_DASHBOARD_SENSOR_INTERVAL_MS"); v != "" {
		cfg.SensorIntervalMS = asInt(v, cfg.SensorIntervalMS, intPtr(250), nil)
	}
	if v := os.Getenv("FARM_DASHBOARD_FULLSCREEN"); v != "" {
		cfg.Fullscreen = asBool(v, cfg.Fullscreen)
	}
}

// =============================================================================
// Durations
// =============================================================================

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec * float64(time.Second))
}

func (c *Config) SensorInterval() time.Duration {
	return time.Duration(c.SensorIntervalMS) * time.Millisecond
}

func (c *Config) LatestImageInterval() time.Duration {
	return time.Duration(c.LatestImageIntervalMS) * time.Millisecond
}

// =============================================================================
// Validate
// =============================================================================

// Validate checks whether the Config values are reasonable and returns
// warnings. Returns ok=false if any setting is critically problematic.
func (c *Config) Validate() (ok bool, warnings []string) {
	ok = true

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		ok = false
		warnings = append(warnings, fmt.Sprintf("Base URL %q is not an absolute http(s) URL", c.BaseURL))
	}

	if c.SensorIntervalMS < 1000 {
		warnings = append(warnings, fmt.Sprintf("Sensor interval %d ms is aggressive for the backend", c.SensorIntervalMS))
	}

	if c.RequestTimeout() < time.Second {
		warnings = append(warnings, "Request timeout under 1s may cut off inference requests")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		warnings = append(warnings, fmt.Sprintf("Unknown log level %q, using info", c.LogLevel))
	}

	if c.LogFile == "" && !c.LogToStdout {
		warnings = append(warnings, "Both file and stdout logging are disabled; logging to stdout")
	}

	return ok, warnings
}
