// Package config assembles the client configuration from an optional YAML
// file plus MORA_* environment variables. Environment always wins over the
// file, the file over built-in defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Runner selection for the execution bridge.
const (
	RunnerE2B   = "e2b"
	RunnerLocal = "local"
)

// Config is the resolved client configuration.
type Config struct {
	// APIURL is the conversion backend base URL.
	APIURL string `yaml:"api_url"`
	// E2BAPIKey authorizes the remote sandbox service. Empty disables the
	// e2b runner.
	E2BAPIKey string `yaml:"e2b_api_key"`
	// Runner picks the execution backend: "e2b" or "local".
	Runner string `yaml:"runner"`
	// PythonBin is the interpreter used by the local runner.
	PythonBin string `yaml:"python_bin"`
	// DataDir holds the session history database and exports.
	DataDir string `yaml:"data_dir"`
	// RedisAddr enables the shared snapshot cache when set (host:port).
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	// CacheTTL bounds how long a cached snapshot stays valid.
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// MetricsListen exposes /metrics and /healthz when set (host:port).
	MetricsListen string `yaml:"metrics_listen"`
	// LogLevel is a zerolog level name.
	LogLevel string `yaml:"log_level"`

	OTELEnabled    bool    `yaml:"otel_enabled"`
	OTELExporter   string  `yaml:"otel_exporter"`
	OTELEndpoint   string  `yaml:"otel_endpoint"`
	OTELSampleRate float64 `yaml:"otel_sample_rate"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		APIURL:         "http://localhost:8000",
		Runner:         RunnerE2B,
		PythonBin:      "python3",
		DataDir:        defaultDataDir(),
		CacheTTL:       15 * time.Minute,
		LogLevel:       "info",
		OTELExporter:   "grpc",
		OTELEndpoint:   "localhost:4317",
		OTELSampleRate: 1.0,
	}
}

// Load resolves the configuration. path may be empty; a missing file at an
// explicitly given path is an error, a missing default file is not.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		// MORA_DATA must steer the auto-load location even though the env
		// merge as a whole runs after the file merge.
		path = filepath.Join(ParseString("MORA_DATA", cfg.DataDir), "config.yaml")
	}
	if err := mergeFile(&cfg, path, explicit); err != nil {
		return Config{}, err
	}
	mergeEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: invalid api_url %q", c.APIURL)
	}
	switch c.Runner {
	case RunnerE2B, RunnerLocal:
	default:
		return fmt.Errorf("config: invalid runner %q (supported: %s, %s)", c.Runner, RunnerE2B, RunnerLocal)
	}
	if c.OTELEnabled && c.OTELExporter != "grpc" && c.OTELExporter != "http" {
		return fmt.Errorf("config: invalid otel_exporter %q (supported: grpc, http)", c.OTELExporter)
	}
	return nil
}

func mergeFile(cfg *Config, path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if explicit {
			return fmt.Errorf("config: file not found: %s", path)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func mergeEnv(cfg *Config) {
	cfg.APIURL = ParseString("MORA_API_URL", cfg.APIURL)
	cfg.E2BAPIKey = ParseString("MORA_E2B_API_KEY", cfg.E2BAPIKey)
	cfg.Runner = ParseString("MORA_RUNNER", cfg.Runner)
	cfg.PythonBin = ParseString("MORA_PYTHON_BIN", cfg.PythonBin)
	cfg.DataDir = ParseString("MORA_DATA", cfg.DataDir)
	cfg.RedisAddr = ParseString("MORA_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = ParseString("MORA_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = ParseInt("MORA_REDIS_DB", cfg.RedisDB)
	cfg.CacheTTL = ParseDuration("MORA_CACHE_TTL", cfg.CacheTTL)
	cfg.MetricsListen = ParseString("MORA_METRICS_LISTEN", cfg.MetricsListen)
	cfg.LogLevel = ParseString("MORA_LOG_LEVEL", cfg.LogLevel)
	cfg.OTELEnabled = ParseBool("MORA_OTEL_ENABLED", cfg.OTELEnabled)
	cfg.OTELExporter = ParseString("MORA_OTEL_EXPORTER", cfg.OTELExporter)
	cfg.OTELEndpoint = ParseString("MORA_OTEL_ENDPOINT", cfg.OTELEndpoint)
	cfg.OTELSampleRate = ParseFloat("MORA_OTEL_SAMPLE_RATE", cfg.OTELSampleRate)
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "mora")
	}
	return ".mora"
}
