// Package config loads the kernel's configuration from a YAML file, applies
// MCP_-prefixed environment overrides, and validates the result against
// spec.md §6's rules before the kernel starts.
package config

import (
	"os"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	kernelerr "github.com/aegis-kernel/mcpkernel/infrastructure/errors"
)

// Config is the kernel and hardware manager's full configuration surface
// (spec.md §6).
type Config struct {
	PluginDirectory       string  `yaml:"plugin_directory" env:"MCP_PLUGIN_DIRECTORY"`
	StorageDirectory      string  `yaml:"storage_directory" env:"MCP_STORAGE_DIRECTORY"`
	EnableTracing         bool    `yaml:"enable_tracing" env:"MCP_ENABLE_TRACING"`
	EnableZKProofs        bool    `yaml:"enable_zk_proofs" env:"MCP_ENABLE_ZK_PROOFS"`
	MaxAgents             int     `yaml:"max_agents" env:"MCP_MAX_AGENTS"`
	MaxPluginsPerAgent    int     `yaml:"max_plugins_per_agent" env:"MCP_MAX_PLUGINS_PER_AGENT"`
	MaxCPUPercent         float64 `yaml:"max_cpu_percent" env:"MCP_MAX_CPU_PERCENT"`
	MaxMemoryMB           float64 `yaml:"max_memory_mb" env:"MCP_MAX_MEMORY_MB"`
	RefreshIntervalMS     int     `yaml:"refresh_interval_ms" env:"MCP_REFRESH_INTERVAL_MS"`
	AlertThreshold        float64 `yaml:"alert_threshold" env:"MCP_ALERT_THRESHOLD"`
	HistoryMinutes        int     `yaml:"history_minutes" env:"MCP_HISTORY_MINUTES"`
	EnableGracefulDegrade bool    `yaml:"enable_graceful_degradation" env:"MCP_ENABLE_GRACEFUL_DEGRADATION"`
	EnableDetailedMetrics bool    `yaml:"enable_detailed_metrics" env:"MCP_ENABLE_DETAILED_METRICS"`
	LogLevel              string  `yaml:"log_level" env:"MCP_LOG_LEVEL"`
	LogFormat             string  `yaml:"log_format" env:"MCP_LOG_FORMAT"`
	StorageBackend        string  `yaml:"storage_backend" env:"MCP_STORAGE_BACKEND"`
	RedisAddr             string  `yaml:"redis_addr" env:"MCP_REDIS_ADDR"`
}

// Default returns a Config with the defaults named in spec.md §6.
func Default() Config {
	return Config{
		PluginDirectory:    "./plugins",
		StorageDirectory:   "./data",
		MaxAgents:          100,
		MaxPluginsPerAgent: 10,
		MaxCPUPercent:      30.0,
		MaxMemoryMB:        800,
		RefreshIntervalMS:  1000,
		AlertThreshold:     0.8,
		HistoryMinutes:     60,
		LogLevel:           "info",
		LogFormat:          "json",
		StorageBackend:     "file",
	}
}

// Load reads path as YAML into Default()'s baseline, applies an optional
// .env file and MCP_-prefixed environment overrides, then validates the
// result. A missing path is not an error; the defaults (plus any env
// overrides) are used as-is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, kernelerr.InvalidConfiguration("file", err.Error())
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, kernelerr.InvalidConfiguration("yaml", err.Error())
		}
	}

	_ = godotenv.Load() // best-effort: a missing .env is not an error

	if err := envdecode.Decode(&cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return Config{}, kernelerr.InvalidConfiguration("env", err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces spec.md §6's rules: CPU in (0, 100], memory != 0,
// refresh interval != 0, alert threshold in (0, 1]. Returns the first
// violation encountered.
func (c Config) Validate() error {
	if c.MaxCPUPercent <= 0 || c.MaxCPUPercent > 100 {
		return kernelerr.InvalidConfiguration("max_cpu_percent", "must be in (0, 100]")
	}
	if c.MaxMemoryMB == 0 {
		return kernelerr.InvalidConfiguration("max_memory_mb", "must not be zero")
	}
	if c.RefreshIntervalMS == 0 {
		return kernelerr.InvalidConfiguration("refresh_interval_ms", "must not be zero")
	}
	if c.AlertThreshold <= 0 || c.AlertThreshold > 1 {
		return kernelerr.InvalidConfiguration("alert_threshold", "must be in (0, 1]")
	}
	return nil
}
