package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	errMissingAPIKey = errors.New("missing Datadog API key (set DATADOG_API_KEY or datadog.api_key)")
	errMissingAppKey = errors.New("missing Datadog application key (set DATADOG_APP_KEY or datadog.app_key)")
)

// DatadogConfig carries the Monitor Source credentials and site.
type DatadogConfig struct {
	APIKey string `yaml:"api_key"`
	AppKey string `yaml:"app_key"`
	Site   string `yaml:"site"`
}

// RefreshConfig tunes staleness and the daemon-mode interval.
type RefreshConfig struct {
	StalenessMinutes int `yaml:"stalenessMinutes"`
	IntervalMinutes  int `yaml:"intervalMinutes"`
}

// LoggingConfig selects level and log file directory.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// Config is the explicit, passed-down application configuration. There is
// no package-level configuration state.
type Config struct {
	Datadog  DatadogConfig  `yaml:"datadog"`
	Database DatabaseConfig `yaml:"database"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// loadConfig reads the optional YAML config file, applies environment
// overrides, fills in defaults, and validates the credentials. A missing
// config file is fine; missing credentials are not.
func loadConfig(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// The environment can carry everything.
		default:
			return cfg, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	if v := os.Getenv("DATADOG_API_KEY"); v != "" {
		cfg.Datadog.APIKey = v
	}
	if v := os.Getenv("DATADOG_APP_KEY"); v != "" {
		cfg.Datadog.AppKey = v
	}
	if v := os.Getenv("DATADOG_SITE"); v != "" {
		cfg.Datadog.Site = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("LOG_DIR"); v != "" {
		cfg.Logging.Dir = v
	}

	if cfg.Datadog.Site == "" {
		cfg.Datadog.Site = "datadoghq.com"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./monitors.db"
	}
	if cfg.Refresh.StalenessMinutes <= 0 {
		cfg.Refresh.StalenessMinutes = 60
	}
	if cfg.Refresh.IntervalMinutes <= 0 {
		cfg.Refresh.IntervalMinutes = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}

	if cfg.Datadog.APIKey == "" {
		return cfg, errMissingAPIKey
	}
	if cfg.Datadog.AppKey == "" {
		return cfg, errMissingAppKey
	}

	return cfg, nil
}
