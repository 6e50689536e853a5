package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_EnvOnly(t *testing.T) {
	t.Setenv("DATADOG_API_KEY", "key-from-env")
	t.Setenv("DATADOG_APP_KEY", "app-from-env")
	t.Setenv("DATADOG_SITE", "")
	t.Setenv("DB_PATH", "")
	t.Setenv("LOG_DIR", "")

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Datadog.APIKey != "key-from-env" || cfg.Datadog.AppKey != "app-from-env" {
		t.Errorf("credentials not taken from env: %+v", cfg.Datadog)
	}
	if cfg.Datadog.Site != "datadoghq.com" {
		t.Errorf("site default = %q", cfg.Datadog.Site)
	}
	if cfg.Database.Path != "./monitors.db" {
		t.Errorf("db path default = %q", cfg.Database.Path)
	}
	if cfg.Refresh.StalenessMinutes != 60 || cfg.Refresh.IntervalMinutes != 60 {
		t.Errorf("refresh defaults = %+v", cfg.Refresh)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Dir != "logs" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
}

func TestLoadConfig_MissingCredentials(t *testing.T) {
	t.Setenv("DATADOG_API_KEY", "")
	t.Setenv("DATADOG_APP_KEY", "")

	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, errMissingAPIKey) {
		t.Fatalf("want errMissingAPIKey, got %v", err)
	}

	t.Setenv("DATADOG_API_KEY", "something")
	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, errMissingAppKey) {
		t.Fatalf("want errMissingAppKey, got %v", err)
	}
}

func TestLoadConfig_YAMLWithEnvOverride(t *testing.T) {
	t.Setenv("DATADOG_API_KEY", "")
	t.Setenv("DATADOG_APP_KEY", "")
	t.Setenv("DATADOG_SITE", "datadoghq.eu")
	t.Setenv("DB_PATH", "")
	t.Setenv("LOG_DIR", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
datadog:
  api_key: yaml-api-key
  app_key: yaml-app-key
  site: us5.datadoghq.com
database:
  path: /tmp/cache.db
refresh:
  stalenessMinutes: 15
  intervalMinutes: 30
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Datadog.APIKey != "yaml-api-key" {
		t.Errorf("api key = %q", cfg.Datadog.APIKey)
	}
	if cfg.Datadog.Site != "datadoghq.eu" {
		t.Errorf("env should override yaml site, got %q", cfg.Datadog.Site)
	}
	if cfg.Database.Path != "/tmp/cache.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if cfg.Refresh.StalenessMinutes != 15 || cfg.Refresh.IntervalMinutes != 30 {
		t.Errorf("refresh = %+v", cfg.Refresh)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("datadog: ["), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	if _, err := loadConfig(path); err == nil {
		t.Fatal("want parse error for malformed yaml")
	}
}
