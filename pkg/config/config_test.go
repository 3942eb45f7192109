package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: "info"

shares:
  - name: "/archive"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}

	share := cfg.Shares[0]
	if share.MetadataStore != DefaultStoreName {
		t.Errorf("Expected share to use %q, got %q", DefaultStoreName, share.MetadataStore)
	}
	if share.Kind != "disk" {
		t.Errorf("Expected default kind 'disk', got %q", share.Kind)
	}
	if len(share.Layers) != 1 || share.Layers[0] != "worm" {
		t.Errorf("Expected default layers [worm], got %v", share.Layers)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "badger")
	configPath := writeConfig(t, `
logging:
  level: DEBUG
  format: json
  output: stderr

metrics:
  enabled: true
  port: 9191

metadata:
  stores:
    fast:
      type: memory
      memory:
        max_files: 100
    durable:
      type: badger
      badger:
        db_path: `+dbPath+`

shares:
  - name: /archive
    metadata_store: durable
    layers: [ratelimit, worm]
    options:
      worm:
        grace_period: 60
      ratelimit:
        requests_per_second: 50
    identity_mapping:
      map_privileged_to_anonymous: true
  - name: /ipc
    metadata_store: fast
    kind: IPC
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if !cfg.Metrics.Enabled || cfg.Metrics.Port != 9191 {
		t.Errorf("Unexpected metrics config: %+v", cfg.Metrics)
	}
	if len(cfg.Metadata.Stores) != 2 {
		t.Fatalf("Expected 2 stores, got %d", len(cfg.Metadata.Stores))
	}
	if cfg.Metadata.Stores["durable"].Type != "badger" {
		t.Errorf("Expected durable store to be badger, got %q", cfg.Metadata.Stores["durable"].Type)
	}

	archive := cfg.Shares[0]
	if strings.Join(archive.Layers, ",") != "ratelimit,worm" {
		t.Errorf("Expected layers [ratelimit worm], got %v", archive.Layers)
	}
	if !archive.IdentityMapping.MapPrivilegedToAnonymous {
		t.Error("Expected root squash on /archive")
	}
	if archive.IdentityMapping.AnonymousUID != 65534 {
		t.Errorf("Expected default anonymous uid 65534, got %d", archive.IdentityMapping.AnonymousUID)
	}
	if cfg.Shares[1].Kind != "ipc" {
		t.Errorf("Expected kind normalized to 'ipc', got %q", cfg.Shares[1].Kind)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	_, err := Load(nonExistentPath)
	if err == nil {
		t.Fatal("Expected error for an explicit path that does not exist")
	}
}

func TestLoad_DefaultLocationMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected no error with missing default config, got: %v", err)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if len(cfg.Shares) != 1 || cfg.Shares[0].Name != "/archive" {
		t.Errorf("Expected the default /archive share, got %+v", cfg.Shares)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "logging:\n  level: [unclosed\n")

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	configPath := writeConfig(t, "logging:\n  level: INFO\n")
	t.Setenv("WORMFS_LOGGING_LEVEL", "warn")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected env override 'WARN', got %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidGracePeriod(t *testing.T) {
	configPath := writeConfig(t, `
shares:
  - name: /archive
    options:
      worm:
        grace_period: -1
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected validation error for negative grace period")
	}
	if !strings.Contains(err.Error(), "worm.grace_period") {
		t.Errorf("Expected error to name worm.grace_period, got: %v", err)
	}
}

func TestGetConfigDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if got := GetConfigDir(); got != filepath.Join(dir, "wormfs") {
		t.Errorf("Expected %s, got %s", filepath.Join(dir, "wormfs"), got)
	}
	if got := GetDefaultConfigPath(); got != filepath.Join(dir, "wormfs", "config.yaml") {
		t.Errorf("Unexpected default path %s", got)
	}
	if ConfigExists() {
		t.Error("Expected no config in a fresh directory")
	}
}
