package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete wormfs configuration.
//
// This structure captures all configurable aspects of wormfs:
//   - Logging configuration
//   - Metrics collection
//   - Named metadata stores (store-specific)
//   - Share definitions, each with its layer stack and options
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (WORMFS_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each store implementation defines its own configuration type. A store
// entry carries type-specific sections (e.g. memory, badger) and only the
// section matching the selected type is decoded.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics controls Prometheus collection and the metrics endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Metadata holds the named metadata stores
	Metadata MetadataConfig `mapstructure:"metadata" yaml:"metadata"`

	// Shares defines the shares clients can connect to
	Shares []ShareConfig `mapstructure:"shares" yaml:"shares" validate:"dive"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// MetricsConfig controls the metrics endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Host is the listen address (empty = all interfaces)
	Host string `mapstructure:"host" yaml:"host"`

	Port int `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
}

// MetadataConfig holds every named metadata store.
type MetadataConfig struct {
	// Stores maps a store name to its configuration
	Stores map[string]MetadataStoreConfig `mapstructure:"stores" yaml:"stores" validate:"required,min=1,dive"`
}

// MetadataStoreConfig specifies one metadata store.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type MetadataStoreConfig struct {
	// Type specifies which metadata store implementation to use
	// Valid values: memory, badger, localfs, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger localfs s3"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory,omitempty"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger,omitempty"`

	// LocalFS contains local filesystem configuration
	// Only used when Type = "localfs"
	LocalFS map[string]any `mapstructure:"localfs" yaml:"localfs,omitempty"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3,omitempty"`
}

// ShareConfig defines a single share.
type ShareConfig struct {
	// Name is the share name (e.g., "/archive")
	Name string `mapstructure:"name" yaml:"name" validate:"required,startswith=/"`

	// MetadataStore names an entry of metadata.stores
	MetadataStore string `mapstructure:"metadata_store" yaml:"metadata_store" validate:"required"`

	// Kind is the service type: disk, ipc or print
	Kind string `mapstructure:"kind" yaml:"kind" validate:"required,oneof=disk ipc print"`

	// Layers lists the interception layers, outermost first
	Layers []string `mapstructure:"layers" yaml:"layers" validate:"dive,oneof=worm ratelimit"`

	// Options is the parametric configuration handed to the layers,
	// e.g. worm: {grace_period: 3600}
	Options map[string]any `mapstructure:"options" yaml:"options"`

	// IdentityMapping configures user/group mapping
	IdentityMapping IdentityMappingConfig `mapstructure:"identity_mapping" yaml:"identity_mapping"`
}

// IdentityMappingConfig controls user/group identity mapping.
type IdentityMappingConfig struct {
	// MapAllToAnonymous maps all users to anonymous (all_squash)
	MapAllToAnonymous bool `mapstructure:"map_all_to_anonymous" yaml:"map_all_to_anonymous"`

	// MapPrivilegedToAnonymous maps root user to anonymous (root_squash)
	MapPrivilegedToAnonymous bool `mapstructure:"map_privileged_to_anonymous" yaml:"map_privileged_to_anonymous"`

	// AnonymousUID is the UID to use for anonymous users
	AnonymousUID uint32 `mapstructure:"anonymous_uid" yaml:"anonymous_uid"`

	// AnonymousGID is the GID to use for anonymous users
	AnonymousGID uint32 `mapstructure:"anonymous_gid" yaml:"anonymous_gid"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (WORMFS_*)
//  2. Configuration file
//  3. Default values
//
// An empty configPath uses the default location, where a missing file is
// not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: WORMFS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("WORMFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Environment variables only override keys viper knows about
	v.SetDefault("logging.level", "")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.output", "")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 0)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// $XDG_CONFIG_HOME/wormfs/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file. A missing file is only
// acceptable at the default location.
func readConfigFile(v *viper.Viper, configPath string) error {
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("config file %s: %w", configPath, err)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "wormfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "wormfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
