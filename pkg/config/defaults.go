package config

import (
	"strings"

	"github.com/marmos91/wormfs/pkg/vfs/worm"
)

// DefaultStoreName is the metadata store created when none is configured.
const DefaultStoreName = "default"

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by store implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
	applyMetadataDefaults(&cfg.Metadata)

	// Add default share if none configured
	if len(cfg.Shares) == 0 {
		cfg.Shares = []ShareConfig{defaultShare()}
	}

	applyShareDefaults(cfg.Shares, &cfg.Metadata)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyMetricsDefaults sets metrics defaults. Enabled stays false.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyMetadataDefaults adds an in-memory store when none is configured.
func applyMetadataDefaults(cfg *MetadataConfig) {
	if len(cfg.Stores) == 0 {
		cfg.Stores = map[string]MetadataStoreConfig{
			DefaultStoreName: {Type: "memory", Memory: map[string]any{}},
		}
	}
}

// applyShareDefaults sets share defaults.
func applyShareDefaults(shares []ShareConfig, metadata *MetadataConfig) {
	for i := range shares {
		share := &shares[i]

		// A single configured store is the obvious choice
		if share.MetadataStore == "" && len(metadata.Stores) == 1 {
			for name := range metadata.Stores {
				share.MetadataStore = name
			}
		}

		if share.Kind == "" {
			share.Kind = "disk"
		}
		share.Kind = strings.ToLower(share.Kind)

		// nil means "not configured"; an explicit empty list disables layers
		if share.Layers == nil {
			share.Layers = []string{"worm"}
		}

		if share.Options == nil {
			share.Options = make(map[string]any)
		}

		applyIdentityMappingDefaults(&share.IdentityMapping)
	}
}

// applyIdentityMappingDefaults sets identity mapping defaults.
func applyIdentityMappingDefaults(cfg *IdentityMappingConfig) {
	// Anonymous user defaults (nobody/nogroup)
	if cfg.AnonymousUID == 0 {
		cfg.AnonymousUID = 65534
	}
	if cfg.AnonymousGID == 0 {
		cfg.AnonymousGID = 65534
	}
}

func defaultShare() ShareConfig {
	return ShareConfig{
		Name:   "/archive",
		Kind:   "disk",
		Layers: []string{"worm"},
		Options: map[string]any{
			"worm": map[string]any{"grace_period": worm.DefaultGracePeriod},
		},
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Metadata: MetadataConfig{
			Stores: map[string]MetadataStoreConfig{
				DefaultStoreName: {Type: "memory", Memory: map[string]any{}},
			},
		},
		Shares: []ShareConfig{defaultShare()},
	}

	ApplyDefaults(cfg)
	return cfg
}
