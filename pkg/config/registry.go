package config

import (
	"context"
	"fmt"
	"sort"

	"github.com/marmos91/wormfs/internal/logger"
	"github.com/marmos91/wormfs/pkg/metadata"
	"github.com/marmos91/wormfs/pkg/metrics"
	"github.com/marmos91/wormfs/pkg/registry"
	"github.com/marmos91/wormfs/pkg/vfs"
)

// InitializeRegistry creates a fully configured Registry from the provided configuration.
//
// This function orchestrates the complete initialization process:
//  1. Creates and registers all metadata stores from cfg.Metadata.Stores
//  2. Adds all shares from cfg.Shares with their layer stacks
//
// On failure every store created so far is closed.
//
// Example:
//
//	cfg, _ := config.Load("config.yaml")
//	m := config.InitializeMetrics(cfg)
//	reg, err := config.InitializeRegistry(ctx, cfg, m)
//	if err != nil {
//	    log.Fatalf("Failed to initialize registry: %v", err)
//	}
//
// A nil m runs without metrics.
func InitializeRegistry(ctx context.Context, cfg *Config, m *MetricsResult) (*registry.Registry, error) {
	logger.Debug("Initializing registry from configuration")

	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}
	if len(cfg.Metadata.Stores) == 0 {
		return nil, fmt.Errorf("no metadata stores configured: at least one metadata store is required")
	}
	if len(cfg.Shares) == 0 {
		return nil, fmt.Errorf("no shares configured: at least one share is required")
	}

	if m == nil {
		m = &MetricsResult{PipelineMetrics: metrics.NewNoopPipelineMetrics()}
	}
	reg := registry.NewRegistry(registry.WithMetrics(m.PipelineMetrics))

	if err := registerMetadataStores(ctx, reg, cfg, m.MetadataMetrics); err != nil {
		_ = reg.Close()
		return nil, fmt.Errorf("failed to register metadata stores: %w", err)
	}
	logger.Debug("Registered %d metadata store(s)", reg.CountMetadataStores())

	if err := addShares(reg, cfg); err != nil {
		_ = reg.Close()
		return nil, fmt.Errorf("failed to add shares: %w", err)
	}
	logger.Debug("Registered %d share(s)", reg.CountShares())

	return reg, nil
}

// registerMetadataStores creates and registers all configured metadata stores
// in name order. Stores are instrumented when mm is set.
func registerMetadataStores(ctx context.Context, reg *registry.Registry, cfg *Config, mm metrics.MetadataMetrics) error {
	names := make([]string, 0, len(cfg.Metadata.Stores))
	for name := range cfg.Metadata.Stores {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		storeCfg := cfg.Metadata.Stores[name]
		logger.Debug("Creating metadata store %q (type: %s)", name, storeCfg.Type)

		store, err := CreateMetadataStore(ctx, storeCfg)
		if err != nil {
			return fmt.Errorf("failed to create metadata store %q: %w", name, err)
		}
		store = metadata.Instrument(store, name, storeCfg.Type, mm)

		if err := reg.RegisterMetadataStore(name, store); err != nil {
			_ = store.Close()
			return fmt.Errorf("failed to register metadata store %q: %w", name, err)
		}
	}

	return nil
}

// addShares validates and adds all configured shares to the registry.
func addShares(reg *registry.Registry, cfg *Config) error {
	for i, shareCfg := range cfg.Shares {
		logger.Debug("Adding share %q (metadata: %s, kind: %s, layers: %v)",
			shareCfg.Name, shareCfg.MetadataStore, shareCfg.Kind, shareCfg.Layers)

		if shareCfg.Name == "" {
			return fmt.Errorf("share #%d: name cannot be empty", i+1)
		}

		kind, err := vfs.ParseConnectionKind(shareCfg.Kind)
		if err != nil {
			return fmt.Errorf("share %q: %w", shareCfg.Name, err)
		}

		if err := reg.AddShare(&registry.ShareConfig{
			Name:                     shareCfg.Name,
			MetadataStore:            shareCfg.MetadataStore,
			Kind:                     kind,
			Layers:                   shareCfg.Layers,
			Options:                  vfs.ParamMap(shareCfg.Options),
			MapAllToAnonymous:        shareCfg.IdentityMapping.MapAllToAnonymous,
			MapPrivilegedToAnonymous: shareCfg.IdentityMapping.MapPrivilegedToAnonymous,
			AnonymousUID:             shareCfg.IdentityMapping.AnonymousUID,
			AnonymousGID:             shareCfg.IdentityMapping.AnonymousGID,
		}); err != nil {
			return fmt.Errorf("failed to add share %q: %w", shareCfg.Name, err)
		}

		logger.Info("Share %s: store=%s kind=%s layers=%v", shareCfg.Name, shareCfg.MetadataStore, kind, shareCfg.Layers)
	}

	return nil
}
