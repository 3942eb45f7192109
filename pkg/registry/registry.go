package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/marmos91/wormfs/internal/logger"
	"github.com/marmos91/wormfs/pkg/metadata"
	"github.com/marmos91/wormfs/pkg/metrics"
	"github.com/marmos91/wormfs/pkg/vfs"
	"github.com/marmos91/wormfs/pkg/vfs/storage"
)

// Registry manages all named resources: metadata stores and shares.
// It provides thread-safe registration and lookup, and owns one open
// pipeline per share.
//
// Example usage:
//
//	reg := NewRegistry()
//	reg.RegisterMetadataStore("main", badgerStore)
//	reg.AddShare(&ShareConfig{Name: "/archive", MetadataStore: "main", Layers: []string{"worm"}})
//
//	tree, _ := reg.Connect(ctx, "/archive", "alice", 1000, 1000)
type Registry struct {
	mu       sync.RWMutex
	metadata map[string]metadata.Store
	shares   map[string]*Share
	metrics  metrics.PipelineMetrics
	closed   bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithMetrics is passed to every pipeline and layer the registry builds.
func WithMetrics(m metrics.PipelineMetrics) Option {
	return func(r *Registry) {
		if m != nil {
			r.metrics = m
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		metadata: make(map[string]metadata.Store),
		shares:   make(map[string]*Share),
		metrics:  metrics.NewNoopPipelineMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterMetadataStore adds a named metadata store to the registry.
// Returns an error if a store with the same name already exists.
func (r *Registry) RegisterMetadataStore(name string, store metadata.Store) error {
	if store == nil {
		return fmt.Errorf("cannot register nil metadata store")
	}
	if name == "" {
		return fmt.Errorf("cannot register metadata store with empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.metadata[name]; exists {
		return fmt.Errorf("metadata store %q already registered", name)
	}

	r.metadata[name] = store
	return nil
}

// AddShare validates config and registers the share with its pipeline.
//
// Returns an error if:
//   - A share with the same name already exists
//   - The referenced metadata store doesn't exist
//   - A layer name is unknown or listed twice
func (r *Registry) AddShare(config *ShareConfig) error {
	if config == nil || config.Name == "" {
		return fmt.Errorf("cannot add share with empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.shares[config.Name]; exists {
		return fmt.Errorf("share %q already exists", config.Name)
	}

	store, exists := r.metadata[config.MetadataStore]
	if !exists {
		return fmt.Errorf("metadata store %q not found", config.MetadataStore)
	}

	layers, err := NewLayers(config.Layers, r.metrics)
	if err != nil {
		return fmt.Errorf("share %q: %w", config.Name, err)
	}

	r.shares[config.Name] = &Share{
		Name:                     config.Name,
		MetadataStore:            config.MetadataStore,
		Kind:                     config.Kind,
		Layers:                   append([]string(nil), config.Layers...),
		Options:                  config.Options,
		MapAllToAnonymous:        config.MapAllToAnonymous,
		MapPrivilegedToAnonymous: config.MapPrivilegedToAnonymous,
		AnonymousUID:             config.AnonymousUID,
		AnonymousGID:             config.AnonymousGID,
		pipeline:                 vfs.NewPipeline(storage.New(store), layers, vfs.WithMetrics(r.metrics)),
	}

	return nil
}

// RemoveShare removes a share from the registry. Trees already connected
// keep working. The underlying store is not closed, as other shares may
// use it.
func (r *Registry) RemoveShare(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.shares[name]; !exists {
		return fmt.Errorf("share %q not found", name)
	}

	delete(r.shares, name)
	return nil
}

// GetShare retrieves a share by name.
func (r *Registry) GetShare(name string) (*Share, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	share, exists := r.shares[name]
	if !exists {
		return nil, fmt.Errorf("share %q not found", name)
	}
	return share, nil
}

// GetMetadataStore retrieves a metadata store by name.
func (r *Registry) GetMetadataStore(name string) (metadata.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	store, exists := r.metadata[name]
	if !exists {
		return nil, fmt.Errorf("metadata store %q not found", name)
	}
	return store, nil
}

// GetMetadataStoreForShare retrieves the metadata store used by the specified share.
func (r *Registry) GetMetadataStoreForShare(shareName string) (metadata.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	share, exists := r.shares[shareName]
	if !exists {
		return nil, fmt.Errorf("share %q not found", shareName)
	}

	store, exists := r.metadata[share.MetadataStore]
	if !exists {
		return nil, fmt.Errorf("metadata store %q not found for share %q", share.MetadataStore, shareName)
	}

	return store, nil
}

// ListShares returns all registered share names, sorted.
func (r *Registry) ListShares() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.shares))
	for name := range r.shares {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListMetadataStores returns all registered metadata store names, sorted.
func (r *Registry) ListMetadataStores() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.metadata))
	for name := range r.metadata {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListSharesUsingMetadataStore returns all shares that use the specified metadata store.
func (r *Registry) ListSharesUsingMetadataStore(storeName string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var shares []string
	for _, share := range r.shares {
		if share.MetadataStore == storeName {
			shares = append(shares, share.Name)
		}
	}
	sort.Strings(shares)
	return shares
}

// CountShares returns the number of registered shares.
func (r *Registry) CountShares() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shares)
}

// CountMetadataStores returns the number of registered metadata stores.
func (r *Registry) CountMetadataStores() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.metadata)
}

// ShareExists checks if a share with the given name exists in the registry.
func (r *Registry) ShareExists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.shares[name]
	return exists
}

// Connect attaches a client to a share's pipeline. The identity is mapped
// with the share's squash rules first.
func (r *Registry) Connect(ctx context.Context, shareName, user string, uid, gid uint32) (*vfs.Tree, error) {
	share, err := r.GetShare(shareName)
	if err != nil {
		return nil, err
	}
	return share.pipeline.Connect(ctx, share.connection(Identity{User: user, UID: uid, GID: gid}))
}

// Close closes every registered store once. Errors are joined.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for name, store := range r.metadata {
		if err := store.Close(); err != nil {
			logger.Warn("closing metadata store %q: %v", name, err)
			errs = append(errs, fmt.Errorf("metadata store %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
