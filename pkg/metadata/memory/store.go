package memory

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/wormfs/pkg/metadata"
)

// fileKey identifies a file across shares.
type fileKey struct {
	share string
	path  string
}

// MemoryMetadataStore implements metadata.Store using in-memory storage.
//
// It is suitable for testing, development, and ephemeral shares where
// persistence is not required.
//
// Thread Safety:
// All operations are protected by a single read-write mutex, making the store
// safe for concurrent access from multiple goroutines.
type MemoryMetadataStore struct {
	mu    sync.RWMutex
	files map[fileKey]*metadata.FileAttr

	maxFiles int
}

// MemoryMetadataStoreConfig contains configuration for the in-memory store.
type MemoryMetadataStoreConfig struct {
	// MaxFiles caps the number of entries (0 = unlimited)
	MaxFiles int `mapstructure:"max_files"`
}

// NewMemoryMetadataStore creates an empty in-memory store.
func NewMemoryMetadataStore(cfg MemoryMetadataStoreConfig) *MemoryMetadataStore {
	return &MemoryMetadataStore{
		files:    make(map[fileKey]*metadata.FileAttr),
		maxFiles: cfg.MaxFiles,
	}
}

// NewMemoryMetadataStoreWithDefaults creates an unlimited in-memory store.
func NewMemoryMetadataStoreWithDefaults() *MemoryMetadataStore {
	return NewMemoryMetadataStore(MemoryMetadataStoreConfig{})
}

// GetAttr returns a copy of the attributes stored for path on share.
//
// Returns a NotFound StoreError if no entry exists. The returned value is a
// clone; callers may modify it freely.
//
// Context Cancellation:
// The context is checked once before the lookup.
func (s *MemoryMetadataStore) GetAttr(ctx context.Context, share, path string) (*metadata.FileAttr, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := metadata.ValidateLocation(share, path); err != nil {
		return nil, err
	}

	key := fileKey{share: share, path: metadata.CleanPath(path)}

	s.mu.RLock()
	defer s.mu.RUnlock()

	attr, ok := s.files[key]
	if !ok {
		return nil, metadata.NewNotFoundError(key.path)
	}
	return attr.Clone(), nil
}

// CreateFile stores a new entry for path on share.
//
// Unset timestamps in attr are filled with the current time. The store keeps
// its own copy of attr, so later changes by the caller have no effect.
//
// Parameters:
//   - share: Share the file belongs to
//   - path: Share-relative path, cleaned before use
//   - attr: Initial attributes (required)
//
// Returns the stored attributes, or AlreadyExists if the path is taken.
// When MaxFiles is set and reached, an IOError is returned.
func (s *MemoryMetadataStore) CreateFile(ctx context.Context, share, path string, attr *metadata.FileAttr) (*metadata.FileAttr, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := metadata.ValidateLocation(share, path); err != nil {
		return nil, err
	}
	if attr == nil {
		return nil, &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: "attributes are required", Path: path}
	}

	key := fileKey{share: share, path: metadata.CleanPath(path)}
	stored := attr.Clone()
	stored.FillTimestamps(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[key]; exists {
		return nil, metadata.NewAlreadyExistsError(key.path)
	}
	if s.maxFiles > 0 && len(s.files) >= s.maxFiles {
		return nil, &metadata.StoreError{Code: metadata.ErrIOError, Message: "file limit reached", Path: key.path}
	}

	s.files[key] = stored
	return stored.Clone(), nil
}

// SetAttr applies the non-nil fields of attrs to an existing entry.
//
// A non-empty change bumps Ctime. A size change also sets Mtime to now
// unless attrs carries an explicit Mtime. An empty attrs leaves the entry
// untouched.
//
// Thread Safety:
// The read-modify-write runs under the write lock.
func (s *MemoryMetadataStore) SetAttr(ctx context.Context, share, path string, attrs *metadata.SetAttrs) (*metadata.FileAttr, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := metadata.ValidateLocation(share, path); err != nil {
		return nil, err
	}

	key := fileKey{share: share, path: metadata.CleanPath(path)}

	s.mu.Lock()
	defer s.mu.Unlock()

	attr, ok := s.files[key]
	if !ok {
		return nil, metadata.NewNotFoundError(key.path)
	}
	if attrs.IsEmpty() {
		return attr.Clone(), nil
	}

	attrs.Apply(attr, time.Now())
	return attr.Clone(), nil
}

// Remove deletes the entry for path on share.
// Returns NotFound if no entry exists.
func (s *MemoryMetadataStore) Remove(ctx context.Context, share, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := metadata.ValidateLocation(share, path); err != nil {
		return err
	}

	key := fileKey{share: share, path: metadata.CleanPath(path)}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[key]; !ok {
		return metadata.NewNotFoundError(key.path)
	}
	delete(s.files, key)
	return nil
}

// Healthcheck only reports a cancelled context.
func (s *MemoryMetadataStore) Healthcheck(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op. Entries remain readable after Close.
func (s *MemoryMetadataStore) Close() error {
	return nil
}
