package metadata

import (
	"context"
	"path"
	"strings"
)

// Store provides the file metadata the open pipeline consults.
//
// Files are addressed by share name and a share-relative path. Paths are
// normalized with CleanPath, so "a/b", "/a/b" and "/a/./b" name the same file.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
//
// Context Cancellation:
// Every operation checks the context before touching storage.
type Store interface {
	// GetAttr returns the attributes of an existing file.
	// Returns a StoreError with ErrNotFound when the path does not exist.
	GetAttr(ctx context.Context, share, path string) (*FileAttr, error)

	// CreateFile creates a new entry. Zero timestamps in attr are set to
	// the current time. Returns ErrAlreadyExists if the path exists.
	CreateFile(ctx context.Context, share, path string, attr *FileAttr) (*FileAttr, error)

	// SetAttr updates the selected attributes and bumps Ctime.
	SetAttr(ctx context.Context, share, path string, attrs *SetAttrs) (*FileAttr, error)

	// Remove deletes the entry. Returns ErrNotFound if it does not exist.
	Remove(ctx context.Context, share, path string) error

	// Healthcheck verifies the backing storage is reachable.
	Healthcheck(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// CleanPath normalizes a share-relative path to a rooted, slash-separated
// form without "." or ".." segments that escape the root.
func CleanPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return path.Clean("/" + p)
}

// ValidateLocation checks the share and path arguments shared by every
// Store method.
func ValidateLocation(share, p string) error {
	if share == "" {
		return &StoreError{Code: ErrInvalidArgument, Message: "share name is required"}
	}
	if strings.ContainsRune(share, 0) {
		return &StoreError{Code: ErrInvalidArgument, Message: "share name contains NUL byte", Path: p}
	}
	if strings.ContainsRune(p, 0) {
		return &StoreError{Code: ErrInvalidArgument, Message: "path contains NUL byte", Path: p}
	}
	return nil
}
