// Package localfs implements a metadata store over a local directory tree.
//
// Each share maps to a subdirectory of the store root ("/export" lives in
// <root>/export). Attributes come straight from the filesystem, so the
// change time is the kernel-maintained ctime and cannot be set by callers.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"time"

	"github.com/marmos91/wormfs/internal/logger"
	"github.com/marmos91/wormfs/pkg/metadata"
	"github.com/spf13/afero"
)

// LocalFSStore implements metadata.Store on top of an afero filesystem.
//
// Thread Safety:
// Safe for concurrent use; every operation is a single filesystem call
// sequence and relies on the filesystem for atomicity (O_EXCL on create).
type LocalFSStore struct {
	fs                afero.Fs
	preserveOwnership bool
}

// LocalFSStoreConfig contains configuration for the local filesystem store.
type LocalFSStoreConfig struct {
	// Path is the root directory holding one subdirectory per share
	Path string `mapstructure:"path"`

	// PreserveOwnership chowns new files to the requested uid/gid.
	// Requires the server to run with CAP_CHOWN.
	PreserveOwnership bool `mapstructure:"preserve_ownership"`
}

// NewLocalFSStore creates the root directory if needed and returns a store
// rooted there.
func NewLocalFSStore(ctx context.Context, cfg LocalFSStoreConfig) (*LocalFSStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("localfs metadata store: path is required")
	}

	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store root %s: %w", cfg.Path, err)
	}

	store := NewLocalFSStoreWithFs(afero.NewBasePathFs(osFs, cfg.Path))
	store.preserveOwnership = cfg.PreserveOwnership
	return store, nil
}

// NewLocalFSStoreWithFs wraps an existing afero filesystem. The filesystem
// root is the store root.
func NewLocalFSStoreWithFs(fsys afero.Fs) *LocalFSStore {
	return &LocalFSStore{fs: fsys}
}

// fsPath maps (share, path) to a location inside the store root.
func fsPath(share, p string) string {
	return path.Join(metadata.CleanPath(share), metadata.CleanPath(p))
}

// GetAttr stats the file backing path on share.
//
// Ctime is the filesystem's change time where the platform exposes it,
// falling back to the modification time otherwise.
func (s *LocalFSStore) GetAttr(ctx context.Context, share, p string) (*metadata.FileAttr, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := metadata.ValidateLocation(share, p); err != nil {
		return nil, err
	}

	fi, err := s.fs.Stat(fsPath(share, p))
	if err != nil {
		return nil, translateError(err, p)
	}
	return attrFromFileInfo(fi), nil
}

// CreateFile creates the file (or directory) backing path on share.
//
// Missing parent directories are created with mode 0755. The mode in attr is
// applied after creation so the process umask does not narrow it. Ctime is
// always the moment of creation; only Atime and Mtime can be carried over.
//
// Parameters:
//   - share: Share the file belongs to
//   - p: Share-relative path
//   - attr: Requested type, mode, ownership and times
//
// Returns the attributes as read back from disk. Ownership is applied only
// when PreserveOwnership is set, and a failed chown is logged, not returned.
func (s *LocalFSStore) CreateFile(ctx context.Context, share, p string, attr *metadata.FileAttr) (*metadata.FileAttr, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := metadata.ValidateLocation(share, p); err != nil {
		return nil, err
	}
	if attr == nil {
		return nil, &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: "attributes are required", Path: p}
	}

	target := fsPath(share, p)
	perm := os.FileMode(attr.Mode & 0o777)

	if err := s.fs.MkdirAll(path.Dir(target), 0755); err != nil {
		return nil, translateError(err, p)
	}

	if attr.Type == metadata.FileTypeDirectory {
		if _, err := s.fs.Stat(target); err == nil {
			return nil, metadata.NewAlreadyExistsError(metadata.CleanPath(p))
		}
		if err := s.fs.Mkdir(target, perm); err != nil {
			return nil, translateError(err, p)
		}
	} else {
		f, err := s.fs.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
		if err != nil {
			return nil, translateError(err, p)
		}
		if err := f.Close(); err != nil {
			return nil, translateError(err, p)
		}
	}

	// OpenFile honours the umask; apply the exact mode afterwards.
	if err := s.fs.Chmod(target, perm); err != nil {
		return nil, translateError(err, p)
	}

	if !attr.Mtime.IsZero() {
		atime := attr.Atime
		if atime.IsZero() {
			atime = attr.Mtime
		}
		if err := s.fs.Chtimes(target, atime, attr.Mtime); err != nil {
			return nil, translateError(err, p)
		}
	}

	if s.preserveOwnership {
		if err := s.fs.Chown(target, int(attr.UID), int(attr.GID)); err != nil {
			logger.Warn("localfs: chown %s to %d:%d failed: %v", target, attr.UID, attr.GID, err)
		}
	}

	return s.GetAttr(ctx, share, p)
}

// SetAttr applies the non-nil fields of attrs with chmod, chown, truncate
// and chtimes, in that order.
//
// The kernel updates ctime for each of these calls, so Ctime in the result
// reflects the change. A failure midway leaves the earlier changes applied.
func (s *LocalFSStore) SetAttr(ctx context.Context, share, p string, attrs *metadata.SetAttrs) (*metadata.FileAttr, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := metadata.ValidateLocation(share, p); err != nil {
		return nil, err
	}

	target := fsPath(share, p)
	if _, err := s.fs.Stat(target); err != nil {
		return nil, translateError(err, p)
	}
	if attrs.IsEmpty() {
		return s.GetAttr(ctx, share, p)
	}

	if attrs.Mode != nil {
		if err := s.fs.Chmod(target, os.FileMode(*attrs.Mode&0o777)); err != nil {
			return nil, translateError(err, p)
		}
	}

	if attrs.UID != nil || attrs.GID != nil {
		uid, gid := -1, -1
		if attrs.UID != nil {
			uid = int(*attrs.UID)
		}
		if attrs.GID != nil {
			gid = int(*attrs.GID)
		}
		if err := s.fs.Chown(target, uid, gid); err != nil {
			return nil, translateError(err, p)
		}
	}

	if attrs.Size != nil {
		f, err := s.fs.OpenFile(target, os.O_WRONLY, 0)
		if err != nil {
			return nil, translateError(err, p)
		}
		truncErr := f.Truncate(int64(*attrs.Size))
		closeErr := f.Close()
		if err := errors.Join(truncErr, closeErr); err != nil {
			return nil, translateError(err, p)
		}
	}

	if attrs.Mtime != nil {
		if err := s.fs.Chtimes(target, time.Now(), *attrs.Mtime); err != nil {
			return nil, translateError(err, p)
		}
	}

	return s.GetAttr(ctx, share, p)
}

// Remove deletes the file backing path. Non-empty directories are refused
// by the filesystem.
func (s *LocalFSStore) Remove(ctx context.Context, share, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := metadata.ValidateLocation(share, p); err != nil {
		return err
	}

	target := fsPath(share, p)
	if _, err := s.fs.Stat(target); err != nil {
		return translateError(err, p)
	}
	if err := s.fs.Remove(target); err != nil {
		return translateError(err, p)
	}
	return nil
}

// Healthcheck verifies the store root is reachable.
func (s *LocalFSStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.fs.Stat("/"); err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	return nil
}

// Close is a no-op; the store holds no open descriptors.
func (s *LocalFSStore) Close() error {
	return nil
}

func attrFromFileInfo(fi os.FileInfo) *metadata.FileAttr {
	attr := &metadata.FileAttr{
		Type:  metadata.FileTypeRegular,
		Mode:  uint32(fi.Mode().Perm()),
		Size:  uint64(fi.Size()),
		Atime: fi.ModTime(),
		Mtime: fi.ModTime(),
		Ctime: fi.ModTime(),
	}

	switch {
	case fi.IsDir():
		attr.Type = metadata.FileTypeDirectory
	case fi.Mode()&os.ModeSymlink != 0:
		attr.Type = metadata.FileTypeSymlink
	}

	// Platform stat data, when the backing filesystem exposes it.
	if st, ok := statFromSys(fi.Sys()); ok {
		attr.Atime = st.atime
		attr.Ctime = st.ctime
		attr.UID = st.uid
		attr.GID = st.gid
	}

	return attr
}

// sysStat carries the platform fields os.FileInfo does not expose.
type sysStat struct {
	atime time.Time
	ctime time.Time
	uid   uint32
	gid   uint32
}

func translateError(err error, p string) error {
	clean := metadata.CleanPath(p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return metadata.NewNotFoundError(clean)
	case errors.Is(err, fs.ErrExist):
		return metadata.NewAlreadyExistsError(clean)
	case errors.Is(err, fs.ErrPermission):
		return &metadata.StoreError{Code: metadata.ErrIOError, Message: "permission denied by host filesystem", Path: clean}
	default:
		return &metadata.StoreError{Code: metadata.ErrIOError, Message: err.Error(), Path: clean}
	}
}
