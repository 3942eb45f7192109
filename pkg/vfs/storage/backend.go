// Package storage is the bottom stage of a vfs pipeline: it performs opens
// against a metadata.Store and grants access from Unix permission bits.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/marmos91/wormfs/internal/logger"
	"github.com/marmos91/wormfs/pkg/metadata"
	"github.com/marmos91/wormfs/pkg/vfs"
)

// DefaultMode is the permission given to files created without one.
const DefaultMode = 0644

// Backend implements vfs.Backend over a metadata store. Shares are keyed by
// the connection's share name.
type Backend struct {
	store metadata.Store
}

// New returns a backend for store. The store is not closed by the backend.
func New(store metadata.Store) *Backend {
	return &Backend{store: store}
}

// Connect returns a session holding the handle table for conn. The store
// is shared across sessions; nothing is read until the first open.
func (b *Backend) Connect(ctx context.Context, conn *vfs.Connection) (vfs.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &session{
		store:   b.store,
		conn:    conn,
		handles: make(map[uuid.UUID]*vfs.FileHandle),
	}, nil
}

// Stat reads the current attributes of path from the store. Store errors
// are translated to vfs codes.
func (b *Backend) Stat(ctx context.Context, conn *vfs.Connection, path string) (*metadata.FileAttr, error) {
	attr, err := b.store.GetAttr(ctx, conn.Share, path)
	if err != nil {
		return nil, translateError("stat", path, err)
	}
	return attr, nil
}

// session is a connection's handle table on the backend.
type session struct {
	store metadata.Store
	conn  *vfs.Connection

	mu      sync.Mutex
	handles map[uuid.UUID]*vfs.FileHandle
}

// CreateFile resolves the disposition against the current store contents,
// then opens, truncates or creates the file.
//
// Access on existing files is granted from the Unix mode bits (see
// AllowedAccess). A truncating disposition needs FileWriteData, so a caller
// without write permission cannot discard data by naming a read-only mask.
//
// Returns a handle registered with the session, or a *vfs.Error.
func (s *session) CreateFile(ctx context.Context, req *vfs.CreateRequest) (*vfs.FileHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, &vfs.Error{Code: vfs.ErrInvalidParameter, Op: "create", Message: "nil request"}
	}
	path := metadata.CleanPath(req.Path)

	// Layers above work from req.Existing; the backend re-reads the store so
	// that its own decisions use current attributes.
	attr, err := s.store.GetAttr(ctx, s.conn.Share, path)
	exists := err == nil
	if err != nil && !metadata.IsNotFound(err) {
		return nil, translateError("create", path, err)
	}

	var fh *vfs.FileHandle
	switch {
	case exists && req.Disposition == vfs.DispositionCreate:
		return nil, &vfs.Error{Code: vfs.ErrAlreadyExists, Op: "create", Path: path}
	case !exists && !req.Disposition.CreatesWhenMissing():
		return nil, &vfs.Error{Code: vfs.ErrNotFound, Op: "open", Path: path}
	case exists:
		fh, err = s.openExisting(ctx, path, attr, req)
	default:
		fh, err = s.create(ctx, path, req)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.handles[fh.ID] = fh
	s.mu.Unlock()

	return fh, nil
}

// openExisting grants access on an existing file and truncates it when the
// disposition asks for it.
func (s *session) openExisting(ctx context.Context, path string, attr *metadata.FileAttr, req *vfs.CreateRequest) (*vfs.FileHandle, error) {
	requested := req.Access.MapGeneric()
	if req.Disposition.Truncates() {
		// Truncation is a data write: it needs write permission and is
		// reported on the handle, whatever the caller named.
		requested |= vfs.FileWriteData
	}

	if attr.Type == metadata.FileTypeDirectory && requested.Intersects(vfs.FileWriteData|vfs.FileAppendData) {
		return nil, &vfs.Error{Code: vfs.ErrIsDirectory, Op: "open", Path: path}
	}

	allowed := AllowedAccess(s.conn, attr)
	granted, err := ResolveAccess(path, requested, allowed)
	if err != nil {
		return nil, err
	}

	if !req.Disposition.Truncates() {
		return vfs.NewFileHandle(path, granted, vfs.ActionOpened, attr), nil
	}

	truncated, err := s.store.SetAttr(ctx, s.conn.Share, path, &metadata.SetAttrs{Size: metadata.Uint64Ptr(0)})
	if err != nil {
		return nil, translateError("overwrite", path, err)
	}

	action := vfs.ActionOverwritten
	if req.Disposition == vfs.DispositionSupersede {
		action = vfs.ActionSuperseded
	}
	return vfs.NewFileHandle(path, granted, action, truncated), nil
}

func (s *session) create(ctx context.Context, path string, req *vfs.CreateRequest) (*vfs.FileHandle, error) {
	mode := req.Mode
	if mode == 0 {
		mode = DefaultMode
	}

	attr, err := s.store.CreateFile(ctx, s.conn.Share, path, &metadata.FileAttr{
		Type: metadata.FileTypeRegular,
		Mode: mode,
		UID:  s.conn.UID,
		GID:  s.conn.GID,
	})
	if err != nil {
		return nil, translateError("create", path, err)
	}

	// The creator is granted what it asked for, whatever the new mode says.
	granted := req.Access.MapGeneric()
	if granted.Intersects(vfs.MaximumAllowed) {
		granted = granted&^vfs.MaximumAllowed | vfs.FileAllAccess
	}

	return vfs.NewFileHandle(path, granted, vfs.ActionCreated, attr), nil
}

// Close forgets fh. Handles the session did not issue are rejected with
// ErrInvalidHandle.
func (s *session) Close(ctx context.Context, fh *vfs.FileHandle) error {
	if fh == nil {
		return &vfs.Error{Code: vfs.ErrInvalidHandle, Op: "close", Message: "nil handle"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.handles[fh.ID]; !ok {
		return &vfs.Error{Code: vfs.ErrInvalidHandle, Op: "close", Path: fh.Path, Message: fmt.Sprintf("unknown handle %s", fh.ID)}
	}
	delete(s.handles, fh.ID)
	return nil
}

// Disconnect drops the handle table.
func (s *session) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.handles); n > 0 {
		logger.Debug("storage: %s disconnected with %d open handles", s.conn, n)
	}
	s.handles = make(map[uuid.UUID]*vfs.FileHandle)
	return nil
}

// translateError maps store errors onto pipeline status codes. Context
// errors are returned unchanged.
func translateError(op, path string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	code, ok := metadata.CodeOf(err)
	if !ok {
		return &vfs.Error{Code: vfs.ErrIO, Op: op, Path: path, Err: err}
	}

	var vcode vfs.Code
	switch code {
	case metadata.ErrNotFound:
		vcode = vfs.ErrNotFound
	case metadata.ErrAlreadyExists:
		vcode = vfs.ErrAlreadyExists
	case metadata.ErrInvalidArgument:
		vcode = vfs.ErrInvalidParameter
	default:
		vcode = vfs.ErrIO
	}
	return &vfs.Error{Code: vcode, Op: op, Path: path, Err: err}
}
