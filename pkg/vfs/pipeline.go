// Package vfs defines the open/create request pipeline that sits between a
// file-server front end and storage.
//
// A Pipeline is an explicit, ordered list of Layers on top of a Backend.
// Connecting a client walks the list once and produces a chain of Sessions,
// one per layer, each holding the session below it:
//
//	Tree -> layer[0] session -> layer[1] session -> ... -> backend session
//
// Layers see every CreateFile on their connection and decide whether to
// deny it, rewrite it or pass it down. There is no global registration:
// whoever builds the Pipeline decides which layers run and in which order.
package vfs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/wormfs/internal/logger"
	"github.com/marmos91/wormfs/pkg/metadata"
	"github.com/marmos91/wormfs/pkg/metrics"
)

// Session is one connection's view of a pipeline stage.
type Session interface {
	// CreateFile opens or creates req.Path. On success the returned handle
	// carries the effective granted access.
	CreateFile(ctx context.Context, req *CreateRequest) (*FileHandle, error)

	// Close releases a handle returned by CreateFile.
	Close(ctx context.Context, fh *FileHandle) error

	// Disconnect tears the session down. No calls follow it.
	Disconnect(ctx context.Context) error
}

// ConnectFunc connects the remainder of the pipeline below a layer.
type ConnectFunc func(ctx context.Context, conn *Connection) (Session, error)

// Layer is one interception stage.
type Layer interface {
	// Name identifies the layer in logs and metrics.
	Name() string

	// Connect attaches the layer to a new connection. Implementations call
	// next to connect the stages below and wrap the session it returns.
	Connect(ctx context.Context, conn *Connection, next ConnectFunc) (Session, error)
}

// Backend is the storage at the bottom of the pipeline.
type Backend interface {
	Connect(ctx context.Context, conn *Connection) (Session, error)

	// Stat returns the attributes of path on conn's share.
	Stat(ctx context.Context, conn *Connection, path string) (*metadata.FileAttr, error)
}

// Pipeline composes layers over a backend. It is immutable and may be
// shared by any number of connections.
type Pipeline struct {
	backend Backend
	layers  []Layer
	metrics metrics.PipelineMetrics
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithMetrics sets the metrics sink used by trees of this pipeline.
func WithMetrics(m metrics.PipelineMetrics) PipelineOption {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// NewPipeline builds a pipeline. layers[0] is outermost: it sees requests
// first and its session is the one the Tree talks to.
func NewPipeline(backend Backend, layers []Layer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		backend: backend,
		layers:  append([]Layer(nil), layers...),
		metrics: metrics.NewNoopPipelineMetrics(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LayerNames returns the layer names, outermost first.
func (p *Pipeline) LayerNames() []string {
	names := make([]string, len(p.layers))
	for i, l := range p.layers {
		names[i] = l.Name()
	}
	return names
}

// connectFrom returns the ConnectFunc for the stages starting at layer i.
func (p *Pipeline) connectFrom(i int) ConnectFunc {
	if i == len(p.layers) {
		return p.backend.Connect
	}
	layer := p.layers[i]
	next := p.connectFrom(i + 1)
	return func(ctx context.Context, conn *Connection) (Session, error) {
		return layer.Connect(ctx, conn, next)
	}
}

// Connect attaches conn to every stage and returns its Tree.
func (p *Pipeline) Connect(ctx context.Context, conn *Connection) (*Tree, error) {
	if conn == nil {
		return nil, &Error{Code: ErrInvalidParameter, Op: "connect", Message: "nil connection"}
	}

	session, err := p.connectFrom(0)(ctx, conn)
	if err != nil {
		logger.Warn("connect %s failed: %v", conn, err)
		return nil, err
	}

	p.metrics.RecordConnect(conn.Share)
	logger.Debug("connected %s through [%v]", conn, p.LayerNames())

	return &Tree{
		pipeline: p,
		conn:     conn,
		session:  session,
		handles:  make(map[uuid.UUID]*FileHandle),
	}, nil
}

// Tree is a connected client's front end to the pipeline. It tracks the
// handles opened through it so that Disconnect can release them.
//
// Thread Safety:
// Safe for concurrent use. The handle table is guarded by mu; requests run
// outside the lock, so opens on one tree proceed in parallel. An open that
// completes after Disconnect has its handle closed and fails with
// ErrInvalidHandle.
type Tree struct {
	pipeline *Pipeline
	conn     *Connection
	session  Session

	mu           sync.Mutex
	handles      map[uuid.UUID]*FileHandle
	disconnected bool
}

// Connection returns the connection the tree was built for.
func (t *Tree) Connection() *Connection {
	return t.conn
}

// Stat returns the attributes of path as the backend sees them.
func (t *Tree) Stat(ctx context.Context, path string) (*metadata.FileAttr, error) {
	return t.pipeline.backend.Stat(ctx, t.conn, path)
}

// Open stats path, then sends an open/create request for it down the
// pipeline. A missing file yields a request with no Existing attributes.
func (t *Tree) Open(ctx context.Context, path string, access AccessMask, disposition Disposition, mode uint32) (*FileHandle, error) {
	existing, err := t.Stat(ctx, path)
	if err != nil {
		if !IsCode(err, ErrNotFound) {
			return nil, err
		}
		existing = nil
	}

	return t.CreateFile(ctx, &CreateRequest{
		Path:        path,
		Access:      access,
		Disposition: disposition,
		Mode:        mode,
		Existing:    existing,
	})
}

// CreateFile sends a prepared request down the pipeline.
//
// A truncating disposition on an existing file is sent with FileWriteData
// added to the mask (see CreateRequest.EffectiveAccess); req itself is not
// modified.
//
// Returns the handle registered on the tree, or the first error from the
// stages below.
func (t *Tree) CreateFile(ctx context.Context, req *CreateRequest) (*FileHandle, error) {
	if req == nil {
		return nil, &Error{Code: ErrInvalidParameter, Op: "create", Message: "nil request"}
	}
	if err := t.checkConnected("create"); err != nil {
		return nil, err
	}

	// Layers below see the implied write in the mask itself
	if access := req.EffectiveAccess(); access != req.Access {
		adjusted := *req
		adjusted.Access = access
		req = &adjusted
	}

	start := time.Now()
	fh, err := t.session.CreateFile(ctx, req)
	t.pipeline.metrics.RecordOpen(t.conn.Share, time.Since(start), errorLabel(err))

	if err != nil {
		logger.Debug("create %s on %s: %v", req, t.conn, err)
		return nil, err
	}

	t.mu.Lock()
	if t.disconnected {
		// Disconnect ran while the open was in flight and will not see fh
		t.mu.Unlock()
		if cerr := t.session.Close(ctx, fh); cerr != nil {
			logger.Warn("create %s on %s: closing handle after disconnect failed: %v", req, t.conn, cerr)
		}
		return nil, &Error{Code: ErrInvalidHandle, Op: "create", Path: req.Path, Message: "tree disconnected during open"}
	}
	t.handles[fh.ID] = fh
	t.mu.Unlock()

	logger.Debug("create %s on %s: %s handle=%s access=%s", req, t.conn, fh.Action, fh.ID, fh.Access)
	return fh, nil
}

// Close releases a handle opened through this tree.
func (t *Tree) Close(ctx context.Context, fh *FileHandle) error {
	if fh == nil {
		return &Error{Code: ErrInvalidHandle, Op: "close", Message: "nil handle"}
	}
	if err := t.checkConnected("close"); err != nil {
		return err
	}

	t.mu.Lock()
	_, ok := t.handles[fh.ID]
	delete(t.handles, fh.ID)
	t.mu.Unlock()

	if !ok {
		return &Error{Code: ErrInvalidHandle, Op: "close", Path: fh.Path, Message: fmt.Sprintf("handle %s not open on this tree", fh.ID)}
	}
	return t.session.Close(ctx, fh)
}

// OpenHandles returns the handles currently open on the tree.
func (t *Tree) OpenHandles() []*FileHandle {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*FileHandle, 0, len(t.handles))
	for _, fh := range t.handles {
		out = append(out, fh)
	}
	return out
}

// Disconnect closes every open handle, then disconnects the session chain.
// Close failures are logged; the disconnect error, if any, is returned.
func (t *Tree) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	if t.disconnected {
		t.mu.Unlock()
		return nil
	}
	t.disconnected = true
	handles := t.handles
	t.handles = make(map[uuid.UUID]*FileHandle)
	t.mu.Unlock()

	for _, fh := range handles {
		if err := t.session.Close(ctx, fh); err != nil {
			logger.Warn("disconnect %s: closing %s failed: %v", t.conn, fh.Path, err)
		}
	}

	t.pipeline.metrics.RecordDisconnect(t.conn.Share)
	return t.session.Disconnect(ctx)
}

func (t *Tree) checkConnected(op string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disconnected {
		return &Error{Code: ErrInvalidHandle, Op: op, Message: "tree is disconnected"}
	}
	return nil
}

func errorLabel(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code.String()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return ErrInternal.String()
}
