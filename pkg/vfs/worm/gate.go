// Package worm implements a write-once-read-many pipeline layer.
//
// Once a file's metadata has not changed for longer than the share's grace
// period, the layer refuses every open that asks for, or ends up holding, a
// write-capable right (vfs.WriteAccessMask). The storage below is never
// marked read-only; the policy lives entirely in the open path.
//
// The decision is made twice. Before delegating, the requested mask is
// checked. After delegating, the effective mask on the new handle is checked
// again, because MAXIMUM_ALLOWED and generic rights are only resolved by the
// storage layer and can turn a harmless-looking request into write access.
package worm

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/wormfs/internal/logger"
	"github.com/marmos91/wormfs/pkg/metrics"
	"github.com/marmos91/wormfs/pkg/vfs"
)

const layerName = "worm"

// Decision is the terminal state of one open through the gate.
type Decision int

const (
	// DecisionPolicyInactive means the connection has no policy and the
	// request was delegated as is.
	DecisionPolicyInactive Decision = iota

	// DecisionStaticDeny means the request asked for write access to a
	// protected file and was refused without delegating.
	DecisionStaticDeny

	// DecisionDelegateFailed means the next stage failed; its error was
	// returned unchanged.
	DecisionDelegateFailed

	// DecisionPostOpenDeny means the next stage granted write access to a
	// protected file; the handle was closed and the open refused.
	DecisionPostOpenDeny

	// DecisionSuccess means the handle was returned to the caller.
	DecisionSuccess
)

// String returns the metric label for d.
func (d Decision) String() string {
	switch d {
	case DecisionPolicyInactive:
		return "policy_inactive"
	case DecisionStaticDeny:
		return "static_deny"
	case DecisionDelegateFailed:
		return "delegate_failed"
	case DecisionPostOpenDeny:
		return "post_open_deny"
	case DecisionSuccess:
		return "success"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Layer is the WORM pipeline layer. It holds no per-connection state; each
// Connect returns a gate session owning that connection's PolicyConfig.
type Layer struct {
	now     func() time.Time
	metrics metrics.PipelineMetrics
}

// Option configures a Layer.
type Option func(*Layer)

// WithClock replaces time.Now as the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(l *Layer) {
		if now != nil {
			l.now = now
		}
	}
}

// WithMetrics records every decision in m.
func WithMetrics(m metrics.PipelineMetrics) Option {
	return func(l *Layer) {
		if m != nil {
			l.metrics = m
		}
	}
}

// New returns a WORM layer.
func New(opts ...Option) *Layer {
	l := &Layer{
		now:     time.Now,
		metrics: metrics.NewNoopPipelineMetrics(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns "worm", the name the layer is configured and reported under.
func (l *Layer) Name() string {
	return layerName
}

// Connect connects the stages below first and fails with their error if
// they fail. IPC and print connections get an inert gate. Otherwise the
// grace period is read from the connection's parameters; if it is invalid
// the lower session is disconnected and the attach fails.
func (l *Layer) Connect(ctx context.Context, conn *vfs.Connection, next vfs.ConnectFunc) (vfs.Session, error) {
	lower, err := next(ctx, conn)
	if err != nil {
		return nil, err
	}

	g := &gate{layer: l, conn: conn, next: lower}

	if conn.IsAdministrative() || conn.IsQueue() {
		logger.Debug("worm: %s: policy inactive on %s connection", conn, conn.Kind)
		return g, nil
	}

	config, err := NewPolicyConfig(conn.Params)
	if err != nil {
		logger.Error("worm: %s: %v", conn, err)
		if derr := lower.Disconnect(ctx); derr != nil {
			logger.Warn("worm: %s: disconnecting lower session failed: %v", conn, derr)
		}
		return nil, err
	}

	g.config = config
	logger.Debug("worm: %s: %s", conn, config)
	return g, nil
}

// gate is the per-connection session of the WORM layer. config is nil when
// the policy does not apply to the connection.
type gate struct {
	layer  *Layer
	conn   *vfs.Connection
	next   vfs.Session
	config *PolicyConfig
}

// CreateFile runs one open through the policy and records the outcome in
// the layer's metrics.
//
// Thread Safety:
// The gate holds no mutable state. Concurrent opens on one connection are
// safe as long as the session below is.
func (g *gate) CreateFile(ctx context.Context, req *vfs.CreateRequest) (*vfs.FileHandle, error) {
	fh, decision, err := g.decide(ctx, req)
	g.layer.metrics.RecordDecision(layerName, g.conn.Share, decision.String())
	return fh, err
}

// decide returns the handle, the terminal decision and the error for req.
// The clock is read once per request, before delegating.
func (g *gate) decide(ctx context.Context, req *vfs.CreateRequest) (*vfs.FileHandle, Decision, error) {
	if g.config == nil {
		fh, err := g.next.CreateFile(ctx, req)
		return fh, DecisionPolicyInactive, err
	}

	now := g.layer.now()
	protected := g.config.IsProtected(req.Existing, now)

	// EffectiveAccess counts a truncating disposition as FileWriteData, so
	// an overwrite is refused before the storage below can discard data.
	requested := req.EffectiveAccess()
	if protected && requested.Intersects(vfs.WriteAccessMask) {
		logger.Debug("worm: %s: deny %s before open: age %s > %s, requested %s",
			g.conn, req.Path, g.config.Age(req.Existing, now), g.config.GracePeriod(), requested&vfs.WriteAccessMask)
		return nil, DecisionStaticDeny, accessDenied(req.Path)
	}

	fh, err := g.next.CreateFile(ctx, req)
	if err != nil {
		return nil, DecisionDelegateFailed, err
	}

	if protected && fh.Access.Intersects(vfs.WriteAccessMask) {
		logger.Debug("worm: %s: deny %s after open: requested %s, granted %s",
			g.conn, req.Path, req.Access, fh.Access&vfs.WriteAccessMask)
		if cerr := g.next.Close(ctx, fh); cerr != nil {
			logger.Warn("worm: %s: closing %s after denial failed: %v", g.conn, req.Path, cerr)
		}
		return nil, DecisionPostOpenDeny, accessDenied(req.Path)
	}

	return fh, DecisionSuccess, nil
}

// Close is delegated unchanged.
func (g *gate) Close(ctx context.Context, fh *vfs.FileHandle) error {
	return g.next.Close(ctx, fh)
}

func (g *gate) Disconnect(ctx context.Context) error {
	return g.next.Disconnect(ctx)
}

func accessDenied(path string) error {
	return &vfs.Error{
		Code:    vfs.ErrAccessDenied,
		Op:      "open",
		Path:    path,
		Message: "file is write-protected",
	}
}
