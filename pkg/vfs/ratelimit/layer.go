// Package ratelimit provides a pipeline layer that throttles open/create
// requests per connection with a token bucket.
package ratelimit

import (
	"context"
	"fmt"
	"math"

	"github.com/marmos91/wormfs/internal/logger"
	"github.com/marmos91/wormfs/internal/ratelimiter"
	"github.com/marmos91/wormfs/pkg/metrics"
	"github.com/marmos91/wormfs/pkg/vfs"
)

const (
	layerName = "ratelimit"

	// RequestsPerSecondKey is the sustained open rate per connection.
	// 0 or unset disables the layer for the connection.
	RequestsPerSecondKey = "ratelimit.requests_per_second"

	// BurstKey is the bucket size. 0 or unset uses the per-second rate,
	// rounded up.
	BurstKey = "ratelimit.burst"
)

// Layer throttles CreateFile. Close and Disconnect are never throttled.
type Layer struct {
	metrics metrics.PipelineMetrics
}

// Option configures a Layer.
type Option func(*Layer)

// WithMetrics records a decision for every throttled open.
func WithMetrics(m metrics.PipelineMetrics) Option {
	return func(l *Layer) {
		if m != nil {
			l.metrics = m
		}
	}
}

// New returns a rate-limit layer.
func New(opts ...Option) *Layer {
	l := &Layer{metrics: metrics.NewNoopPipelineMetrics()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns "ratelimit".
func (l *Layer) Name() string {
	return layerName
}

// Connect reads the limits from the connection parameters before connecting
// the stages below, so a bad value fails the attach without side effects.
// A connection without a rate gets the lower session unwrapped.
func (l *Layer) Connect(ctx context.Context, conn *vfs.Connection, next vfs.ConnectFunc) (vfs.Session, error) {
	rps, burst, err := Limits(conn.Params)
	if err != nil {
		return nil, err
	}

	lower, err := next(ctx, conn)
	if err != nil {
		return nil, err
	}
	if rps == 0 {
		return lower, nil
	}

	logger.Debug("ratelimit: %s: %g req/s, burst %d", conn, rps, burst)
	return &throttle{
		layer:   l,
		conn:    conn,
		next:    lower,
		limiter: ratelimiter.New(rps, burst),
	}, nil
}

// Limits reads and checks the rate parameters. The burst defaults to the rate
// rounded up.
func Limits(params vfs.Params) (float64, int, error) {
	rps, err := vfs.FloatParam(params, RequestsPerSecondKey, 0)
	if err != nil {
		return 0, 0, err
	}
	if math.IsNaN(rps) || math.IsInf(rps, 0) || rps < 0 {
		return 0, 0, invalid(RequestsPerSecondKey, rps)
	}

	burst, err := vfs.IntParam(params, BurstKey, 0)
	if err != nil {
		return 0, 0, err
	}
	if burst < 0 {
		return 0, 0, invalid(BurstKey, burst)
	}
	if burst == 0 {
		burst = int(math.Ceil(rps))
	}
	return rps, burst, nil
}

func invalid(key string, v any) error {
	return &vfs.Error{
		Code:    vfs.ErrInvalidParameter,
		Op:      "connect",
		Message: fmt.Sprintf("%s must be >= 0, got %v", key, v),
	}
}

// throttle is the per-connection session. Each connection has its own
// bucket.
type throttle struct {
	layer   *Layer
	conn    *vfs.Connection
	next    vfs.Session
	limiter *ratelimiter.RateLimiter
}

// CreateFile waits for a token before delegating. A wait that cannot finish
// before ctx's deadline fails at once with context.DeadlineExceeded.
func (t *throttle) CreateFile(ctx context.Context, req *vfs.CreateRequest) (*vfs.FileHandle, error) {
	if !t.limiter.Allow() {
		t.layer.metrics.RecordDecision(layerName, t.conn.Share, "delayed")
		if err := t.limiter.Wait(ctx); err != nil {
			t.layer.metrics.RecordDecision(layerName, t.conn.Share, "expired")
			if cerr := ctx.Err(); cerr != nil {
				return nil, cerr
			}
			// The deadline falls before the next token.
			return nil, fmt.Errorf("ratelimit: open %s: %w", req.Path, context.DeadlineExceeded)
		}
	}
	return t.next.CreateFile(ctx, req)
}

func (t *throttle) Close(ctx context.Context, fh *vfs.FileHandle) error {
	return t.next.Close(ctx, fh)
}

func (t *throttle) Disconnect(ctx context.Context) error {
	return t.next.Disconnect(ctx)
}
