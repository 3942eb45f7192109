package ratelimiter

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket for open requests.
//
// Tokens are added at a constant rate up to the burst size; each request
// consumes one. A limiter built with a zero rate never blocks.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerSecond sustained and burst
// immediate requests. A burst below 1 is raised to 1 so that a limited
// bucket can ever serve a request.
//
// Special cases:
//   - requestsPerSecond <= 0: no limiting
func New(requestsPerSecond float64, burst int) *RateLimiter {
	if requestsPerSecond <= 0 || math.IsInf(requestsPerSecond, 1) {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Unlimited reports whether the limiter never throttles.
func (r *RateLimiter) Unlimited() bool {
	return r.limiter.Limit() == rate.Inf
}

// Allow consumes a token if one is available, without waiting.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done. It fails at once
// when ctx's deadline comes before the token would.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Tokens returns the tokens currently in the bucket. Monitoring only.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
