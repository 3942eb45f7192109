package ratelimiter

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name              string
		requestsPerSecond float64
		burst             int
		unlimited         bool
	}{
		{name: "standard rate", requestsPerSecond: 100, burst: 200},
		{name: "fractional rate", requestsPerSecond: 0.5, burst: 1},
		{name: "zero burst", requestsPerSecond: 10, burst: 0},
		{name: "unlimited (zero rate)", requestsPerSecond: 0, burst: 0, unlimited: true},
		{name: "unlimited (negative rate)", requestsPerSecond: -1, burst: 5, unlimited: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := New(tt.requestsPerSecond, tt.burst)
			if limiter == nil || limiter.limiter == nil {
				t.Fatal("New() returned an unusable limiter")
			}
			if got := limiter.Unlimited(); got != tt.unlimited {
				t.Fatalf("Unlimited() = %v, want %v", got, tt.unlimited)
			}
			if !limiter.Allow() {
				t.Fatal("first request should always be allowed")
			}
		})
	}
}

// TestAllow verifies that Allow() enforces the burst.
func TestAllow(t *testing.T) {
	limiter := New(10, 10)

	for i := 0; i < 10; i++ {
		if !limiter.Allow() {
			t.Fatalf("request %d should be allowed (within burst)", i)
		}
	}

	if limiter.Allow() {
		t.Fatal("request should be rate-limited after burst exhausted")
	}

	// 100ms at 10 req/s refills one token
	time.Sleep(110 * time.Millisecond)

	if !limiter.Allow() {
		t.Fatal("request should be allowed after token replenishment")
	}
}

// TestWait verifies that Wait() blocks until a token is available.
func TestWait(t *testing.T) {
	limiter := New(10, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("first request should succeed: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("second request should succeed after waiting: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < 50*time.Millisecond || elapsed > 500*time.Millisecond {
		t.Fatalf("wait time %v outside expected range 50ms-500ms", elapsed)
	}
}

// TestWaitContextCancellation verifies that Wait() respects context cancellation.
func TestWaitContextCancellation(t *testing.T) {
	limiter := New(1, 1)

	if !limiter.Allow() {
		t.Fatal("first request should be allowed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("Wait() should return error when the deadline comes before a token")
	}

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	if err := New(1, 1).Wait(cancelled); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait() on a cancelled context = %v, want context.Canceled", err)
	}
}

func TestUnlimitedNeverBlocks(t *testing.T) {
	limiter := New(0, 0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 10000; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("unlimited limiter took %v", elapsed)
	}
}
