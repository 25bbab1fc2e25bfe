package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func newTestTracker(t *testing.T, threshold int) *Tracker {
	t.Helper()
	return NewTracker(setupTestRedis(t), threshold, zerolog.Nop())
}

func headersWith(remaining int, resetAt time.Time) http.Header {
	h := http.Header{}
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	return h
}

func TestTracker_DefaultStateAllows(t *testing.T) {
	tracker := newTestTracker(t, 5)

	allowed, err := tracker.ShouldAllowRequest(context.Background())
	if err != nil {
		t.Fatalf("ShouldAllowRequest failed: %v", err)
	}
	if !allowed {
		t.Error("request blocked with no rate limit state")
	}
}

func TestTracker_UpdateFromHeaders(t *testing.T) {
	tracker := newTestTracker(t, 5)
	ctx := context.Background()

	resetAt := time.Now().Add(time.Minute)
	if err := tracker.UpdateFromHeaders(ctx, headersWith(42, resetAt)); err != nil {
		t.Fatalf("UpdateFromHeaders failed: %v", err)
	}

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if state.Remaining != 42 {
		t.Errorf("Remaining = %d, want 42", state.Remaining)
	}
	if state.ResetAt.Unix() != resetAt.Unix() {
		t.Errorf("ResetAt = %v, want %v", state.ResetAt, resetAt)
	}
}

func TestTracker_MissingHeadersIgnored(t *testing.T) {
	tracker := newTestTracker(t, 5)

	if err := tracker.UpdateFromHeaders(context.Background(), http.Header{}); err != nil {
		t.Errorf("headers without rate limit info must be ignored, got %v", err)
	}
}

func TestTracker_MalformedHeaderRejected(t *testing.T) {
	tracker := newTestTracker(t, 5)

	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "lots")

	if err := tracker.UpdateFromHeaders(context.Background(), h); err == nil {
		t.Error("malformed X-RateLimit-Remaining accepted")
	}
}

func TestTracker_BlocksBelowThreshold(t *testing.T) {
	tracker := newTestTracker(t, 5)
	ctx := context.Background()

	if err := tracker.UpdateFromHeaders(ctx, headersWith(2, time.Now().Add(time.Minute))); err != nil {
		t.Fatalf("UpdateFromHeaders failed: %v", err)
	}

	allowed, err := tracker.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowRequest failed: %v", err)
	}
	if allowed {
		t.Error("request allowed with remaining budget below threshold")
	}
}

func TestTracker_AllowsAfterWindowReset(t *testing.T) {
	tracker := newTestTracker(t, 5)
	ctx := context.Background()

	// Budget exhausted, but the advertised window already reset.
	if err := tracker.UpdateFromHeaders(ctx, headersWith(0, time.Now().Add(-time.Second))); err != nil {
		t.Fatalf("UpdateFromHeaders failed: %v", err)
	}

	allowed, err := tracker.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowRequest failed: %v", err)
	}
	if !allowed {
		t.Error("request blocked after the rate limit window reset")
	}
}

func TestTracker_AllowsAboveThreshold(t *testing.T) {
	tracker := newTestTracker(t, 5)
	ctx := context.Background()

	if err := tracker.UpdateFromHeaders(ctx, headersWith(50, time.Now().Add(time.Minute))); err != nil {
		t.Fatalf("UpdateFromHeaders failed: %v", err)
	}

	allowed, err := tracker.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowRequest failed: %v", err)
	}
	if !allowed {
		t.Error("request blocked with healthy budget")
	}
}
