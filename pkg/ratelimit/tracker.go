package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	requestsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_rate_limit_remaining",
		Help: "Number of requests remaining in the current rate limit window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_rate_limit_blocks_total",
		Help: "Total number of requests blocked due to exhausted request budget",
	})
)

// Tracker monitors the storefront request budget and gates requests.
type Tracker struct {
	redis     *redis.Client
	threshold int
	logger    zerolog.Logger
}

// NewTracker creates a new rate limit tracker. Requests are blocked while
// the advertised remaining budget is below threshold.
func NewTracker(redisClient *redis.Client, threshold int, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:     redisClient,
		threshold: threshold,
		logger:    logger,
	}
}

// GetState retrieves the current rate limit state from Redis.
// Returns a default healthy state if no data exists yet.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	remaining, err := t.redis.Get(ctx, RedisKeyRemaining).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get remaining: %w", err)
	}
	if err == redis.Nil {
		t.logger.Debug().Msg("No rate limit state in Redis, assuming healthy")
		return &State{
			Remaining:  t.threshold * 10,
			ResetAt:    time.Now().Add(60 * time.Second),
			LastUpdate: time.Now(),
		}, nil
	}

	resetTimestamp, err := t.redis.Get(ctx, RedisKeyResetTimestamp).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get reset timestamp: %w", err)
	}

	lastUpdateTimestamp, err := t.redis.Get(ctx, RedisKeyLastUpdate).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	return &State{
		Remaining:  remaining,
		ResetAt:    time.Unix(resetTimestamp, 0),
		LastUpdate: time.Unix(lastUpdateTimestamp, 0),
	}, nil
}

// UpdateFromHeaders parses X-RateLimit-* headers and updates Redis state.
// Responses without the headers are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get("X-RateLimit-Remaining")
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse X-RateLimit-Remaining header: %w", err)
	}

	// Reset is unix seconds; absent means "keep the previous window".
	now := time.Now()
	resetAt := now.Add(60 * time.Second)
	if resetStr := headers.Get("X-RateLimit-Reset"); resetStr != "" {
		resetUnix, err := strconv.ParseInt(resetStr, 10, 64)
		if err != nil {
			return fmt.Errorf("parse X-RateLimit-Reset header: %w", err)
		}
		resetAt = time.Unix(resetUnix, 0)
	}

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyRemaining, remain, 0)
	pipe.Set(ctx, RedisKeyResetTimestamp, resetAt.Unix(), 0)
	pipe.Set(ctx, RedisKeyLastUpdate, now.Unix(), 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	requestsRemaining.Set(float64(remain))

	if remain < t.threshold {
		t.logger.Warn().
			Int("remaining", remain).
			Time("reset_at", resetAt).
			Msg("Request budget critical - requests will be blocked")
	} else {
		t.logger.Debug().
			Int("remaining", remain).
			Time("reset_at", resetAt).
			Msg("Request budget updated")
	}

	return nil
}

// ShouldAllowRequest checks if a request should be sent given the current
// budget. Returns false while the budget is below the threshold and the
// window has not reset yet.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.Expired() {
		return true, nil
	}

	if state.Remaining < t.threshold {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Request budget critical - blocking request")

		rateLimitBlocksTotal.Inc()
		return false, nil
	}

	return true, nil
}
