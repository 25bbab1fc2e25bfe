// Package api provides the storefront HTTP client: envelope decoding, typed
// errors, list parameter serialization, and the single
// refresh-and-replay protocol for authorization failures.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/verkado/storefront-client/pkg/cache"
	"github.com/verkado/storefront-client/pkg/logging"
	"github.com/verkado/storefront-client/pkg/ratelimit"
)

// Prometheus metrics for storefront client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_requests_total",
		Help: "Total storefront requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_request_duration_seconds",
		Help:    "Storefront request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_errors_total",
		Help: "Total storefront request errors by class",
	}, []string{"class"})
)

// ErrRateLimited is returned when the request budget tracker blocks a
// request before it is sent. Nothing was issued to the store.
var ErrRateLimited = errors.New("request blocked: rate limit critical")

// Config holds the client configuration.
type Config struct {
	// BaseURL is the endpoint root of the storefront API.
	BaseURL string

	// Session is the injected credential pair. Required.
	Session *Session

	// Redis backs the optional list-response cache and the shared rate
	// limit state. Nil disables both.
	Redis *redis.Client

	// UserAgent header sent on every request.
	UserAgent string

	// Timeout per HTTP request.
	Timeout time.Duration

	// CacheTTL is how long successful list responses stay cached.
	// Zero disables caching even when Redis is configured.
	CacheTTL time.Duration

	// RateLimitThreshold blocks requests when the advertised remaining
	// budget drops below it. Zero disables gating.
	RateLimitThreshold int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string, session *Session) Config {
	return Config{
		BaseURL:            baseURL,
		Session:            session,
		UserAgent:          "storefront-client/0.1.0",
		Timeout:            30 * time.Second,
		CacheTTL:           60 * time.Second,
		RateLimitThreshold: 5,
	}
}

// Client is the storefront API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	session    *Session
	cache      *cache.Manager
	limiter    *ratelimit.Tracker
	config     Config
	logger     zerolog.Logger

	refreshMu  sync.Mutex
	refreshing *refreshCall
}

// New creates a new storefront client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	if cfg.Session == nil {
		return nil, fmt.Errorf("session is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := logging.NewLogger("storefront-client")

	var cacheManager *cache.Manager
	var limiter *ratelimit.Tracker
	if cfg.Redis != nil {
		if cfg.CacheTTL > 0 {
			cacheManager = cache.NewManager(cfg.Redis)
		}
		if cfg.RateLimitThreshold > 0 {
			limiter = ratelimit.NewTracker(cfg.Redis, cfg.RateLimitThreshold, logger)
		}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		session: cfg.Session,
		cache:   cacheManager,
		limiter: limiter,
		config:  cfg,
		logger:  logger,
	}, nil
}

// ListResult is one page of a list endpoint: raw items plus the pagination
// metadata used to position the next request.
type ListResult struct {
	Data       json.RawMessage
	Pagination *Pagination
}

// requestSpec describes one outgoing request. The body is kept as bytes so
// the request can be rebuilt for the post-refresh replay.
type requestSpec struct {
	method string
	path   string
	query  url.Values
	body   []byte
	authed bool
}

// GetJSON performs a GET request and decodes the envelope data into out.
// A nil out discards the data.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	env, err := c.do(ctx, requestSpec{
		method: http.MethodGet,
		path:   path,
		query:  query,
		authed: true,
	})
	if err != nil {
		return err
	}
	return unmarshalData(env, out)
}

// PostJSON performs a POST request with a JSON body and decodes the envelope
// data into out. A nil out discards the data.
func (c *Client) PostJSON(ctx context.Context, path string, body any, out any) error {
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	env, err := c.do(ctx, requestSpec{
		method: http.MethodPost,
		path:   path,
		body:   raw,
		authed: true,
	})
	if err != nil {
		return err
	}
	return unmarshalData(env, out)
}

// Get performs a GET request with raw query values and returns the decoded
// envelope payload along with any pagination metadata. Useful when the
// caller forwards query parameters verbatim instead of building ListParams.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*ListResult, error) {
	env, err := c.do(ctx, requestSpec{
		method: http.MethodGet,
		path:   path,
		query:  query,
		authed: true,
	})
	if err != nil {
		return nil, err
	}
	return &ListResult{Data: env.Data, Pagination: env.Pagination}, nil
}

// List fetches one page of a list endpoint. Successful pages are served
// from and stored into the response cache when one is configured.
func (c *Client) List(ctx context.Context, path string, params ListParams) (*ListResult, error) {
	query := params.Values()

	cacheKey := cache.Key{Endpoint: path, Query: query}
	if c.cache != nil {
		entry, err := c.cache.Get(ctx, cacheKey)
		if err != nil && err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", path).Msg("Cache get error")
		}
		if entry != nil {
			env, decErr := decodeEnvelope(entry.Data, entry.StatusCode)
			if decErr == nil {
				c.logger.Debug().Str("endpoint", path).Msg("List served from cache")
				return &ListResult{Data: env.Data, Pagination: env.Pagination}, nil
			}
			// Corrupted entry: drop it and fall through to the network.
			_ = c.cache.Delete(ctx, cacheKey)
		}
	}

	env, body, status, err := c.doRaw(ctx, requestSpec{
		method: http.MethodGet,
		path:   path,
		query:  query,
		authed: true,
	})
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		entry := &cache.Entry{
			Data:       body,
			StatusCode: status,
			CachedAt:   time.Now(),
			Expires:    time.Now().Add(c.config.CacheTTL),
		}
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", path).Msg("Failed to cache list response")
		}
	}

	return &ListResult{Data: env.Data, Pagination: env.Pagination}, nil
}

// do executes a request and returns its decoded envelope.
func (c *Client) do(ctx context.Context, spec requestSpec) (*envelope, error) {
	env, _, _, err := c.doRaw(ctx, spec)
	return env, err
}

// doRaw is the core request path: rate gate, execute, refresh-and-replay on
// an authorization failure, decode. It returns the decoded envelope along
// with the raw body and status for the caching layer.
func (c *Client) doRaw(ctx context.Context, spec requestSpec) (*envelope, []byte, int, error) {
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(spec.path).Observe(time.Since(startTime).Seconds())
	}()

	if c.limiter != nil {
		allowed, err := c.limiter.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Rate limit check failed, allowing request")
		} else if !allowed {
			c.logger.Warn().
				Str("endpoint", spec.path).
				Msg("Request blocked by rate limiter")
			requestsTotal.WithLabelValues(spec.path, "rate_limited").Inc()
			return nil, nil, 0, ErrRateLimited
		}
	}

	status, body, err := c.roundTrip(ctx, spec)
	if err != nil {
		errorsTotal.WithLabelValues(string(Classify(err))).Inc()
		requestsTotal.WithLabelValues(spec.path, "network_error").Inc()
		return nil, nil, 0, err
	}

	// An authorization failure gets exactly one shared refresh and one
	// replay. A second 401 surfaces as UnauthorizedError, never a loop.
	if status == http.StatusUnauthorized && spec.authed {
		c.logger.Debug().
			Str("endpoint", spec.path).
			Msg("Authorization failure, refreshing credentials")

		if refreshErr := c.refreshSession(ctx); refreshErr != nil {
			errorsTotal.WithLabelValues(string(ErrorClassUnauthorized)).Inc()
			requestsTotal.WithLabelValues(spec.path, "401").Inc()
			return nil, nil, 0, &UnauthorizedError{Err: refreshErr}
		}

		status, body, err = c.roundTrip(ctx, spec)
		if err != nil {
			errorsTotal.WithLabelValues(string(Classify(err))).Inc()
			requestsTotal.WithLabelValues(spec.path, "network_error").Inc()
			return nil, nil, 0, err
		}
		if status == http.StatusUnauthorized {
			errorsTotal.WithLabelValues(string(ErrorClassUnauthorized)).Inc()
			requestsTotal.WithLabelValues(spec.path, "401").Inc()
			return nil, nil, 0, &UnauthorizedError{}
		}
	}

	requestsTotal.WithLabelValues(spec.path, fmt.Sprintf("%d", status)).Inc()

	env, err := decodeEnvelope(body, status)
	if err != nil {
		// A failing status with a non-JSON body (e.g. an HTML gateway
		// page) is a server failure, not a client-side parse bug.
		var parseErr *ParseError
		if errors.As(err, &parseErr) && status >= 400 {
			err = &ServerError{
				StatusCode: status,
				Code:       fmt.Sprintf("http_%d", status),
				Message:    http.StatusText(status),
			}
		}
		errorsTotal.WithLabelValues(string(Classify(err))).Inc()
		c.logger.Warn().
			Err(err).
			Str("endpoint", spec.path).
			Int("status", status).
			Msg("Storefront request failed")
		return nil, nil, 0, err
	}

	// A failing status without a failure envelope still has to become a
	// typed error, never ordinary data.
	if status >= 400 {
		srvErr := &ServerError{
			StatusCode: status,
			Code:       fmt.Sprintf("http_%d", status),
			Message:    http.StatusText(status),
		}
		errorsTotal.WithLabelValues(string(ErrorClassServer)).Inc()
		return nil, nil, 0, srvErr
	}

	return env, body, status, nil
}

// roundTrip builds and executes a single HTTP request, returning the status
// and the fully read body.
func (c *Client) roundTrip(ctx context.Context, spec requestSpec) (int, []byte, error) {
	reqURL := c.baseURL + "/" + strings.TrimLeft(spec.path, "/")
	if len(spec.query) > 0 {
		reqURL += "?" + spec.query.Encode()
	}

	var bodyReader io.Reader
	if spec.body != nil {
		bodyReader = bytes.NewReader(spec.body)
	}

	req, err := http.NewRequestWithContext(ctx, spec.method, reqURL, bodyReader)
	if err != nil {
		return 0, nil, &NetworkError{Err: err}
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if spec.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// The refresh call itself is the one request that goes out without
	// credentials attached.
	if spec.authed {
		req.Header.Set("Authorization", "Bearer "+c.session.AccessToken())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", spec.path).Msg("HTTP request failed")
		return 0, nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if c.limiter != nil {
		if err := c.limiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &NetworkError{Err: err}
	}

	return resp.StatusCode, body, nil
}

// unmarshalData decodes envelope data into out. Missing data leaves out
// untouched (the no-content case).
func unmarshalData(env *envelope, out any) error {
	if out == nil || env.Data == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &ParseError{Err: err}
	}
	return nil
}

// Session returns the injected credential session.
func (c *Client) Session() *Session {
	return c.session
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
