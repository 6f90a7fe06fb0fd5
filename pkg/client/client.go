// Package client provides the upstream catalog HTTP client with an error
// budget, Redis response caching, optional retries and Prometheus metrics.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/catalog-feed/pkg/cache"
	"github.com/Sternrassler/catalog-feed/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// maxBodyBytes caps how much of an upstream body is read.
const maxBodyBytes = 8 << 20

// Prometheus metrics for upstream operations.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_upstream_requests_total",
		Help: "Total upstream list requests by status",
	}, []string{"status"})

	upstreamRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_upstream_request_duration_seconds",
		Help:    "Upstream list request duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_upstream_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

// ListEntry is one reference in the upstream list payload.
type ListEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ListResponse is the upstream list payload.
type ListResponse struct {
	Count   int         `json:"count"`
	Results []ListEntry `json:"results"`
}

// Client talks to the remote catalog.
type Client struct {
	httpClient  *http.Client
	errorBudget *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	listURL     *url.URL
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the catalog API, e.g. "https://pokeapi.co/api/v2"
	BaseURL string

	// Resource is the listed collection, e.g. "pokemon"
	Resource string

	// UserAgent sent with every request
	UserAgent string

	// Timeout per HTTP request
	Timeout time.Duration

	// Redis enables the response cache and the shared error budget (optional)
	Redis *redis.Client

	// CacheTTL applies to responses without an Expires header
	CacheTTL time.Duration

	// ErrorBudget sizes the upstream failure budget
	ErrorBudget ratelimit.Config

	// Retry configures transport-level retries; MaxAttempts 1 disables them
	Retry RetryConfig
}

// DefaultConfig returns a configuration for the public PokeAPI.
func DefaultConfig(redisClient *redis.Client, userAgent string) Config {
	return Config{
		BaseURL:     "https://pokeapi.co/api/v2",
		Resource:    "pokemon",
		UserAgent:   userAgent,
		Timeout:     30 * time.Second,
		Redis:       redisClient,
		CacheTTL:    10 * time.Minute,
		ErrorBudget: ratelimit.DefaultConfig(),
		Retry:       DefaultRetryConfig(),
	}
}

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Resource == "" {
		return nil, fmt.Errorf("resource is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}

	logger := log.With().Str("component", "catalog-client").Logger()

	listURL := base.JoinPath(strings.Trim(cfg.Resource, "/"))

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		listURL:    listURL,
		logger:     logger,
	}

	if cfg.Redis != nil {
		c.errorBudget = ratelimit.NewTracker(cfg.Redis, cfg.ErrorBudget, logger)
		c.cache = cache.NewManager(cfg.Redis, cfg.CacheTTL)
	} else {
		logger.Info().Msg("Redis not configured - response cache and error budget disabled")
	}

	return c, nil
}

// Resource returns the upstream collection name.
func (c *Client) Resource() string {
	return c.config.Resource
}

// List fetches one window of the upstream list.
func (c *Client) List(ctx context.Context, limit, offset int) (*ListResponse, error) {
	if limit < 1 || offset < 0 {
		return nil, fmt.Errorf("invalid window limit=%d offset=%d", limit, offset)
	}

	key := cache.Key{Resource: c.config.Resource, Limit: limit, Offset: offset}
	body, err := c.fetch(ctx, key)
	if err != nil {
		return nil, err
	}

	list, err := decodeList(body)
	if err != nil {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassMalformed)).Inc()
		c.logger.Error().
			Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("Malformed upstream list payload")
		if c.cache != nil {
			_ = c.cache.Delete(ctx, key)
		}
		return nil, &UpstreamError{
			StatusCode: http.StatusOK,
			Class:      ErrorClassMalformed,
			Message:    "unexpected list payload",
			Err:        err,
		}
	}
	return list, nil
}

// fetch returns the body for a window, going through the error budget and
// the cache.
func (c *Client) fetch(ctx context.Context, key cache.Key) ([]byte, error) {
	var cached *cache.Entry
	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil && !entry.IsExpired():
			c.logger.Debug().Str("key", key.String()).Msg("Cache hit")
			return entry.Data, nil
		case err == nil:
			cached = entry
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache get error")
		}
	}

	if c.errorBudget != nil {
		allowed, err := c.errorBudget.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Error budget check failed")
		} else if !allowed {
			upstreamRequestsTotal.WithLabelValues("blocked").Inc()
			return nil, &UpstreamError{
				StatusCode: http.StatusServiceUnavailable,
				Class:      ErrorClassRateLimit,
				Message:    "upstream temporarily disabled",
				Err:        ratelimit.ErrBudgetExhausted,
			}
		}
	}

	startTime := time.Now()
	defer func() {
		upstreamRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	var (
		body        []byte
		notModified bool
		newExpires  time.Time
	)

	err := retryWithBackoff(ctx, c.config.Retry, c.logger, classifyError, func() error {
		var attemptErr error
		body, notModified, newExpires, attemptErr = c.do(ctx, key, cached)
		if attemptErr != nil {
			var upErr *UpstreamError
			if errors.As(attemptErr, &upErr) {
				upstreamErrorsTotal.WithLabelValues(string(upErr.Class)).Inc()
			}
			c.recordFailure(ctx)
		}
		return attemptErr
	})
	if err != nil {
		return nil, err
	}

	if notModified {
		cache.NotModifiedResponses.Inc()
		c.logger.Debug().Str("key", key.String()).Msg("304 Not Modified - using cache")
		if err := c.cache.Refresh(ctx, key, cached, newExpires); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		}
		return cached.Data, nil
	}

	return body, nil
}

// do performs one HTTP attempt.
func (c *Client) do(ctx context.Context, key cache.Key, cached *cache.Entry) ([]byte, bool, time.Time, error) {
	u := *c.listURL
	q := u.Query()
	q.Set("limit", strconv.Itoa(key.Limit))
	q.Set("offset", strconv.Itoa(key.Offset))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, false, time.Time{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	if cached.CanRevalidate() {
		cache.AddConditionalHeaders(req, cached)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("key", key.String()).
			Str("etag", cached.ETag).
			Msg("Making conditional request")
	}

	c.logger.Debug().
		Int("limit", key.Limit).
		Int("offset", key.Offset).
		Msg("Executing upstream request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		upstreamRequestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Error().Err(err).Msg("Upstream request failed")
		return nil, false, time.Time{}, &UpstreamError{
			Class:   ErrorClassNetwork,
			Message: "request failed",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	upstreamRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		var expires time.Time
		if raw := resp.Header.Get("Expires"); raw != "" {
			if t, err := http.ParseTime(raw); err == nil {
				expires = t
			}
		}
		return nil, true, expires, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		class := classifyStatus(resp.StatusCode)
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Upstream request error")
		return nil, false, time.Time{}, &UpstreamError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Message:    resp.Status,
		}
	}

	resp.Body = io.NopCloser(io.LimitReader(resp.Body, maxBodyBytes))

	if c.cache == nil {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, time.Time{}, &UpstreamError{
				StatusCode: resp.StatusCode,
				Class:      ErrorClassNetwork,
				Message:    "read body",
				Err:        err,
			}
		}
		return body, false, time.Time{}, nil
	}

	entry, err := cache.ResponseToEntry(resp, c.cache.FallbackTTL())
	if err != nil {
		return nil, false, time.Time{}, &UpstreamError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassNetwork,
			Message:    "read body",
			Err:        err,
		}
	}
	if _, err := decodeList(entry.Data); err == nil {
		if err := c.cache.Set(ctx, key, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("key", key.String()).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}
	return entry.Data, false, time.Time{}, nil
}

func (c *Client) recordFailure(ctx context.Context) {
	if c.errorBudget == nil {
		return
	}
	if err := c.errorBudget.RecordFailure(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to record upstream failure")
	}
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil without Redis.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}

// classifyStatus categorizes a non-2xx upstream status.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// classifyError maps an attempt error to its class.
func classifyError(err error) ErrorClass {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Class
	}
	return ErrorClassNetwork
}

// decodeList validates that body is {"count": int, "results": [...]}.
func decodeList(body []byte) (*ListResponse, error) {
	var raw struct {
		Count   *int         `json:"count"`
		Results *[]ListEntry `json:"results"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if raw.Count == nil || raw.Results == nil {
		return nil, fmt.Errorf("%w: missing count or results", ErrMalformedResponse)
	}
	if *raw.Count < 0 {
		return nil, fmt.Errorf("%w: negative count %d", ErrMalformedResponse, *raw.Count)
	}
	return &ListResponse{Count: *raw.Count, Results: *raw.Results}, nil
}
