// Package github provides the quota-aware GitHub API fetcher with response
// caching, bounded retry, and outcome classification.
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ghcatalog/extractor/pkg/cache"
	"github.com/ghcatalog/extractor/pkg/logging"
	"github.com/ghcatalog/extractor/pkg/quota"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for fetch operations.
var (
	ghxRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghx_requests_total",
		Help: "Total GitHub API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	ghxRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ghx_request_duration_seconds",
		Help:    "GitHub API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	ghxErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghx_errors_total",
		Help: "Total GitHub API errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the public GitHub API base URL.
const DefaultBaseURL = "https://api.github.com"

// Config holds the fetcher configuration.
type Config struct {
	// BaseURL of the API (overridable for tests).
	BaseURL string

	// Token is an optional bearer credential. Unauthenticated requests are
	// limited to 60 calls per hour.
	Token string

	// UserAgent header (required by the API).
	UserAgent string

	// Cache is the response cache; nil disables caching.
	Cache cache.Store

	// Budget is the run-scoped call budget (required).
	Budget *quota.Budget

	// Retry configures backoff for transient failures.
	Retry RetryConfig

	// Timeout per HTTP request.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(budget *quota.Budget) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: "gh-catalog-extractor/1.0",
		Budget:    budget,
		Retry:     DefaultRetryConfig(),
		Timeout:   30 * time.Second,
	}
}

// Client is the quota-aware fetcher. Every successful raw response is handed
// to the cache before being returned; the cache is consulted before any
// network call, and a hit never spends budget.
type Client struct {
	httpClient *http.Client
	cache      cache.Store
	budget     *quota.Budget
	config     Config
	logger     zerolog.Logger
}

// New creates a new fetcher.
func New(cfg Config) (*Client, error) {
	if cfg.Budget == nil {
		return nil, fmt.Errorf("call budget is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cfg.Cache,
		budget:     cfg.Budget,
		config:     cfg,
		logger:     logging.NewLogger("github-fetcher"),
	}, nil
}

// Result is a fetched raw response.
type Result struct {
	// Body is the raw response body.
	Body []byte

	// FromCache reports whether the body was replayed from the cache
	// without a network call.
	FromCache bool
}

// ListPage fetches one list-phase page: repositories with identifiers
// strictly greater than since, ascending, at most perPage entries.
func (c *Client) ListPage(ctx context.Context, since int64, perPage int) (*Result, error) {
	key := cache.Key{Kind: cache.KindList, Since: since, PerPage: perPage}
	url := fmt.Sprintf("%s/repositories?since=%d&per_page=%d", c.config.BaseURL, since, perPage)
	return c.fetch(ctx, key, "/repositories", url)
}

// Detail fetches the full record for one repository.
func (c *Client) Detail(ctx context.Context, owner, name string, repoID int64) (*Result, error) {
	key := cache.Key{Kind: cache.KindDetail, RepoID: repoID}
	url := fmt.Sprintf("%s/repos/%s/%s", c.config.BaseURL, owner, name)
	return c.fetch(ctx, key, "/repos", url)
}

// fetch is the core request method: cache lookup, budget gate, HTTP request
// with retry, quota header tracking, write-through caching.
func (c *Client) fetch(ctx context.Context, key cache.Key, endpoint, url string) (*Result, error) {
	startTime := time.Now()
	defer func() {
		ghxRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check cache. A hit short-circuits the network entirely.
	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		if err == nil {
			c.logger.Debug().
				Str("key", key.String()).
				Bool("cache_hit", true).
				Msg("Replaying cached response")
			return &Result{Body: entry.Data, FromCache: true}, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache get error")
		}
	}

	// Step 2: Execute HTTP request with retry logic. Budget is gated and
	// spent per attempt so retries count against the ceiling too.
	var body []byte
	retryErr := retryWithBackoff(ctx, c.config.Retry, c.logger, func() error {
		if !c.budget.Allow() {
			return ErrQuotaExhausted
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return &APIError{Class: ErrorClassClient, Message: "build request", Err: err}
		}
		req.Header.Set("Accept", "application/vnd.github.v3+json")
		req.Header.Set("User-Agent", c.config.UserAgent)
		if c.config.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.Token)
		}

		c.budget.Spend()

		resp, err := c.httpClient.Do(req)
		if err != nil {
			ghxErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			ghxRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return fmt.Errorf("http request: %w", err)
		}
		defer resp.Body.Close()

		if state, ok := quota.ParseHeaders(resp.Header); ok {
			c.budget.Observe(state)
		}

		ghxRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		if resp.StatusCode != http.StatusOK {
			apiErr := classifyResponse(resp)
			ghxErrorsTotal.WithLabelValues(string(apiErr.Class)).Inc()
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status_code", resp.StatusCode).
				Str("error_class", string(apiErr.Class)).
				Msg("GitHub API error response")
			return apiErr
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response body: %w", err)
		}
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	// Step 3: Hand the successful raw response to the cache before returning.
	if c.cache != nil {
		entry := &cache.Entry{
			Data:       body,
			StatusCode: http.StatusOK,
			FetchedAt:  time.Now().UTC(),
		}
		if err := c.cache.Put(ctx, key, entry); err != nil {
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Failed to cache response")
		}
	}

	return &Result{Body: body}, nil
}

// classifyResponse builds an APIError for a non-200 response.
// Not-found and quota rejections carry their sentinel in the error chain so
// callers can switch on errors.Is.
func classifyResponse(resp *http.Response) *APIError {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &APIError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassClient,
			Message:    resp.Status,
			Err:        ErrNotFound,
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &APIError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassRateLimit,
			Message:    resp.Status,
			Err:        ErrQuotaExhausted,
		}
	case resp.StatusCode == http.StatusForbidden:
		// GitHub reports a spent quota window as 403, but so are access
		// rejections on individual repositories (DMCA takedowns, blocked
		// content). Only the former ends the run; the latter is terminal
		// for the one item.
		if isRateLimited(resp) {
			return &APIError{
				StatusCode: resp.StatusCode,
				Class:      ErrorClassRateLimit,
				Message:    resp.Status,
				Err:        ErrQuotaExhausted,
			}
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassClient,
			Message:    resp.Status,
		}
	case resp.StatusCode >= 500:
		return &APIError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassServer,
			Message:    resp.Status,
		}
	default:
		return &APIError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassClient,
			Message:    resp.Status,
		}
	}
}

// isRateLimited reports whether a 403 means a spent quota window: the
// remaining-quota header reads zero, or, when the headers are absent, the
// error body says so.
func isRateLimited(resp *http.Response) bool {
	if state, ok := quota.ParseHeaders(resp.Header); ok {
		return state.Exhausted()
	}
	if resp.Body == nil {
		return false
	}
	snippet, err := io.ReadAll(io.LimitReader(resp.Body, 512))
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(snippet)), "rate limit")
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
