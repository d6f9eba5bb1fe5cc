package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pagewalk/internal/metrics"
	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/desertthunder/pagewalk/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL    = "https://api.soundcloud.com"
	defaultAuthScheme = "OAuth"
	defaultPageSize   = 50
	maxPageSize       = 200
)

// ListingClient issues authorized GET requests against a paginated JSON API.
//
// Transient failures (network errors and 408, 429, 500, 502, 503, 504) are retried with exponential backoff.
// Requests from every [Listing] built by one client share its rate limiter.
type ListingClient struct {
	baseURL    string
	authScheme string
	httpClient *http.Client
	limiter    *rate.Limiter
	attempts   int
	baseDelay  time.Duration
	logger     *log.Logger
}

// ClientOption configures a [ListingClient].
type ClientOption func(*ListingClient)

// WithHTTPClient replaces the default client (which uses the configured timeout).
func WithHTTPClient(c *http.Client) ClientOption {
	return func(lc *ListingClient) {
		if c != nil {
			lc.httpClient = c
		}
	}
}

// WithClientLogger sets the logger used for retry warnings.
func WithClientLogger(l *log.Logger) ClientOption {
	return func(lc *ListingClient) {
		if l != nil {
			lc.logger = l
		}
	}
}

// NewListingClient creates a client from the API configuration.
func NewListingClient(cfg shared.APIConfig, opts ...ClientOption) *ListingClient {
	c := &ListingClient{
		baseURL:    cfg.BaseURL,
		authScheme: cfg.AuthScheme,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		attempts:   cfg.MaxAttempts,
		baseDelay:  cfg.BaseDelay(),
		logger:     shared.DiscardLogger(),
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.authScheme == "" {
		c.authScheme = defaultAuthScheme
	}
	if c.attempts <= 0 {
		c.attempts = 3
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get fetches rawURL and returns the body of a 2xx response.
//
// 401 is reported as [shared.ErrTokenExpired] so the caller can refresh and try once more.
func (c *ListingClient) get(ctx context.Context, rawURL string, cred models.Credential) ([]byte, error) {
	delay := c.baseDelay
	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		status, body, err := c.once(ctx, rawURL, cred)
		if err == nil && !retryableStatus(status) {
			if err := statusError(status); err != nil {
				return nil, err
			}
			return body, nil
		}

		if attempt >= c.attempts {
			if err != nil {
				return nil, fmt.Errorf("%w: %w", shared.ErrRequestFailed, err)
			}
			return nil, statusError(status)
		}

		metrics.ObserveRetry(status)
		c.logger.Warn("retrying request", "url", rawURL, "status", status, "attempt", attempt, "backoff", delay, "err", err)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
}

func (c *ListingClient) once(ctx context.Context, rawURL string, cred models.Credential) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", c.authScheme+" "+cred.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func statusError(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: status %d", shared.ErrTokenExpired, status)
	case status == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %w", shared.ErrRequestFailed, shared.ErrServiceUnavailable)
	default:
		return fmt.Errorf("%w: status %d", shared.ErrRequestFailed, status)
	}
}
