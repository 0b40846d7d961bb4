package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"upc-catalog/internal/types"
)

const maxBodyBytes = 10 << 20

// StatusError is returned for any non-2xx response
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// HTTPClient provides HTTP functionality with rate limiting and retries
type HTTPClient struct {
	client  *http.Client
	config  *types.Config
	logger  types.Logger
	limiter *rate.Limiter
}

// NewHTTPClient creates a new HTTP client with the given configuration
func NewHTTPClient(config *types.Config, logger types.Logger) *HTTPClient {
	client := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	limit := rate.Inf
	if config.RequestDelay > 0 {
		limit = rate.Every(config.RequestDelay)
	}

	return &HTTPClient{
		client:  client,
		config:  config,
		logger:  logger,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Get performs a GET request with rate limiting. Transport failures, 429 and
// 5xx responses are retried up to MaxRetries times; other statuses fail at once.
func (h *HTTPClient) Get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= h.config.MaxRetries; attempt++ {
		if err := h.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}

		body, err := h.do(ctx, url, attempt)
		if err == nil {
			h.logger.Debugf("Successfully retrieved %d bytes from %s", len(body), url)
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
		h.logger.Warnf("Request to %s failed (attempt %d/%d): %v", url, attempt+1, h.config.MaxRetries+1, err)
	}

	if h.config.MaxRetries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("all retry attempts failed: %w", lastErr)
}

func (h *HTTPClient) do(ctx context.Context, url string, attempt int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", h.config.UserAgent)
	req.Header.Set("Accept", "application/json,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	h.logger.Debugf("Making request to %s (attempt %d/%d)", url, attempt+1, h.config.MaxRetries+1)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

func retryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	return true
}

// Close cleans up resources
func (h *HTTPClient) Close() {
	h.client.CloseIdleConnections()
}
