// Package sensor talks to the bin's detection backend over HTTP.
package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rewired-gh/smartbin/internal/engine"
	"github.com/rewired-gh/smartbin/internal/logger"
	"github.com/rewired-gh/smartbin/internal/models"
)

// Client provides access to the detection backend. It implements
// engine.LogSource, engine.FillSource, engine.HealthSource and
// engine.DataClearer.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
}

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	StatusCode int
	Body       string // first 512 bytes
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures a Client.
type Option func(*Client)

// WithRetries sets the retry count and the base of the exponential backoff.
func WithRetries(maxRetries int, delayBase time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryDelayBase = delayBase
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// NewClient creates a new backend client
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries:     3,
		retryDelayBase: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ engine.LogSource    = (*Client)(nil)
	_ engine.FillSource   = (*Client)(nil)
	_ engine.HealthSource = (*Client)(nil)
	_ engine.DataClearer  = (*Client)(nil)
)

// FetchLogs retrieves the raw detection log, oldest entry first. Entries
// that do not decode are logged and skipped.
func (c *Client) FetchLogs(ctx context.Context) ([]models.DetectionLogEntry, error) {
	var response struct {
		Logs []json.RawMessage `json:"logs"`
	}
	if err := c.do(ctx, http.MethodGet, "/logs/", &response); err != nil {
		return nil, fmt.Errorf("failed to fetch logs: %w", err)
	}

	entries := make([]models.DetectionLogEntry, 0, len(response.Logs))
	for i, raw := range response.Logs {
		var entry models.DetectionLogEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			logger.Warn("Skipping undecodable log entry %d: %v", i, err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// FetchFill retrieves the gauge's fill percentage.
func (c *Client) FetchFill(ctx context.Context) (float64, error) {
	// Older backends report the reading under "fill".
	var response struct {
		FillPercent *float64 `json:"fillPercent"`
		Fill        *float64 `json:"fill"`
	}
	if err := c.do(ctx, http.MethodGet, "/fill/", &response); err != nil {
		return 0, fmt.Errorf("failed to fetch fill: %w", err)
	}

	switch {
	case response.FillPercent != nil:
		return *response.FillPercent, nil
	case response.Fill != nil:
		return *response.Fill, nil
	default:
		return 0, fmt.Errorf("fill response carries no reading")
	}
}

// FetchHealth reports backend liveness. Any status other than "ok" is
// treated as degraded.
func (c *Client) FetchHealth(ctx context.Context) (engine.Health, error) {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health/", &response); err != nil {
		return "", fmt.Errorf("failed to fetch health: %w", err)
	}
	if strings.EqualFold(strings.TrimSpace(response.Status), string(engine.HealthOK)) {
		return engine.HealthOK, nil
	}
	return engine.HealthDegraded, nil
}

// ClearData wipes the backend's current detection log.
func (c *Client) ClearData(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/clearData/", nil); err != nil {
		return fmt.Errorf("failed to clear data: %w", err)
	}
	return nil
}

// do performs a request with retry logic. Transport errors and 5xx responses
// are retried with exponential backoff; other non-2xx responses are not.
// dest may be nil when the body is ignored.
func (c *Client) do(ctx context.Context, method, path string, dest any) error {
	url := c.baseURL + path
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.retryDelayBase * time.Duration(1<<(attempt-1))
			logger.Debug("Retrying %s %s in %v (attempt %d/%d): %v", method, path, wait, attempt, c.maxRetries, lastErr)
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if dest == nil {
				return nil
			}
			if err := json.Unmarshal(body, dest); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return nil
		}

		bodyStr := string(body)
		if len(bodyStr) > 512 {
			bodyStr = bodyStr[:512]
		}
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: bodyStr}
		if resp.StatusCode >= 500 {
			lastErr = statusErr
			continue
		}
		return statusErr
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
