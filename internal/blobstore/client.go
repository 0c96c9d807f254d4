// Package blobstore fetches named JSON objects from the audit bucket.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sdp-sandbox/github-audit-dashboard/internal/errors"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/observability"
)

// Config configures the object store client
type Config struct {
	// Endpoint is the base URL of the object store
	Endpoint string
	// Bucket is the audit bucket name
	Bucket string
	// Timeout bounds a single fetch attempt
	Timeout time.Duration
	// Retries is the number of extra attempts for transient failures
	Retries int
	// Backoff is the delay between attempts, doubled each retry
	Backoff time.Duration
}

// Client fetches objects over HTTP. Any failure comes back as a
// *errors.FetchError naming the bucket and key; callers must check the
// error before touching the payload.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a new object store client
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid object store endpoint %q", cfg.Endpoint)
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 2 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		metrics:    observability.GetMetrics(),
	}, nil
}

// Fetch retrieves the named object. Transient failures are retried with
// doubling backoff up to the configured attempt budget; permanent failures
// (missing object, denied access) return immediately.
func (c *Client) Fetch(ctx context.Context, key string) ([]byte, error) {
	c.metrics.FetchesTotal.WithLabelValues(key).Inc()

	start := time.Now()
	defer func() {
		c.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}()

	backoff := c.cfg.Backoff
	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying object fetch",
				"key", key,
				"attempt", attempt,
				"backoff", backoff.String(),
				"error", lastErr.Error())
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				c.metrics.FetchFailures.WithLabelValues(key).Inc()
				return nil, errors.NewFetchError(c.cfg.Bucket, key, ctx.Err())
			}
			backoff *= 2
		}

		body, err := c.fetchOnce(ctx, key)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !errors.IsTransient(err) {
			break
		}
	}

	c.metrics.FetchFailures.WithLabelValues(key).Inc()
	return nil, errors.NewFetchError(c.cfg.Bucket, key, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, key string) ([]byte, error) {
	objectURL, err := url.JoinPath(c.cfg.Endpoint, c.cfg.Bucket, key)
	if err != nil {
		return nil, errors.NewPermanentf("building object url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, objectURL, nil)
	if err != nil {
		return nil, errors.NewPermanentf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.NewTransient(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, errors.ClassifyHTTPStatus(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransient(err)
	}

	return body, nil
}
