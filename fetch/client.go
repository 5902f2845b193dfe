// Package fetch is the engine's outbound HTTP layer. Every request carries
// the configured User-Agent, honors a hard response-size cap, and retries
// transient failures (timeouts, connection resets, 5xx) with exponential
// backoff up to a fixed attempt bound. Client errors (4xx) are permanent.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"newsmill/config"
	"newsmill/logger"
)

var (
	// ErrTooLarge marks a response body over the caller's size cap.
	ErrTooLarge = errors.New("fetch: response exceeds size limit")

	// ErrUnreachable marks a URL that failed every attempt on both schemes.
	ErrUnreachable = errors.New("fetch: unreachable after retries")
)

// StatusError is a non-2xx response. 5xx values are retried, everything
// else is permanent.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: status %d from %s", e.Code, e.URL)
}

func (e *StatusError) retryable() bool { return e.Code >= 500 }

// Client performs bounded-retry HTTP fetches. Zero-valued it is not usable;
// construct with New.
type Client struct {
	http        *http.Client
	userAgent   string
	maxAttempts int
}

func New(timeout time.Duration, userAgent string, maxAttempts int) *Client {
	if maxAttempts < 1 {
		maxAttempts = config.DefaultMaxAttempts
	}
	return &Client{
		http:        &http.Client{Timeout: timeout},
		userAgent:   userAgent,
		maxAttempts: maxAttempts,
	}
}

// Get fetches url with retries and returns the body and its content type.
func (c *Client) Get(ctx context.Context, rawURL string, maxBytes int64) ([]byte, string, error) {
	var (
		body        []byte
		contentType string
	)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = config.RetryInitialInterval
	bo.MaxInterval = config.RetryMaxInterval
	bo.MaxElapsedTime = 0

	attempts := uint64(c.maxAttempts - 1)
	err := backoff.Retry(func() error {
		b, ct, err := c.getOnce(ctx, rawURL, maxBytes)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && !se.retryable() {
				return backoff.Permanent(err)
			}
			if errors.Is(err, ErrTooLarge) || errors.Is(err, context.Canceled) {
				return backoff.Permanent(err)
			}
			return err
		}
		body, contentType = b, ct
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, attempts), ctx))
	if err != nil {
		return nil, "", err
	}
	return body, contentType, nil
}

// GetWithSchemeFallback behaves like Get but, when the https URL fails every
// attempt, retries once more over plain http. Some curated feeds still only
// resolve on http. A dead context skips the fallback, and the https error
// stays on the returned chain so callers can still classify it.
func (c *Client) GetWithSchemeFallback(ctx context.Context, rawURL string, maxBytes int64) ([]byte, string, error) {
	body, contentType, err := c.Get(ctx, rawURL, maxBytes)
	if err == nil {
		return body, contentType, nil
	}

	u, parseErr := url.Parse(rawURL)
	if parseErr != nil || u.Scheme != "https" || ctx.Err() != nil {
		return nil, "", err
	}
	u.Scheme = "http"

	logger.Log.WithField("url", rawURL).Debugf("https fetch failed (%v), retrying over http", err)
	body, contentType, httpErr := c.Get(ctx, u.String(), maxBytes)
	if httpErr != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", ErrUnreachable, rawURL, err)
	}
	return body, contentType, nil
}

func (c *Client) getOnce(ctx context.Context, rawURL string, maxBytes int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &StatusError{Code: resp.StatusCode, URL: rawURL}
	}

	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n > maxBytes {
			return nil, "", fmt.Errorf("%w: content-length %d", ErrTooLarge, n)
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(body)) > maxBytes {
		return nil, "", fmt.Errorf("%w: %s", ErrTooLarge, rawURL)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
