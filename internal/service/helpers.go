package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

const mib = 1024 * 1024

// retryPolicy retries an operation only when it failed with a
// connection-timeout class error. Attempts counts retries, not calls.
type retryPolicy struct {
	attempts int
	delay    time.Duration
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func withRetry[T any](ctx context.Context, p retryPolicy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !isTimeout(err) {
			return zero, err
		}
		if attempt >= p.attempts {
			return zero, fmt.Errorf("%w: %s: %v", ErrTimeout, op, err)
		}

		slog.Warn("retrying after timeout", "op", op, "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(p.delay):
		}
	}
}

// mediaDownloader fetches source media for push-style uploads. Every fetch
// gets its own timeout and timed-out fetches are retried.
type mediaDownloader struct {
	client  *http.Client
	timeout time.Duration
	retry   retryPolicy
}

func newMediaDownloader(client *http.Client, timeout time.Duration) *mediaDownloader {
	return &mediaDownloader{
		client:  client,
		timeout: timeout,
		retry:   retryPolicy{attempts: 3, delay: 2 * time.Second},
	}
}

func (d *mediaDownloader) Download(ctx context.Context, rawURL string) ([]byte, error) {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}

	return withRetry(ctx, d.retry, "download media from "+host, func(ctx context.Context) ([]byte, error) {
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid media url: %v", ErrInvalidPost, err)
		}

		resp, err := d.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, protocolError("download media from "+host, resp.StatusCode, http.StatusText(resp.StatusCode))
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, protocolError("download media from "+host, resp.StatusCode, "empty body")
		}
		return data, nil
	})
}

// doRequest sends req and returns the status and the fully read body.
func doRequest(client *http.Client, req *http.Request) (int, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("error reading response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// errorDetail pulls a human readable message out of an error response body.
func errorDetail(body []byte) string {
	for _, path := range []string{"error.message", "errors.0.detail", "errors.0.message", "detail", "error.code"} {
		if v := gjson.GetBytes(body, path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	if len(body) > 200 {
		return string(body[:200])
	}
	return string(body)
}

// bearerClient wraps base so every request carries the access token as a
// bearer Authorization header.
func bearerClient(ctx context.Context, base *http.Client, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
}
