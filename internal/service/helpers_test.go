package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestWithRetry_RetriesTimeoutsThenSucceeds(t *testing.T) {
	calls := 0
	v, err := withRetry(context.Background(), retryPolicy{attempts: 3, delay: time.Millisecond}, "op",
		func(ctx context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", timeoutError{}
			}
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_GivesUpAfterThreeRetries(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), retryPolicy{attempts: 3, delay: time.Millisecond}, "op",
		func(ctx context.Context) (int, error) {
			calls++
			return 0, timeoutError{}
		})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 4, calls)
}

func TestWithRetry_DoesNotRetryOtherErrors(t *testing.T) {
	calls := 0
	boom := errors.New("connection refused")
	_, err := withRetry(context.Background(), retryPolicy{attempts: 3, delay: time.Millisecond}, "op",
		func(ctx context.Context) (int, error) {
			calls++
			return 0, boom
		})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestMediaDownloader_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("video-bytes"))
	}))
	defer srv.Close()

	d := newMediaDownloader(srv.Client(), time.Second)

	data, err := d.Download(context.Background(), srv.URL+"/clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, []byte("video-bytes"), data)

	_, err = d.Download(context.Background(), srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestMediaDownloader_TimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	d := newMediaDownloader(srv.Client(), 20*time.Millisecond)
	d.retry = retryPolicy{attempts: 1, delay: time.Millisecond}

	_, err := d.Download(context.Background(), srv.URL+"/slow.mp4")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestErrorDetail(t *testing.T) {
	assert.Equal(t, "Invalid OAuth access token.", errorDetail([]byte(`{"error":{"message":"Invalid OAuth access token.","code":190}}`)))
	assert.Equal(t, "Unauthorized", errorDetail([]byte(`{"errors":[{"detail":"Unauthorized"}]}`)))
	assert.Equal(t, "plain", errorDetail([]byte("plain")))
}
