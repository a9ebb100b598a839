package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProber(retries int) *HTTPProber {
	return NewHTTPProber(Config{
		Timeout:    2 * time.Second,
		Retries:    retries,
		RetryDelay: 10 * time.Millisecond,
	}, nil)
}

func TestHTTPProber_ReturnsStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/healthz", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	code, err := testProber(0).Probe(context.Background(), http.MethodGet, srv.URL+"/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
}

func TestHTTPProber_ErrorStatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	code, err := testProber(0).Probe(context.Background(), http.MethodGet, srv.URL)
	require.NoError(t, err, "5xx is an observation, not a probe failure")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestHTTPProber_RetriesTransportFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	// Closed server: every attempt fails at the transport level.
	deadURL := srv.URL
	srv.Close()

	_, err := testProber(2).Probe(context.Background(), http.MethodGet, deadURL)
	require.Error(t, err)
	assert.Zero(t, calls.Load())
}

func TestHTTPProber_HonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testProber(3).Probe(ctx, http.MethodGet, "http://127.0.0.1:1/never")
	assert.ErrorIs(t, err, context.Canceled)
}
