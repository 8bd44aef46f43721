package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newProviderServer wires the token endpoints plus a configurable data
// endpoint under /institutions/.
func newProviderServer(t *testing.T, data http.HandlerFunc) (*httptest.Server, *tokenEndpointStats) {
	t.Helper()
	stats := &tokenEndpointStats{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token/new/", func(w http.ResponseWriter, r *http.Request) {
		stats.newCalls.Add(1)
		_ = json.NewEncoder(w).Encode(tokenResponse{
			Access: "access-1", AccessExpires: 3600,
			Refresh: "refresh-1", RefreshExpires: 86400,
		})
	})
	if data != nil {
		mux.HandleFunc("/institutions/", data)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, stats
}

func TestExecute_AttachesBearerToken(t *testing.T) {
	var gotAuth atomic.Value
	srv, _ := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([]Institution{{ID: "BANK_A"}})
	})
	c := newTestClient(srv)

	institutions, err := c.Institutions(context.Background(), "gb")
	require.NoError(t, err)
	require.Len(t, institutions, 1)
	require.Equal(t, "BANK_A", institutions[0].ID)
	require.Equal(t, "Bearer access-1", gotAuth.Load())
}

func TestExecute_RateLimitWithJSONBody(t *testing.T) {
	srv, _ := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"summary":"s","detail":"d","status_code":429}`))
	})
	c := newTestClient(srv)

	_, err := c.Institutions(context.Background(), "gb")
	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	require.Equal(t, "s", rle.Info.Summary)
	require.Equal(t, "d", rle.Info.Detail)
	require.Equal(t, 429, rle.Info.StatusCode)
}

func TestExecute_RateLimitFallsBackToHeaders(t *testing.T) {
	srv, _ := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", "86400")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("not json"))
	})
	c := newTestClient(srv)

	_, err := c.Institutions(context.Background(), "gb")
	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	require.Equal(t, "60", rle.Info.RetryAfter)
	require.Equal(t, "0", rle.Info.RateLimitRemaining)
	require.Equal(t, "86400", rle.Info.RateLimitReset)
	require.Empty(t, rle.Info.Summary)
}

func TestExecute_NonOKStatusIsAPIError(t *testing.T) {
	srv, _ := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	c := newTestClient(srv)

	_, err := c.Institutions(context.Background(), "gb")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestExecute_NotFoundMatchesSentinel(t *testing.T) {
	srv, _ := newProviderServer(t, nil)
	c := newTestClient(srv)

	_, err := c.Requisition(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExecute_PacesRequests(t *testing.T) {
	srv, _ := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]Institution{})
	})
	c := NewClient(Config{
		BaseURL:      srv.URL,
		SecretID:     "sid",
		SecretKey:    "skey",
		RequestDelay: 50 * time.Millisecond,
	})

	start := time.Now()
	_, err := c.Institutions(context.Background(), "gb")
	require.NoError(t, err)
	_, err = c.Institutions(context.Background(), "gb")
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestCheckRateLimit(t *testing.T) {
	t.Run("not limited", func(t *testing.T) {
		srv, _ := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode([]Institution{})
		})
		c := newTestClient(srv)
		status, err := c.CheckRateLimit(context.Background(), "")
		require.NoError(t, err)
		require.False(t, status.RateLimited)
		require.Nil(t, status.Info)
	})

	t.Run("limited with body detail", func(t *testing.T) {
		srv, _ := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"summary":"daily limit","detail":"come back tomorrow","status_code":429}`))
		})
		c := newTestClient(srv)
		status, err := c.CheckRateLimit(context.Background(), "")
		require.NoError(t, err)
		require.True(t, status.RateLimited)
		require.NotNil(t, status.Info)
		require.Equal(t, "daily limit", status.Info.Summary)
	})
}
