package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestGetSendsConfiguredUserAgent(t *testing.T) {
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewHTTPClient(nil, zaptest.NewLogger(t))
	defer client.Close()

	resp, err := client.Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "harvest/1.0", gotAgent)
}

func TestGetHeaderOverridesUserAgent(t *testing.T) {
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewHTTPClient(nil, zaptest.NewLogger(t))
	defer client.Close()

	resp, err := client.Get(context.Background(), srv.URL, map[string]string{"User-Agent": "Mozilla/5.0"})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "Mozilla/5.0", gotAgent)
}

func TestGetStatsCountsRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	client := NewHTTPClient(nil, zaptest.NewLogger(t))
	defer client.Close()

	resp, err := client.Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	resp.Body.Close()

	// A closed server makes the next request fail at the transport
	srv.Close()
	_, err = client.Get(context.Background(), srv.URL, nil)
	require.Error(t, err)

	stats := client.GetStats()
	assert.Equal(t, int64(2), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.FailedRequests)
	assert.InDelta(t, 50.0, stats.SuccessRate, 1e-9)
}
