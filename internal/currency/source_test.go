package currency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPRateSource_FetchRate(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"base":"USD","rates":{"CAD":1.3521,"EUR":0.91}}`)

	rate, err := NewHTTPRateSource(srv.URL, time.Second).FetchRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.3521", rate.String())
}

func TestHTTPRateSource_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{}`},
		{"malformed json", http.StatusOK, `{"rates":`},
		{"missing CAD", http.StatusOK, `{"rates":{"EUR":0.91}}`},
		{"non-positive rate", http.StatusOK, `{"rates":{"CAD":0}}`},
		{"string garbage", http.StatusOK, `{"rates":{"CAD":"abc"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.status, tt.body)
			_, err := NewHTTPRateSource(srv.URL, time.Second).FetchRate(context.Background())
			assert.ErrorIs(t, err, core.ErrExchangeRateFetch)
		})
	}
}

func TestHTTPRateSource_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	_, err := NewHTTPRateSource(srv.URL, 50*time.Millisecond).FetchRate(context.Background())
	assert.ErrorIs(t, err, core.ErrExchangeRateFetch)
}

func TestHTTPRateSource_Unreachable(t *testing.T) {
	srv := serve(t, http.StatusOK, `{}`)
	url := srv.URL
	srv.Close()

	_, err := NewHTTPRateSource(url, time.Second).FetchRate(context.Background())
	assert.ErrorIs(t, err, core.ErrExchangeRateFetch)
}
