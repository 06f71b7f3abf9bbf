package chargeconfig_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shipgrid/backend-import/internal/cache"
	"github.com/shipgrid/backend-import/internal/chargeconfig"
	"github.com/shipgrid/backend-import/internal/pricing"
	"github.com/shipgrid/backend-import/internal/resilience"
)

func TestFileSourceLoad(t *testing.T) {
	table, err := chargeconfig.FileSource{Path: "testdata/charges.json"}.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Alberta", "British Columbia", "Ontario"}, table.Labels())
}

func TestFileSourceErrors(t *testing.T) {
	_, err := chargeconfig.FileSource{Path: "testdata/missing.json"}.Load(context.Background())
	require.ErrorIs(t, err, chargeconfig.ErrSourceUnavailable)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Ontario": [{"label": "x", "value": -1}]}`), 0o600))
	_, err = chargeconfig.FileSource{Path: path}.Load(context.Background())
	require.ErrorIs(t, err, pricing.ErrInvalidCharge)
}

func newCache(t *testing.T) *cache.Cache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.New(client, time.Minute, "test:")
}

func TestHTTPSourceFallsBackToLastGoodPayload(t *testing.T) {
	payload, err := os.ReadFile("testdata/charges.json")
	require.NoError(t, err)

	var down atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if down.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	src := chargeconfig.HTTPSource{
		URL:    srv.URL,
		HTTP:   resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 1},
		Cache:  newCache(t),
		Logger: zerolog.Nop(),
	}
	ctx := context.Background()

	table, err := src.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())

	down.Store(true)
	table, err = src.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())
}

func TestHTTPSourceUnavailableWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := chargeconfig.HTTPSource{
		URL:   srv.URL,
		HTTP:  resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 1},
		Cache: newCache(t),
	}
	_, err := src.Load(context.Background())
	require.ErrorIs(t, err, chargeconfig.ErrSourceUnavailable)
}

func TestHTTPSourceRejectsMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Ontario": [{"label": "HST"}]}`))
	}))
	defer srv.Close()

	src := chargeconfig.HTTPSource{
		URL:   srv.URL,
		HTTP:  resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 1},
		Cache: newCache(t),
	}
	_, err := src.Load(context.Background())
	require.ErrorIs(t, err, pricing.ErrInvalidCharge)
}
