// Package chargeconfig loads province charge tables and keeps the active table current.
package chargeconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/shipgrid/backend-import/internal/cache"
	"github.com/shipgrid/backend-import/internal/pricing"
	"github.com/shipgrid/backend-import/internal/resilience"
)

// ErrSourceUnavailable is returned when no charge table could be obtained.
var ErrSourceUnavailable = errors.New("chargeconfig: charge table source unavailable")

const maxPayloadBytes = 4 << 20

// Source produces a fully validated charge table.
type Source interface {
	Load(ctx context.Context) (*pricing.ChargeTable, error)
	Name() string
}

// FileSource reads the charge table payload from disk.
type FileSource struct {
	Path string
}

// Name identifies the source in logs and metrics.
func (FileSource) Name() string { return "file" }

// Load parses the file at Path.
func (s FileSource) Load(_ context.Context) (*pricing.ChargeTable, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer func() { _ = f.Close() }()
	table, err := pricing.DecodeChargeTable(io.LimitReader(f, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	return table, nil
}

// HTTPSource fetches the payload from the configuration service. The last payload
// that parsed cleanly is kept in Redis and served when the service is down.
type HTTPSource struct {
	URL    string
	HTTP   resilience.HTTPClient
	Cache  *cache.Cache
	Logger zerolog.Logger
}

// Name identifies the source in logs and metrics.
func (HTTPSource) Name() string { return "http" }

// Load fetches, validates and caches the payload.
func (s HTTPSource) Load(ctx context.Context) (*pricing.ChargeTable, error) {
	payload, fetchErr := s.fetch(ctx)
	if fetchErr == nil {
		table, err := pricing.DecodeChargeTable(bytes.NewReader(payload))
		if err != nil {
			// a malformed payload is a configuration error; never fall back over it silently
			return nil, fmt.Errorf("parse charge table from %s: %w", s.URL, err)
		}
		if err := s.Cache.SetBytes(ctx, cache.KeyChargeTable(), payload, 0); err != nil {
			s.Logger.Warn().Err(err).Msg("charge_table_cache_write_failed")
		}
		return table, nil
	}

	cached, ok, err := s.Cache.GetBytes(ctx, cache.KeyChargeTable())
	if err != nil || !ok {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, fetchErr)
	}
	table, err := pricing.DecodeChargeTable(bytes.NewReader(cached))
	if err != nil {
		return nil, fmt.Errorf("%w: cached payload: %v", ErrSourceUnavailable, err)
	}
	s.Logger.Warn().Err(fetchErr).Msg("charge_table_served_from_cache")
	return table, nil
}

func (s HTTPSource) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.HTTP.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("charge table service responded %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
}
