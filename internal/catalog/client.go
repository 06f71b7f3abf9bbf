package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/shipgrid/backend-import/internal/cache"
	"github.com/shipgrid/backend-import/internal/obs"
	"github.com/shipgrid/backend-import/internal/resilience"
)

var (
	// ErrUpstreamFetch is returned when the catalog API cannot be read.
	ErrUpstreamFetch = errors.New("catalog: upstream fetch failed")
	// ErrVehicleNotFound is returned when the catalog API has no such vehicle.
	ErrVehicleNotFound = errors.New("catalog: vehicle not found")
)

const maxBodyBytes = 16 << 20

// Source reads vehicles.
type Source interface {
	ListVehicles(ctx context.Context) ([]Vehicle, error)
	RecommendedVehicles(ctx context.Context) ([]Vehicle, error)
	GetVehicle(ctx context.Context, id string) (Vehicle, error)
}

// Client reads the upstream catalog API through a Redis read-through cache.
type Client struct {
	baseURL string
	http    resilience.HTTPClient
	cache   *cache.Cache
	logger  zerolog.Logger
}

// ClientConfig groups Client dependencies.
type ClientConfig struct {
	BaseURL string
	HTTP    resilience.HTTPClient
	Cache   *cache.Cache
	Logger  zerolog.Logger
}

// NewClient constructs a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("catalog: base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("catalog: base url: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    cfg.HTTP,
		cache:   cfg.Cache,
		logger:  cfg.Logger.With().Str("component", "catalog_client").Logger(),
	}, nil
}

// ListVehicles handles GET /cars.
func (c *Client) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	var out []Vehicle
	if err := c.cachedGet(ctx, "list", cache.KeyVehicleList(), "/cars", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RecommendedVehicles handles GET /cars/fetchRecommendedCars.
func (c *Client) RecommendedVehicles(ctx context.Context) ([]Vehicle, error) {
	var out []Vehicle
	if err := c.cachedGet(ctx, "recommended", cache.KeyVehicleList()+":recommended", "/cars/fetchRecommendedCars", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetVehicle handles GET /cars/{id}.
func (c *Client) GetVehicle(ctx context.Context, id string) (Vehicle, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Vehicle{}, ErrVehicleNotFound
	}
	var out Vehicle
	if err := c.cachedGet(ctx, "detail", cache.KeyVehicle(id), "/cars/"+url.PathEscape(id), &out); err != nil {
		return Vehicle{}, err
	}
	if out.CarID == "" {
		return Vehicle{}, ErrVehicleNotFound
	}
	return out, nil
}

// Ping checks that the catalog API answers.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/cars", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s", ErrUpstreamFetch, resp.Status)
	}
	return nil
}

func (c *Client) cachedGet(ctx context.Context, op, key, path string, dst any) error {
	ok, err := c.cache.GetJSON(ctx, key, dst)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("catalog_cache_read_failed")
	}
	if ok {
		obs.ObserveCatalogFetch(op, "cache", "hit")
		return nil
	}
	if err := c.get(ctx, path, dst); err != nil {
		if op != "detail" && errors.Is(err, ErrVehicleNotFound) {
			err = fmt.Errorf("%w: %s responded 404", ErrUpstreamFetch, path)
		}
		result := "error"
		if errors.Is(err, ErrVehicleNotFound) {
			result = "not_found"
		}
		obs.ObserveCatalogFetch(op, "upstream", result)
		return err
	}
	obs.ObserveCatalogFetch(op, "upstream", "success")
	if err := c.cache.SetJSON(ctx, key, dst); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("catalog_cache_write_failed")
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrVehicleNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: %s responded %s", ErrUpstreamFetch, path, resp.Status)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUpstreamFetch, path, err)
	}
	return nil
}
