package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps Redis helpers for JSON payloads.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// New constructs a cache helper. A nil client yields a cache that always misses.
func New(client *redis.Client, ttl time.Duration, prefix string) *Cache {
	return &Cache{client: client, ttl: ttl, prefix: prefix}
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, ok, err := c.GetBytes(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.SetBytes(ctx, key, data, c.ttl)
}

// GetBytes returns a raw cached payload.
func (c *Cache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if c == nil || c.client == nil || key == "" {
		return nil, false, nil
	}
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// SetBytes stores a raw payload. A zero ttl keeps the key until it is overwritten.
func (c *Cache) SetBytes(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	if ttl < 0 {
		ttl = 0
	}
	return c.client.Set(ctx, c.prefix+key, data, ttl).Err()
}

// Delete evicts key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	return c.client.Del(ctx, c.prefix+key).Err()
}

// KeyVehicleList is the cache key for the upstream vehicle list.
func KeyVehicleList() string {
	return "catalog:cars:list"
}

// KeyVehicle is the cache key for a single upstream vehicle.
func KeyVehicle(id string) string {
	return "catalog:cars:detail:" + id
}

// KeyChargeTable is the cache key for the last good charge table payload.
func KeyChargeTable() string {
	return "pricing:charge-table:last-good"
}
