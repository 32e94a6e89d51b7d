package providers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// DefaultCacheTTL is how long a cached series lookup stays fresh. It is
// kept well under the default check schedule so scheduled sweeps always
// see live data.
const DefaultCacheTTL = time.Hour

// Cache is SQLite-backed storage for provider responses.
type Cache struct {
	db *sql.DB
}

// NewCache creates a cache on the given database. The provider_cache
// table ships with the initial schema.
func NewCache(db *sql.DB) *Cache {
	return &Cache{db: db}
}

// Get retrieves a cached value by key. Returns nil, false if not found
// or expired.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	var value string
	var expiresAt time.Time

	err := c.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM provider_cache WHERE key = ?", key,
	).Scan(&value, &expiresAt)
	if err != nil || time.Now().After(expiresAt) {
		return nil, false
	}
	return []byte(value), true
}

// Set stores a value with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO provider_cache (key, value, expires_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, string(value), time.Now().Add(ttl),
	)
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete removes a cached value.
func (c *Cache) Delete(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM provider_cache WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Prune removes all expired entries and returns how many were removed.
func (c *Cache) Prune(ctx context.Context) (int64, error) {
	result, err := c.db.ExecContext(ctx,
		"DELETE FROM provider_cache WHERE expires_at < ?", time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("cache prune: %w", err)
	}
	return result.RowsAffected()
}

// Cached wraps a Provider with a read-through cache for series lookups.
// Searches are not cached: queries vary too much to be worth it.
type Cached struct {
	inner  Provider
	cache  *Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached creates a caching wrapper around p.
func NewCached(p Provider, cache *Cache, ttl time.Duration, logger *slog.Logger) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{inner: p, cache: cache, ttl: ttl, logger: logger}
}

// Search passes through to the wrapped provider.
func (c *Cached) Search(ctx context.Context, query string) ([]Series, error) {
	return c.inner.Search(ctx, query)
}

// Invalidate drops the cached entry for a series so the next Get hits
// the provider. Explicit refreshes must never be served stale data.
func (c *Cached) Invalidate(ctx context.Context, id string) error {
	return c.cache.Delete(ctx, "series/"+id)
}

// Get returns the cached series when fresh, otherwise fetches and
// caches it. Cache failures degrade to a plain fetch.
func (c *Cached) Get(ctx context.Context, id string) (*Series, error) {
	key := "series/" + id
	if raw, ok := c.cache.Get(ctx, key); ok {
		var series Series
		if err := json.Unmarshal(raw, &series); err == nil {
			c.logger.Debug("provider cache hit", "id", id)
			return &series, nil
		}
		_ = c.cache.Delete(ctx, key)
	}

	series, err := c.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(series); err == nil {
		if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
			c.logger.Warn("provider cache write failed", "id", id, "error", err)
		}
	}
	return series, nil
}
