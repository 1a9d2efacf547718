// Package cache keeps decoded settings close to the application. The stores follow the
// fiber storage contract so the sql backed gofiber stores plug in unchanged.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/storage/mysql/v2"
	"github.com/gofiber/storage/postgres/v3"
	"github.com/redis/go-redis/v9"

	"github.com/pkp/pkplib/internal/config"
	"github.com/pkp/pkplib/internal/db/dsn"
)

const defaultTable = "pkp_cache"

// ErrUnknownEngine is returned for a cache engine New does not know.
var ErrUnknownEngine = errors.New("unknown cache engine")

// Store is a byte store with expiry. Get returns nil without error for a missing key.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, exp time.Duration) error
	Delete(key string) error
	Reset() error
	Close() error
}

// Cache stores JSON encoded values with a default expiry.
type Cache struct {
	Store Store
	TTL   time.Duration
}

// New creates the cache configured in cfg.
func New(cfg *config.Config) (*Cache, error) {
	store, err := NewStore(cfg)
	if err != nil {
		return nil, err
	}

	return &Cache{Store: store, TTL: time.Duration(cfg.Cache.TTL) * time.Second}, nil
}

// NewStore opens the store of the configured engine.
func NewStore(cfg *config.Config) (Store, error) {
	table := cfg.Cache.Table
	if table == "" {
		table = defaultTable
	}

	switch cfg.Cache.Engine {
	case "", config.CacheEngineNone:
		return Nop{}, nil
	case config.CacheEngineRedis:
		return NewRedis(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		}, "pkp:"), nil
	case config.CacheEngineMySQL:
		return mysql.New(mysql.Config{
			ConnectionURI: dsn.URI(cfg),
			Table:         table,
		}), nil
	case config.CacheEnginePostgres:
		return postgres.New(postgres.Config{
			ConnectionURI: dsn.URI(cfg),
			Table:         table,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, cfg.Cache.Engine)
	}
}

// Get decodes the value of key into v. It reports whether the key was found.
func (c *Cache) Get(key string, v any) (bool, error) {
	if c == nil || c.Store == nil {
		return false, nil
	}

	b, err := c.Store.Get(key)
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if len(b) == 0 {
		return false, nil
	}

	if err = json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}

	return true, nil
}

// Set stores v under key for the cache TTL.
func (c *Cache) Set(key string, v any) error {
	if c == nil || c.Store == nil {
		return nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}

	if err = c.Store.Set(key, b, c.TTL); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}

	return nil
}

// Invalidate removes keys.
func (c *Cache) Invalidate(keys ...string) error {
	if c == nil || c.Store == nil {
		return nil
	}

	for _, key := range keys {
		if err := c.Store.Delete(key); err != nil {
			return fmt.Errorf("cache delete %s: %w", key, err)
		}
	}

	return nil
}

// Close closes the store.
func (c *Cache) Close() error {
	if c == nil || c.Store == nil {
		return nil
	}

	return c.Store.Close()
}

// Nop caches nothing.
type Nop struct{}

// Get implements Store.
func (Nop) Get(string) ([]byte, error) { return nil, nil }

// Set implements Store.
func (Nop) Set(string, []byte, time.Duration) error { return nil }

// Delete implements Store.
func (Nop) Delete(string) error { return nil }

// Reset implements Store.
func (Nop) Reset() error { return nil }

// Close implements Store.
func (Nop) Close() error { return nil }
