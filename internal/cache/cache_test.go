package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkp/pkplib/internal/config"
)

func newRedisCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	store := NewRedis(&redis.Options{Addr: mr.Addr()}, "test:")

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &Cache{Store: store, TTL: time.Minute}, mr
}

func TestCache_RedisRoundTrip(t *testing.T) {
	c, mr := newRedisCache(t)

	settings := map[string]any{"title": map[string]any{"en": "Public Knowledge"}}
	require.NoError(t, c.Set("site", settings))
	assert.True(t, mr.Exists("test:site"))
	assert.Equal(t, time.Minute, mr.TTL("test:site"))

	var got map[string]any
	found, err := c.Get("site", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, settings, got)

	require.NoError(t, c.Invalidate("site"))

	found, err = c.Get("site", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_Expiry(t *testing.T) {
	c, mr := newRedisCache(t)

	require.NoError(t, c.Set("context:1", "x"))
	mr.FastForward(2 * time.Minute)

	var got string
	found, err := c.Get("context:1", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedis_ResetKeepsForeignKeys(t *testing.T) {
	c, mr := newRedisCache(t)

	require.NoError(t, mr.Set("other:key", "stay"))
	require.NoError(t, c.Set("a", 1))
	require.NoError(t, c.Set("b", 2))

	require.NoError(t, c.Store.Reset())

	assert.False(t, mr.Exists("test:a"))
	assert.False(t, mr.Exists("test:b"))
	assert.True(t, mr.Exists("other:key"))
}

func TestCache_CorruptValue(t *testing.T) {
	c, mr := newRedisCache(t)

	require.NoError(t, mr.Set("test:broken", "{"))

	var got map[string]any
	_, err := c.Get("broken", &got)
	require.Error(t, err)
}

func TestNewStore(t *testing.T) {
	testCases := []struct {
		name    string
		engine  string
		wantErr error
		wantNop bool
	}{
		{name: "default", engine: "", wantNop: true},
		{name: "none", engine: config.CacheEngineNone, wantNop: true},
		{name: "redis", engine: config.CacheEngineRedis},
		{name: "unknown", engine: "memcache", wantErr: ErrUnknownEngine},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{Cache: config.Cache{Engine: tc.engine, RedisAddr: "127.0.0.1:0"}}

			store, err := NewStore(cfg)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)

			_, isNop := store.(Nop)
			assert.Equal(t, tc.wantNop, isNop)

			_ = store.Close()
		})
	}
}

func TestNilCache(t *testing.T) {
	var c *Cache

	found, err := c.Get("k", new(string))
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, c.Set("k", "v"))
	require.NoError(t, c.Invalidate("k"))
	require.NoError(t, c.Close())
}
