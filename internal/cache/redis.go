package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanCount = 100

// Redis is a Store on a redis server. Keys are namespaced by a prefix so Reset only
// removes this application's entries.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects a Redis store.
func NewRedis(opts *redis.Options, prefix string) *Redis {
	return &Redis{client: redis.NewClient(opts), prefix: prefix}
}

// Get implements Store.
func (r *Redis) Get(key string) ([]byte, error) {
	b, err := r.client.Get(context.Background(), r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}

	return b, err
}

// Set implements Store. A zero expiry keeps the key forever.
func (r *Redis) Set(key string, val []byte, exp time.Duration) error {
	return r.client.Set(context.Background(), r.prefix+key, val, exp).Err()
}

// Delete implements Store.
func (r *Redis) Delete(key string) error {
	return r.client.Del(context.Background(), r.prefix+key).Err()
}

// Reset implements Store.
func (r *Redis) Reset() error {
	ctx := context.Background()
	iter := r.client.Scan(ctx, 0, r.prefix+"*", scanCount).Iterator()

	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}

	return iter.Err()
}

// Close implements Store.
func (r *Redis) Close() error {
	return r.client.Close()
}
