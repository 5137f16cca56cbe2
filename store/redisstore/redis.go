// Package redisstore implements store.Store on Redis so several proxy instances can share state.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/go-auth-proxy/store"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

var _ store.Store = (*RedisStore)(nil)

// RedisStore keeps every key under keyPrefix. Take uses GETDEL (Redis 6.2+).
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// New connects to the redis:// (or rediss://) URL and verifies the connection.
func New(ctx context.Context, rawURL, keyPrefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		// the URL may embed a password
		return nil, errors.New("[redisstore.New] invalid redis URL")
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "[redisstore.New] failed to connect to redis")
	}
	return NewWithClient(client, keyPrefix), nil
}

// NewWithClient wraps a pre-configured client. Used with miniredis in tests.
func NewWithClient(client redis.UniversalClient, keyPrefix string) *RedisStore {
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("Get", "GET", err)
	}
	return data, nil
}

func (r *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return unavailable("Put", "SET", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return unavailable("Delete", "DEL", err)
	}
	return nil
}

func (r *RedisStore) Take(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.GetDel(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("Take", "GETDEL", err)
	}
	return data, nil
}

// Ping checks connectivity for health reporting.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// unavailable keeps the redis cause and marks it as store.ErrUnavailable.
func unavailable(op, cmd string, err error) error {
	return fmt.Errorf("[RedisStore.%s] redis %s: %w: %w", op, cmd, store.ErrUnavailable, err)
}

func (r *RedisStore) key(k string) string {
	return r.keyPrefix + k
}
