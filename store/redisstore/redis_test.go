package redisstore_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-proxy/store"
	"github.com/jrsteele09/go-auth-proxy/store/redisstore"
)

const testPrefix = "test:"

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redisstore.RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, redisstore.NewWithClient(client, testPrefix)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	t.Run("put get delete", func(t *testing.T) {
		mr, s := setupRedis(t)
		require.NoError(t, s.Put(ctx, "client:a", []byte(`{"client_id":"a"}`), 0))
		require.True(t, mr.Exists(testPrefix+"client:a"))
		require.Equal(t, time.Duration(0), mr.TTL(testPrefix+"client:a"))

		v, err := s.Get(ctx, "client:a")
		require.NoError(t, err)
		require.JSONEq(t, `{"client_id":"a"}`, string(v))

		require.NoError(t, s.Delete(ctx, "client:a"))
		require.NoError(t, s.Delete(ctx, "client:a"))
		_, err = s.Get(ctx, "client:a")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("ttl expires keys", func(t *testing.T) {
		mr, s := setupRedis(t)
		require.NoError(t, s.Put(ctx, "authcode:c", []byte("v"), 300*time.Second))
		require.Equal(t, 300*time.Second, mr.TTL(testPrefix+"authcode:c"))

		mr.FastForward(301 * time.Second)
		_, err := s.Get(ctx, "authcode:c")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("take consumes exactly once", func(t *testing.T) {
		_, s := setupRedis(t)
		require.NoError(t, s.Put(ctx, "refresh:r1", []byte("v"), time.Hour))

		var winners atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.Take(ctx, "refresh:r1"); err == nil {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int32(1), winners.Load())

		_, err := s.Take(ctx, "refresh:r1")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("store failure is not reported as not found", func(t *testing.T) {
		mr, s := setupRedis(t)
		mr.SetError("ERR simulated failure")
		_, err := s.Get(ctx, "client:a")
		require.ErrorIs(t, err, store.ErrUnavailable)
		require.NotErrorIs(t, err, store.ErrNotFound)

		_, err = s.Take(ctx, "refresh:r1")
		require.ErrorIs(t, err, store.ErrUnavailable)
		require.ErrorIs(t, s.Put(ctx, "client:a", []byte("v"), 0), store.ErrUnavailable)
		require.ErrorIs(t, s.Delete(ctx, "client:a"), store.ErrUnavailable)
	})

	t.Run("ping", func(t *testing.T) {
		_, s := setupRedis(t)
		require.NoError(t, s.Ping(ctx))
	})
}

func TestNewFromURL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	s, err := redisstore.New(ctx, "redis://"+mr.Addr()+"/0", "p:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Put(ctx, "k", []byte("v"), 0))
	require.True(t, mr.Exists("p:k"))

	_, err = redisstore.New(ctx, "redis://:hunter2@[::1", "p:")
	require.Error(t, err)
	require.NotContains(t, err.Error(), "hunter2")
}
