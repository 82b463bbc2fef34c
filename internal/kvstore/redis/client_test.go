package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/fbain/service/internal/kvstore"
)

func newClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Open(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestGetSet(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	_, err := client.Get(ctx, "missing")
	require.True(t, kvstore.ErrKeyNotFound.Has(err))

	require.NoError(t, client.Set(ctx, "k", "v", 0))
	value, err := client.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", value)

	require.NoError(t, client.Delete(ctx, "k"))
	exists, err := client.Exists(ctx, "k")
	require.NoError(t, err)
	require.False(t, exists)

	// deleting a gone key is a no-op
	require.NoError(t, client.Delete(ctx, "k"))
}

func TestSetNX(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	ok, err := client.SetNX(ctx, "k", "first", 0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = client.SetNX(ctx, "k", "second", 0)
	require.NoError(t, err)
	require.False(t, ok)

	value, err := client.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "first", value)
}

func TestHashOps(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	_, err := client.HGetAll(ctx, "h")
	require.True(t, kvstore.ErrKeyNotFound.Has(err))

	require.NoError(t, client.HSet(ctx, "h", map[string]string{"a": "1", "b": "2"}))

	value, err := client.HGet(ctx, "h", "a")
	require.NoError(t, err)
	require.Equal(t, "1", value)

	_, err = client.HGet(ctx, "h", "nope")
	require.True(t, kvstore.ErrKeyNotFound.Has(err))

	fields, err := client.HGetAll(ctx, "h")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"a": "1", "b": "2"}, fields)

	// HSetNX is the lock primitive: first caller wins
	ok, err := client.HSetNX(ctx, "h", "lock", "1")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = client.HSetNX(ctx, "h", "lock", "1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, client.HDel(ctx, "h", "lock"))
	ok, err = client.HSetNX(ctx, "h", "lock", "1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestTTL(t *testing.T) {
	ctx := context.Background()
	client, mr := newClient(t)

	_, err := client.TTL(ctx, "missing")
	require.True(t, kvstore.ErrKeyNotFound.Has(err))

	require.NoError(t, client.Set(ctx, "forever", "v", 0))
	ttl, err := client.TTL(ctx, "forever")
	require.NoError(t, err)
	require.Equal(t, kvstore.TTLNone, ttl)

	require.NoError(t, client.Set(ctx, "fleeting", "v", time.Hour))
	ttl, err = client.TTL(ctx, "fleeting")
	require.NoError(t, err)
	require.Equal(t, time.Hour, ttl)

	ok, err := client.Expire(ctx, "missing", time.Hour)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, client.Persist(ctx, "fleeting"))
	ttl, err = client.TTL(ctx, "fleeting")
	require.NoError(t, err)
	require.Equal(t, kvstore.TTLNone, ttl)

	// store-native eviction
	require.NoError(t, client.Set(ctx, "gone", "v", time.Minute))
	mr.FastForward(2 * time.Minute)
	_, err = client.Get(ctx, "gone")
	require.True(t, kvstore.ErrKeyNotFound.Has(err))
}

func TestExpireAt(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	require.NoError(t, client.Set(ctx, "k", "v", 0))
	ok, err := client.ExpireAt(ctx, "k", time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	ttl, err := client.TTL(ctx, "k")
	require.NoError(t, err)
	require.Greater(t, ttl, 59*time.Minute)
}

func TestIncrBy(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	n, err := client.IncrBy(ctx, "count", 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = client.IncrBy(ctx, "count", -3)
	require.NoError(t, err)
	require.Equal(t, int64(-2), n)
}
