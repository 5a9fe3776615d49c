package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewIdempotencyStore(client, time.Minute), mr
}

func TestIdempotencyStore_RememberAndLookup(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.Lookup(ctx, "acc", "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Remember(ctx, "acc", "k1", 42))
	id, ok, err := store.Lookup(ctx, "acc", "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 42, id)

	_, ok, err = store.Lookup(ctx, "other", "k1")
	require.NoError(t, err)
	assert.False(t, ok, "keys are scoped per account")

	assert.Equal(t, time.Minute, mr.TTL("idem:ticket:acc:k1"))
}

func TestIdempotencyStore_FirstWriteWins(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Remember(ctx, "acc", "k", 1))
	require.NoError(t, store.Remember(ctx, "acc", "k", 2))

	id, _, err := store.Lookup(ctx, "acc", "k")
	require.NoError(t, err)
	assert.EqualValues(t, 1, id)
}

func TestIdempotencyStore_Expiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Remember(ctx, "acc", "k", 1))
	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Lookup(ctx, "acc", "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdempotencyStore_CorruptValue(t *testing.T) {
	store, mr := newTestStore(t)
	require.NoError(t, mr.Set("idem:ticket:acc:k", "not-a-number"))

	_, _, err := store.Lookup(context.Background(), "acc", "k")
	assert.Error(t, err)
}

func TestIdempotencyStore_ServerDown(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	_, _, err := store.Lookup(context.Background(), "acc", "k")
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	addr := mr.Addr()
	client, err := Connect(context.Background(), Config{Addr: addr})
	require.NoError(t, err)
	_ = client.Close()

	mr.Close()
	_, err = Connect(context.Background(), Config{Addr: addr, Timeout: 200 * time.Millisecond})
	assert.Error(t, err)
}
