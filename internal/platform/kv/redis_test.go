package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryLockAndRelease(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	lock, ok, err := TryLock(ctx, rdb, "job", "token-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = TryLock(ctx, rdb, "job", "token-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder is refused")

	released, err := lock.Release(ctx)
	require.NoError(t, err)
	assert.True(t, released)
	assert.False(t, mr.Exists("job"))
}

func TestReleaseDoesNotStealAnotherHolder(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	lock, ok, err := TryLock(ctx, rdb, "job", "token-a", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	_, ok, err = TryLock(ctx, rdb, "job", "token-b", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "expired lease can be taken over")

	released, err := lock.Release(ctx)
	require.NoError(t, err)
	assert.False(t, released)
	holder, err := mr.Get("job")
	require.NoError(t, err)
	assert.Equal(t, "token-b", holder)
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := ConnectRedis(mr.Addr(), "", 0)
	require.NoError(t, err)
	rdb.Close()
}
