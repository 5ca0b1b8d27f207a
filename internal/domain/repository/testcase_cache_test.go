package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"codementor/internal/domain/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTestCaseRepo struct {
	inner TestCaseRepository
	calls int
}

func (c *countingTestCaseRepo) ListTestCases(ctx context.Context, problemID string, visibleOnly bool) ([]model.TestCase, error) {
	c.calls++
	return c.inner.ListTestCases(ctx, problemID, visibleOnly)
}

func newCachedRepo(t *testing.T) (*CachedTestCaseRepository, *countingTestCaseRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	inner := &countingTestCaseRepo{inner: seededStore(t)}
	return NewCachedTestCaseRepository(inner, rdb, time.Minute, nil), inner, mr
}

func TestCachedTestCaseRepository_ReadThrough(t *testing.T) {
	repo, inner, mr := newCachedRepo(t)
	ctx := context.Background()

	first, err := repo.ListTestCases(ctx, "p1", false)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.True(t, mr.Exists("testcases:p1:all"))

	second, err := repo.ListTestCases(ctx, "p1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls, "second read is served from Redis")
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.JSONEq(t, string(first[0].InputData), string(second[0].InputData))

	visible, err := repo.ListTestCases(ctx, "p1", true)
	require.NoError(t, err)
	assert.Len(t, visible, 1)
	assert.Equal(t, 2, inner.calls, "visible and full sets are cached separately")

	mr.FastForward(2 * time.Minute)
	_, err = repo.ListTestCases(ctx, "p1", false)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls, "expired entry is reloaded")
}

func TestCachedTestCaseRepository_EmptyNotCached(t *testing.T) {
	repo, inner, mr := newCachedRepo(t)
	ctx := context.Background()

	_, err := repo.ListTestCases(ctx, "p2", false)
	require.NoError(t, err)
	_, err = repo.ListTestCases(ctx, "p2", false)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.False(t, mr.Exists("testcases:p2:all"))
}

func TestCachedTestCaseRepository_CorruptEntryFallsBack(t *testing.T) {
	repo, inner, mr := newCachedRepo(t)
	require.NoError(t, mr.Set("testcases:p1:all", "not json"))

	got, err := repo.ListTestCases(context.Background(), "p1", false)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, inner.calls)

	raw, err := mr.Get("testcases:p1:all")
	require.NoError(t, err)
	var cached []model.TestCase
	assert.NoError(t, json.Unmarshal([]byte(raw), &cached), "entry is rewritten")
}

func TestCachedTestCaseRepository_RedisDownFallsBack(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	inner := &countingTestCaseRepo{inner: seededStore(t)}
	repo := NewCachedTestCaseRepository(inner, rdb, time.Minute, nil)
	mr.Close()

	got, err := repo.ListTestCases(context.Background(), "p1", true)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, inner.calls)
}
