package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"codementor/internal/domain/model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedTestCaseRepository is a read-through Redis cache in front of another
// TestCaseRepository. Test cases are immutable once created, so entries are
// only ever expired, never invalidated.
type CachedTestCaseRepository struct {
	inner        TestCaseRepository
	rdb          redis.Cmdable
	ttl          time.Duration
	redisTimeout time.Duration
	logger       *zap.SugaredLogger
}

func NewCachedTestCaseRepository(inner TestCaseRepository, rdb redis.Cmdable, ttl time.Duration, logger *zap.SugaredLogger) *CachedTestCaseRepository {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &CachedTestCaseRepository{
		inner:        inner,
		rdb:          rdb,
		ttl:          ttl,
		redisTimeout: 500 * time.Millisecond,
		logger:       logger,
	}
}

func testCaseCacheKey(problemID string, visibleOnly bool) string {
	scope := "all"
	if visibleOnly {
		scope = "visible"
	}
	return fmt.Sprintf("testcases:%s:%s", problemID, scope)
}

func (r *CachedTestCaseRepository) ListTestCases(ctx context.Context, problemID string, visibleOnly bool) ([]model.TestCase, error) {
	key := testCaseCacheKey(problemID, visibleOnly)

	cacheCtx, cancel := context.WithTimeout(ctx, r.redisTimeout)
	raw, err := r.rdb.Get(cacheCtx, key).Bytes()
	cancel()
	switch {
	case err == nil:
		var cached []model.TestCase
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached, nil
		}
		r.logger.Warnw("Discarding undecodable test case cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		r.logger.Warnw("Test case cache read failed, falling back to store", "key", key, "error", err)
	}

	testCases, err := r.inner.ListTestCases(ctx, problemID, visibleOnly)
	if err != nil {
		return nil, err
	}
	if len(testCases) == 0 {
		// Do not pin an empty catalog entry; it is a configuration problem
		// that may be fixed at any time.
		return testCases, nil
	}

	payload, err := json.Marshal(testCases)
	if err != nil {
		r.logger.Warnw("Could not encode test cases for cache", "key", key, "error", err)
		return testCases, nil
	}
	cacheCtx, cancel = context.WithTimeout(ctx, r.redisTimeout)
	defer cancel()
	if err := r.rdb.Set(cacheCtx, key, payload, r.ttl).Err(); err != nil {
		r.logger.Warnw("Test case cache write failed", "key", key, "error", err)
	}
	return testCases, nil
}
