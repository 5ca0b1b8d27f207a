package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"codementor/internal/app/service"
	"codementor/internal/domain/model"
	"codementor/internal/platform/metrics"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReconciler struct {
	mu    sync.Mutex
	err   error
	calls []service.ReconcileEntry
}

func (f *fakeReconciler) Reconcile(_ context.Context, entry service.ReconcileEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, entry)
	return f.err
}

const testQueue = "reconcile:test"

func setupWorker(t *testing.T, rec Reconciler, opts ReconcileWorkerOptions) (*ReconcileWorker, *miniredis.Miniredis, *redis.Client, *metrics.Evaluation) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	opts.QueueName = testQueue
	opts.LockKey = "reconcile:test:lock"
	if opts.PopTimeout == 0 {
		opts.PopTimeout = 100 * time.Millisecond
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Millisecond
	}
	m := metrics.NewEvaluation(nil)
	return NewReconcileWorker(rdb, rec, m, nil, opts), mr, rdb, m
}

func testEntry(id string) service.ReconcileEntry {
	return service.ReconcileEntry{
		Submission: model.Submission{
			ID:             id,
			UserID:         "user-1",
			ProblemID:      "problem-1",
			SubmissionType: model.SubmissionTypeSubmit,
			Status:         model.VerdictAccepted,
		},
		Difficulty: model.DifficultyEasy,
		EnqueuedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestRedisReconcileQueue_EnqueueThenProcess(t *testing.T) {
	rec := &fakeReconciler{}
	w, _, rdb, m := setupWorker(t, rec, ReconcileWorkerOptions{})
	ctx := context.Background()

	q := NewRedisReconcileQueue(rdb, testQueue)
	require.NoError(t, q.Enqueue(ctx, testEntry("sub-1")))
	require.NoError(t, q.Enqueue(ctx, testEntry("sub-2")))

	popped, err := w.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, popped)
	popped, err = w.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, popped)

	require.Len(t, rec.calls, 2)
	assert.Equal(t, "sub-1", rec.calls[0].Submission.ID, "entries are consumed in enqueue order")
	assert.Equal(t, "sub-2", rec.calls[1].Submission.ID)
	assert.Equal(t, model.DifficultyEasy, rec.calls[0].Difficulty)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Reconciled.WithLabelValues("applied")))

	n, err := rdb.LLen(ctx, testQueue).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
	exists, err := rdb.Exists(ctx, "reconcile:test:lock").Result()
	require.NoError(t, err)
	assert.Zero(t, exists, "lock is released after processing")
}

func TestReconcileWorker_EmptyQueue(t *testing.T) {
	rec := &fakeReconciler{}
	w, _, _, _ := setupWorker(t, rec, ReconcileWorkerOptions{})

	popped, err := w.ProcessNext(context.Background())
	require.NoError(t, err)
	assert.False(t, popped)
	assert.Empty(t, rec.calls)
}

func TestReconcileWorker_FailureRequeuesWithAttempt(t *testing.T) {
	rec := &fakeReconciler{err: errors.New("database unavailable")}
	w, _, rdb, m := setupWorker(t, rec, ReconcileWorkerOptions{MaxAttempts: 3})
	ctx := context.Background()

	require.NoError(t, NewRedisReconcileQueue(rdb, testQueue).Enqueue(ctx, testEntry("sub-1")))

	_, err := w.ProcessNext(ctx)
	require.NoError(t, err)

	raw, err := rdb.RPop(ctx, testQueue).Result()
	require.NoError(t, err)
	var entry service.ReconcileEntry
	require.NoError(t, json.Unmarshal([]byte(raw), &entry))
	assert.Equal(t, "sub-1", entry.Submission.ID)
	assert.Equal(t, 1, entry.Attempts)
	assert.Equal(t, "database unavailable", entry.LastError)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Reconciled.WithLabelValues("requeued")))
}

func TestReconcileWorker_ExhaustedGoesToDeadLetter(t *testing.T) {
	rec := &fakeReconciler{err: errors.New("still broken")}
	w, _, rdb, m := setupWorker(t, rec, ReconcileWorkerOptions{MaxAttempts: 2})
	ctx := context.Background()

	require.NoError(t, NewRedisReconcileQueue(rdb, testQueue).Enqueue(ctx, testEntry("sub-1")))

	for i := 0; i < 2; i++ {
		popped, err := w.ProcessNext(ctx)
		require.NoError(t, err)
		require.True(t, popped)
	}

	n, err := rdb.LLen(ctx, testQueue).Result()
	require.NoError(t, err)
	assert.Zero(t, n)

	dead, err := rdb.LRange(ctx, testQueue+":dead", 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, dead, 1)
	var entry service.ReconcileEntry
	require.NoError(t, json.Unmarshal([]byte(dead[0]), &entry))
	assert.Equal(t, 2, entry.Attempts)
	assert.Len(t, rec.calls, 2)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Reconciled.WithLabelValues("dead_letter")))
}

func TestReconcileWorker_MalformedEntry(t *testing.T) {
	rec := &fakeReconciler{}
	w, _, rdb, m := setupWorker(t, rec, ReconcileWorkerOptions{})
	ctx := context.Background()

	require.NoError(t, rdb.LPush(ctx, testQueue, "{not json").Err())

	popped, err := w.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, popped)
	assert.Empty(t, rec.calls)

	dead, err := rdb.LRange(ctx, testQueue+":dead", 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"{not json"}, dead)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Reconciled.WithLabelValues("malformed")))
}

func TestReconcileWorker_LockHeldRequeues(t *testing.T) {
	rec := &fakeReconciler{}
	w, _, rdb, _ := setupWorker(t, rec, ReconcileWorkerOptions{})
	ctx := context.Background()

	require.NoError(t, rdb.Set(ctx, "reconcile:test:lock", "other-instance", time.Minute).Err())
	require.NoError(t, NewRedisReconcileQueue(rdb, testQueue).Enqueue(ctx, testEntry("sub-1")))

	popped, err := w.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, popped)
	assert.Empty(t, rec.calls)

	n, err := rdb.LLen(ctx, testQueue).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	holder, err := rdb.Get(ctx, "reconcile:test:lock").Result()
	require.NoError(t, err)
	assert.Equal(t, "other-instance", holder, "foreign lock is left alone")
}

func TestReconcileWorker_StartStopsOnCancel(t *testing.T) {
	rec := &fakeReconciler{}
	w, _, rdb, _ := setupWorker(t, rec, ReconcileWorkerOptions{PopTimeout: 50 * time.Millisecond})
	require.NoError(t, NewRedisReconcileQueue(rdb, testQueue).Enqueue(context.Background(), testEntry("sub-1")))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.calls) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
