package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"codementor/internal/app/service"
	"codementor/internal/platform/kv"
	"codementor/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisReconcileQueue pushes reconcile entries onto a Redis list consumed by
// ReconcileWorker.
type RedisReconcileQueue struct {
	rdb   redis.Cmdable
	queue string
}

func NewRedisReconcileQueue(rdb redis.Cmdable, queue string) *RedisReconcileQueue {
	return &RedisReconcileQueue{rdb: rdb, queue: queue}
}

func (q *RedisReconcileQueue) Enqueue(ctx context.Context, entry service.ReconcileEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode reconcile entry %s: %w", entry.Submission.ID, err)
	}
	if err := q.rdb.LPush(ctx, q.queue, payload).Err(); err != nil {
		return fmt.Errorf("push reconcile entry %s: %w", entry.Submission.ID, err)
	}
	return nil
}

// Reconciler replays one queued finalization.
type Reconciler interface {
	Reconcile(ctx context.Context, entry service.ReconcileEntry) error
}

type ReconcileWorkerOptions struct {
	QueueName   string
	LockKey     string
	LockTTL     time.Duration
	PopTimeout  time.Duration
	MaxAttempts int
	// RetryDelay is slept after a requeue so a failing entry does not spin.
	RetryDelay time.Duration
}

func (o ReconcileWorkerOptions) withDefaults() ReconcileWorkerOptions {
	if o.LockTTL <= 0 {
		o.LockTTL = time.Minute
	}
	if o.PopTimeout <= 0 {
		o.PopTimeout = 5 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	return o
}

func (o ReconcileWorkerOptions) deadLetterQueue() string {
	return o.QueueName + ":dead"
}

// ReconcileWorker drains the reconcile queue. Only one worker across all
// instances applies entries at a time; the others requeue what they pop.
type ReconcileWorker struct {
	rdb        *redis.Client
	reconciler Reconciler
	metrics    *metrics.Evaluation
	logger     *zap.SugaredLogger
	opts       ReconcileWorkerOptions
}

func NewReconcileWorker(rdb *redis.Client, reconciler Reconciler, m *metrics.Evaluation, logger *zap.SugaredLogger, opts ReconcileWorkerOptions) *ReconcileWorker {
	if m == nil {
		m = metrics.NewEvaluation(nil)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ReconcileWorker{
		rdb:        rdb,
		reconciler: reconciler,
		metrics:    m,
		logger:     logger,
		opts:       opts.withDefaults(),
	}
}

func (w *ReconcileWorker) Start(ctx context.Context) {
	w.logger.Infow("Reconcile worker started", "queue", w.opts.QueueName)
	for {
		select {
		case <-ctx.Done():
			w.logger.Infow("Reconcile worker stopping")
			return
		default:
		}

		if _, err := w.ProcessNext(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.logger.Errorw("Failed to pop from reconcile queue", "queue", w.opts.QueueName, "error", err)
			sleepCtx(ctx, 5*time.Second)
		}
	}
}

// ProcessNext waits up to PopTimeout for one entry and handles it. It
// reports whether an entry was popped.
func (w *ReconcileWorker) ProcessNext(ctx context.Context) (bool, error) {
	res, err := w.rdb.BRPop(ctx, w.opts.PopTimeout, w.opts.QueueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	// res is [queueName, value]
	if len(res) < 2 || res[1] == "" {
		w.logger.Warnw("BRPop returned an empty reconcile entry")
		return true, nil
	}
	w.processWithLock(ctx, res[1])
	return true, nil
}

func (w *ReconcileWorker) processWithLock(ctx context.Context, raw string) {
	lock, ok, err := kv.TryLock(ctx, w.rdb, w.opts.LockKey, uuid.NewString(), w.opts.LockTTL)
	if err != nil {
		w.logger.Errorw("Failed to attempt reconcile lock", "error", err)
		w.requeue(ctx, raw)
		return
	}
	if !ok {
		w.logger.Infow("Reconcile lock held elsewhere, requeueing entry")
		w.requeue(ctx, raw)
		sleepCtx(ctx, w.opts.RetryDelay)
		return
	}
	defer func() {
		released, err := lock.Release(context.WithoutCancel(ctx))
		if err != nil {
			w.logger.Errorw("Failed to release reconcile lock", "key", w.opts.LockKey, "error", err)
		} else if !released {
			w.logger.Warnw("Reconcile lock expired before release", "key", w.opts.LockKey)
		}
	}()

	w.handle(ctx, raw)
}

func (w *ReconcileWorker) handle(ctx context.Context, raw string) {
	var entry service.ReconcileEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		w.logger.Errorw("Dropping malformed reconcile entry to dead letter queue", "error", err)
		w.deadLetter(ctx, raw)
		w.metrics.Reconciled.WithLabelValues("malformed").Inc()
		return
	}

	err := w.reconciler.Reconcile(ctx, entry)
	if err == nil {
		w.metrics.Reconciled.WithLabelValues("applied").Inc()
		w.logger.Infow("Reconciled submission", "submission_id", entry.Submission.ID, "attempts", entry.Attempts+1)
		return
	}

	entry.Attempts++
	entry.LastError = err.Error()
	payload, encErr := json.Marshal(entry)
	if encErr != nil {
		// Keep the original bytes rather than lose the entry.
		payload = []byte(raw)
	}
	if entry.Attempts >= w.opts.MaxAttempts {
		w.logger.Errorw("Reconcile entry exhausted its attempts",
			"submission_id", entry.Submission.ID, "attempts", entry.Attempts, "error", err)
		w.deadLetter(ctx, string(payload))
		w.metrics.Reconciled.WithLabelValues("dead_letter").Inc()
		return
	}
	w.logger.Warnw("Reconcile attempt failed, requeueing",
		"submission_id", entry.Submission.ID, "attempts", entry.Attempts, "error", err)
	w.requeue(ctx, string(payload))
	w.metrics.Reconciled.WithLabelValues("requeued").Inc()
	sleepCtx(ctx, w.opts.RetryDelay)
}

func (w *ReconcileWorker) requeue(ctx context.Context, raw string) {
	// Back of the line, so other entries are not starved by a failing one.
	if err := w.rdb.LPush(context.WithoutCancel(ctx), w.opts.QueueName, raw).Err(); err != nil {
		w.logger.Errorw("Failed to requeue reconcile entry", "error", err)
	}
}

func (w *ReconcileWorker) deadLetter(ctx context.Context, raw string) {
	if err := w.rdb.LPush(context.WithoutCancel(ctx), w.opts.deadLetterQueue(), raw).Err(); err != nil {
		w.logger.Errorw("Failed to push to dead letter queue", "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
