package service

import (
	"context"
	"time"

	"codementor/internal/domain/model"

	"go.uber.org/zap"
)

// ReconcileEntry carries everything needed to replay a finalization that
// could not be committed. The submission and its progress updates share one
// transaction, so nothing from a failed attempt is ever half-written.
type ReconcileEntry struct {
	Submission model.Submission        `json:"submission"`
	Difficulty model.ProblemDifficulty `json:"difficulty"`
	EnqueuedAt time.Time               `json:"enqueued_at"`
	Attempts   int                     `json:"attempts"`
	LastError  string                  `json:"last_error,omitempty"`
}

// ReconcileQueue receives submit-mode finalizations that exhausted their
// retries.
type ReconcileQueue interface {
	Enqueue(ctx context.Context, entry ReconcileEntry) error
}

// LogReconcileQueue is used when no queue backend is configured. Entries
// are only logged so an operator can replay them by hand.
type LogReconcileQueue struct {
	Logger *zap.SugaredLogger
}

func (q LogReconcileQueue) Enqueue(_ context.Context, entry ReconcileEntry) error {
	log := q.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	log.Errorw("Finalization needs manual reconciliation",
		"submission_id", entry.Submission.ID,
		"user_id", entry.Submission.UserID,
		"problem_id", entry.Submission.ProblemID,
		"status", entry.Submission.Status.String(),
		"last_error", entry.LastError,
	)
	return nil
}
