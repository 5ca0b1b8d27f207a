package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"codementor/internal/common"
	"codementor/internal/domain/model"
)

// ApplyFunc mutates the locked progress, stats and problem aggregates for one
// submission. It must be deterministic and free of I/O; it may run more than
// once if the surrounding unit of work is retried.
type ApplyFunc func(progress *model.UserProgress, stats *model.UserStats, problemStats *model.ProblemStats)

// FinalizationRepository persists a finalized submission and, when apply is
// non-nil, the progress/stats/problem updates it causes, as one atomic unit.
//
// Finalize is idempotent per submission id: a repeat returns
// common.ErrAlreadyFinalized and changes nothing. Retryable contention is
// reported as common.ErrPersistenceConflict. Rows are locked in the order
// progress, stats, problem so concurrent finalizations cannot deadlock on
// each other, and only the keys of this submission are locked.
//
// The Postgres implementation locks with FOR NO KEY UPDATE. The submission
// and progress inserts hold FOR KEY SHARE on the problem row through their
// foreign keys, and FOR UPDATE would conflict with another transaction's
// KEY SHARE on the same problem.
type FinalizationRepository interface {
	Finalize(ctx context.Context, sub *model.Submission, apply ApplyFunc) error
}

type pgFinalizationRepository struct {
	db *sql.DB
}

func NewPgFinalizationRepository(db *sql.DB) FinalizationRepository {
	return &pgFinalizationRepository{db: db}
}

func (r *pgFinalizationRepository) Finalize(ctx context.Context, sub *model.Submission, apply ApplyFunc) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgFinalizationRepository.Finalize begin: %w", common.ClassifyPgError(err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	inserted, err := insertSubmission(ctx, tx, sub)
	if err != nil {
		return err
	}
	if !inserted {
		return fmt.Errorf("submission %s: %w", sub.ID, common.ErrAlreadyFinalized)
	}

	if apply != nil {
		progress, err := lockProgress(ctx, tx, sub)
		if err != nil {
			return err
		}
		stats, err := lockUserStats(ctx, tx, sub.UserID)
		if err != nil {
			return err
		}
		problemStats, err := lockProblemStats(ctx, tx, sub.ProblemID)
		if err != nil {
			return err
		}

		apply(progress, stats, problemStats)

		if err = updateProgress(ctx, tx, progress); err != nil {
			return err
		}
		if err = updateUserStats(ctx, tx, stats); err != nil {
			return err
		}
		if err = updateProblemStats(ctx, tx, sub.ProblemID, problemStats); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("pgFinalizationRepository.Finalize commit: %w", common.ClassifyPgError(err))
	}
	return nil
}

func insertSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) (bool, error) {
	results, err := json.Marshal(sub.TestResults)
	if err != nil {
		return false, fmt.Errorf("insertSubmission encode test_results: %w", err)
	}
	summary, err := json.Marshal(sub.Summary)
	if err != nil {
		return false, fmt.Errorf("insertSubmission encode summary: %w", err)
	}
	var errorMessage sql.NullString
	if sub.ErrorMessage != nil {
		errorMessage = sql.NullString{String: *sub.ErrorMessage, Valid: true}
	}

	query := `INSERT INTO submissions (id, user_id, problem_id, problem_number, language, code, submission_type,
	                                   status, test_results, summary, score, runtime_ms, memory_kb,
	                                   execution_time_ms, is_accepted, error_message, submitted_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	          ON CONFLICT (id) DO NOTHING`
	res, err := tx.ExecContext(ctx, query,
		sub.ID, sub.UserID, sub.ProblemID, sub.ProblemNumber, sub.Language, sub.Code,
		string(sub.SubmissionType), sub.Status, results, summary, sub.Score, sub.RuntimeMs,
		sub.MemoryKb, sub.ExecutionTimeMs, sub.IsAccepted, errorMessage, sub.SubmittedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insertSubmission: %w", common.ClassifyPgError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insertSubmission rows affected: %w", err)
	}
	return n == 1, nil
}

func lockProgress(ctx context.Context, tx *sql.Tx, sub *model.Submission) (*model.UserProgress, error) {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO user_progress (user_id, problem_id, problem_number, status)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, problem_id) DO NOTHING`,
		sub.UserID, sub.ProblemID, sub.ProblemNumber, string(model.ProgressTodo))
	if err != nil {
		return nil, fmt.Errorf("lockProgress ensure: %w", common.ClassifyPgError(err))
	}
	query := `SELECT ` + progressColumns + ` FROM user_progress WHERE user_id = $1 AND problem_id = $2 FOR NO KEY UPDATE`
	p, err := scanProgress(tx.QueryRowContext(ctx, query, sub.UserID, sub.ProblemID))
	if err != nil {
		return nil, fmt.Errorf("lockProgress: %w", common.ClassifyPgError(err))
	}
	return p, nil
}

func lockUserStats(ctx context.Context, tx *sql.Tx, userID string) (*model.UserStats, error) {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO user_stats (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return nil, fmt.Errorf("lockUserStats ensure: %w", common.ClassifyPgError(err))
	}
	query := `SELECT ` + userStatsColumns + ` FROM user_stats WHERE user_id = $1 FOR NO KEY UPDATE`
	s, err := scanUserStats(tx.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("lockUserStats: %w", common.ClassifyPgError(err))
	}
	return s, nil
}

func lockProblemStats(ctx context.Context, tx *sql.Tx, problemID string) (*model.ProblemStats, error) {
	query := `SELECT total_submissions, total_accepted, acceptance_rate, like_count, dislike_count
	          FROM problems WHERE id = $1 FOR NO KEY UPDATE`
	ps := &model.ProblemStats{}
	err := tx.QueryRowContext(ctx, query, problemID).Scan(
		&ps.TotalSubmissions, &ps.TotalAccepted, &ps.AcceptanceRate, &ps.LikeCount, &ps.DislikeCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrProblemNotFound
		}
		return nil, fmt.Errorf("lockProblemStats: %w", common.ClassifyPgError(err))
	}
	return ps, nil
}

func updateProgress(ctx context.Context, tx *sql.Tx, p *model.UserProgress) error {
	languages, err := json.Marshal(p.LanguagesUsed)
	if err != nil {
		return fmt.Errorf("updateProgress encode languages_used: %w", err)
	}
	var best any
	if p.BestSubmission != nil {
		encoded, err := json.Marshal(p.BestSubmission)
		if err != nil {
			return fmt.Errorf("updateProgress encode best_submission: %w", err)
		}
		best = encoded
	}
	query := `UPDATE user_progress SET
	              status = $3, first_attempt_at = $4, last_attempt_at = $5, solved_at = $6,
	              attempts_count = $7, languages_used = $8, best_submission = $9
	          WHERE user_id = $1 AND problem_id = $2`
	_, err = tx.ExecContext(ctx, query, p.UserID, p.ProblemID, string(p.Status),
		p.FirstAttemptAt, p.LastAttemptAt, p.SolvedAt, p.AttemptsCount, languages, best)
	if err != nil {
		return fmt.Errorf("updateProgress: %w", common.ClassifyPgError(err))
	}
	return nil
}

func updateUserStats(ctx context.Context, tx *sql.Tx, s *model.UserStats) error {
	query := `UPDATE user_stats SET
	              total_solved = $2, easy_solved = $3, medium_solved = $4, hard_solved = $5,
	              total_submissions = $6, accepted_submissions = $7, acceptance_rate = $8,
	              current_streak = $9, longest_streak = $10, last_accepted_on = $11
	          WHERE user_id = $1`
	_, err := tx.ExecContext(ctx, query, s.UserID, s.TotalSolved, s.EasySolved, s.MediumSolved,
		s.HardSolved, s.TotalSubmissions, s.AcceptedSubmissions, s.AcceptanceRate,
		s.CurrentStreak, s.LongestStreak, s.LastAcceptedOn)
	if err != nil {
		return fmt.Errorf("updateUserStats: %w", common.ClassifyPgError(err))
	}
	return nil
}

func updateProblemStats(ctx context.Context, tx *sql.Tx, problemID string, ps *model.ProblemStats) error {
	query := `UPDATE problems SET
	              total_submissions = $2, total_accepted = $3, acceptance_rate = $4,
	              updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1`
	_, err := tx.ExecContext(ctx, query, problemID, ps.TotalSubmissions, ps.TotalAccepted, ps.AcceptanceRate)
	if err != nil {
		return fmt.Errorf("updateProblemStats: %w", common.ClassifyPgError(err))
	}
	return nil
}
