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

// AcceptedCounts describes prior accepted submit-mode submissions of a problem
// relative to a candidate runtime and memory.
type AcceptedCounts struct {
	Total          int
	RuntimeAtLeast int
	MemoryAtLeast  int
}

// SubmissionRepository is the read side of the append-only submission log.
// Writes go through FinalizationRepository.
type SubmissionRepository interface {
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	ListRecentForUserProblem(ctx context.Context, userID, problemID string, limit int) ([]model.Submission, error)
	AcceptedPercentileCounts(ctx context.Context, problemID string, runtimeMs, memoryKb int) (AcceptedCounts, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

const submissionColumns = `id, user_id, problem_id, problem_number, language, code, submission_type, status,
       test_results, summary, score, runtime_ms, memory_kb, execution_time_ms, is_accepted,
       error_message, submitted_at`

func scanSubmission(row rowScanner) (*model.Submission, error) {
	sub := &model.Submission{}
	var results, summary []byte
	var errorMessage sql.NullString
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.ProblemID, &sub.ProblemNumber, &sub.Language, &sub.Code,
		&sub.SubmissionType, &sub.Status, &results, &summary, &sub.Score, &sub.RuntimeMs,
		&sub.MemoryKb, &sub.ExecutionTimeMs, &sub.IsAccepted, &errorMessage, &sub.SubmittedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(results, &sub.TestResults); err != nil {
		return nil, fmt.Errorf("decode test_results: %w", err)
	}
	if err := json.Unmarshal(summary, &sub.Summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	if errorMessage.Valid {
		sub.ErrorMessage = &errorMessage.String
	}
	return sub, nil
}

func (r *pgSubmissionRepository) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	sub, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) ListRecentForUserProblem(ctx context.Context, userID, problemID string, limit int) ([]model.Submission, error) {
	query := `SELECT ` + submissionColumns + `
	          FROM submissions
	          WHERE user_id = $1 AND problem_id = $2
	          ORDER BY submitted_at DESC
	          LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, userID, problemID, limit)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListRecentForUserProblem query: %w", err)
	}
	defer rows.Close()

	subs := []model.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListRecentForUserProblem scan: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListRecentForUserProblem rows.Err: %w", err)
	}
	return subs, nil
}

func (r *pgSubmissionRepository) AcceptedPercentileCounts(ctx context.Context, problemID string, runtimeMs, memoryKb int) (AcceptedCounts, error) {
	query := `SELECT COUNT(*),
	                 COUNT(*) FILTER (WHERE runtime_ms >= $2),
	                 COUNT(*) FILTER (WHERE memory_kb >= $3)
	          FROM submissions
	          WHERE problem_id = $1 AND is_accepted AND submission_type = 'submit'`
	var c AcceptedCounts
	if err := r.db.QueryRowContext(ctx, query, problemID, runtimeMs, memoryKb).Scan(&c.Total, &c.RuntimeAtLeast, &c.MemoryAtLeast); err != nil {
		return AcceptedCounts{}, fmt.Errorf("pgSubmissionRepository.AcceptedPercentileCounts: %w", err)
	}
	return c, nil
}
