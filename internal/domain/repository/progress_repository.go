package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"codementor/internal/common"
	"codementor/internal/domain/model"
)

// ProgressRepository is the read side of per-user progress and stats.
// Mutations happen only inside FinalizationRepository.Finalize.
type ProgressRepository interface {
	GetProgress(ctx context.Context, userID, problemID string) (*model.UserProgress, error)
	ListProgressForUser(ctx context.Context, userID string) ([]model.UserProgress, error)
	GetUserStats(ctx context.Context, userID string) (*model.UserStats, error)
}

type pgProgressRepository struct {
	db *sql.DB
}

func NewPgProgressRepository(db *sql.DB) ProgressRepository {
	return &pgProgressRepository{db: db}
}

const progressColumns = `user_id, problem_id, problem_number, status, first_attempt_at, last_attempt_at,
       solved_at, attempts_count, languages_used, best_submission`

const userStatsColumns = `user_id, total_solved, easy_solved, medium_solved, hard_solved, total_submissions,
       accepted_submissions, acceptance_rate, current_streak, longest_streak, last_accepted_on`

func scanProgress(row rowScanner) (*model.UserProgress, error) {
	p := &model.UserProgress{}
	var firstAttempt, lastAttempt, solved sql.NullTime
	var languages, best []byte
	err := row.Scan(&p.UserID, &p.ProblemID, &p.ProblemNumber, &p.Status, &firstAttempt, &lastAttempt,
		&solved, &p.AttemptsCount, &languages, &best)
	if err != nil {
		return nil, err
	}
	p.FirstAttemptAt = nullTimePtr(firstAttempt)
	p.LastAttemptAt = nullTimePtr(lastAttempt)
	p.SolvedAt = nullTimePtr(solved)
	p.LanguagesUsed = []string{}
	if len(languages) > 0 {
		if err := json.Unmarshal(languages, &p.LanguagesUsed); err != nil {
			return nil, fmt.Errorf("decode languages_used: %w", err)
		}
	}
	if len(best) > 0 && string(best) != "null" {
		p.BestSubmission = &model.BestSubmission{}
		if err := json.Unmarshal(best, p.BestSubmission); err != nil {
			return nil, fmt.Errorf("decode best_submission: %w", err)
		}
	}
	return p, nil
}

func scanUserStats(row rowScanner) (*model.UserStats, error) {
	s := &model.UserStats{}
	var lastAccepted sql.NullTime
	err := row.Scan(&s.UserID, &s.TotalSolved, &s.EasySolved, &s.MediumSolved, &s.HardSolved,
		&s.TotalSubmissions, &s.AcceptedSubmissions, &s.AcceptanceRate, &s.CurrentStreak,
		&s.LongestStreak, &lastAccepted)
	if err != nil {
		return nil, err
	}
	s.LastAcceptedOn = nullTimePtr(lastAccepted)
	return s, nil
}

func (r *pgProgressRepository) GetProgress(ctx context.Context, userID, problemID string) (*model.UserProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM user_progress WHERE user_id = $1 AND problem_id = $2`
	p, err := scanProgress(r.db.QueryRowContext(ctx, query, userID, problemID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProgressRepository.GetProgress: %w", err)
	}
	return p, nil
}

func (r *pgProgressRepository) ListProgressForUser(ctx context.Context, userID string) ([]model.UserProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM user_progress WHERE user_id = $1 ORDER BY problem_number ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgProgressRepository.ListProgressForUser query: %w", err)
	}
	defer rows.Close()

	list := []model.UserProgress{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("pgProgressRepository.ListProgressForUser scan: %w", err)
		}
		list = append(list, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProgressRepository.ListProgressForUser rows.Err: %w", err)
	}
	return list, nil
}

// GetUserStats returns zeroed stats for a user who never submitted.
func (r *pgProgressRepository) GetUserStats(ctx context.Context, userID string) (*model.UserStats, error) {
	query := `SELECT ` + userStatsColumns + ` FROM user_stats WHERE user_id = $1`
	s, err := scanUserStats(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &model.UserStats{UserID: userID}, nil
		}
		return nil, fmt.Errorf("pgProgressRepository.GetUserStats: %w", err)
	}
	return s, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
