package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"codementor/internal/common"
	"codementor/internal/domain/model"
)

// ProblemFilter narrows ListProblems. Zero values mean "any".
type ProblemFilter struct {
	Difficulty model.ProblemDifficulty
	Category   string
	Search     string
	Limit      int
	Offset     int
}

type ProblemRepository interface {
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
	FindProblemByNumber(ctx context.Context, number int) (*model.Problem, error)
	FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error)
	ListProblems(ctx context.Context, filter ProblemFilter) ([]model.Problem, int, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

const problemColumns = `p.id, p.problem_number, p.title, p.slug, p.difficulty, p.category, p.solution_templates,
       p.total_submissions, p.total_accepted, p.acceptance_rate, p.like_count, p.dislike_count,
       p.created_at, p.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProblem(row rowScanner) (*model.Problem, error) {
	p := &model.Problem{}
	var templates []byte
	err := row.Scan(
		&p.ID, &p.ProblemNumber, &p.Title, &p.Slug, &p.Difficulty, &p.Category, &templates,
		&p.Stats.TotalSubmissions, &p.Stats.TotalAccepted, &p.Stats.AcceptanceRate,
		&p.Stats.LikeCount, &p.Stats.DislikeCount,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.SolutionTemplates = map[string]string{}
	if len(templates) > 0 {
		if err := json.Unmarshal(templates, &p.SolutionTemplates); err != nil {
			return nil, fmt.Errorf("decode solution_templates: %w", err)
		}
	}
	return p, nil
}

func (r *pgProblemRepository) findOne(ctx context.Context, op, where string, arg any) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems p WHERE ` + where
	problem, err := scanProblem(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrProblemNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.%s: %w", op, err)
	}
	return problem, nil
}

func (r *pgProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	return r.findOne(ctx, "FindProblemByID", "p.id = $1", id)
}

func (r *pgProblemRepository) FindProblemByNumber(ctx context.Context, number int) (*model.Problem, error) {
	return r.findOne(ctx, "FindProblemByNumber", "p.problem_number = $1", number)
}

func (r *pgProblemRepository) FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	return r.findOne(ctx, "FindProblemBySlug", "p.slug = $1", slug)
}

func (r *pgProblemRepository) ListProblems(ctx context.Context, filter ProblemFilter) ([]model.Problem, int, error) {
	var conditions []string
	var args []interface{}
	argID := 1

	if filter.Difficulty != "" {
		conditions = append(conditions, fmt.Sprintf("p.difficulty = $%d", argID))
		args = append(args, filter.Difficulty)
		argID++
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("p.category = $%d", argID))
		args = append(args, filter.Category)
		argID++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("p.title ILIKE $%d", argID))
		args = append(args, "%"+filter.Search+"%")
		argID++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM problems p`+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems count: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + problemColumns + ` FROM problems p` + whereClause +
		fmt.Sprintf(" ORDER BY p.problem_number ASC LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems query: %w", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems scan: %w", err)
		}
		problems = append(problems, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems rows.Err: %w", err)
	}
	return problems, total, nil
}
