package repository

import (
	"context"
	"database/sql"
	"fmt"

	"codementor/internal/domain/model"
)

// TestCaseRepository returns a problem's test cases ordered by
// test_case_number ascending. visibleOnly restricts the set to is_hidden=false.
type TestCaseRepository interface {
	ListTestCases(ctx context.Context, problemID string, visibleOnly bool) ([]model.TestCase, error)
}

type pgTestCaseRepository struct {
	db *sql.DB
}

func NewPgTestCaseRepository(db *sql.DB) TestCaseRepository {
	return &pgTestCaseRepository{db: db}
}

func (r *pgTestCaseRepository) ListTestCases(ctx context.Context, problemID string, visibleOnly bool) ([]model.TestCase, error) {
	query := `SELECT id, problem_id, test_case_number, is_hidden, is_sample, input_data, input_string,
	                 expected_output, expected_output_string, time_limit_ms, memory_limit_mb, created_at
	          FROM test_cases
	          WHERE problem_id = $1 AND ($2 = FALSE OR is_hidden = FALSE)
	          ORDER BY test_case_number ASC`
	rows, err := r.db.QueryContext(ctx, query, problemID, visibleOnly)
	if err != nil {
		return nil, fmt.Errorf("pgTestCaseRepository.ListTestCases query: %w", err)
	}
	defer rows.Close()

	testCases := []model.TestCase{}
	for rows.Next() {
		var tc model.TestCase
		var inputData, expected []byte
		if err := rows.Scan(&tc.ID, &tc.ProblemID, &tc.TestCaseNumber, &tc.IsHidden, &tc.IsSample,
			&inputData, &tc.InputString, &expected, &tc.ExpectedOutputString,
			&tc.TimeLimitMs, &tc.MemoryLimitMb, &tc.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgTestCaseRepository.ListTestCases scan: %w", err)
		}
		tc.InputData = inputData
		tc.ExpectedOutput = expected
		testCases = append(testCases, tc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgTestCaseRepository.ListTestCases rows.Err: %w", err)
	}
	return testCases, nil
}
