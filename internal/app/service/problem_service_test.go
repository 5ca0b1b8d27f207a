package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"codementor/internal/common"
	"codementor/internal/domain/model"
	"codementor/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblemService_Lookups(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTwoSum(t, store)
	svc := NewProblemService(store, store)
	ctx := context.Background()

	byNumber, err := svc.GetProblem(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "p-two-sum", byNumber.ID)

	bySlug, err := svc.GetProblem(ctx, "two-sum")
	require.NoError(t, err)
	assert.Equal(t, "p-two-sum", bySlug.ID)

	byTitle, err := svc.GetProblem(ctx, "Two Sum")
	require.NoError(t, err)
	assert.Equal(t, "p-two-sum", byTitle.ID)

	_, err = svc.GetProblem(ctx, "  ")
	assert.ErrorIs(t, err, common.ErrBadRequest)
	_, err = svc.GetProblem(ctx, "3sum-closest")
	assert.ErrorIs(t, err, common.ErrNotFound)

	visible, err := svc.GetVisibleTestCases(ctx, "two-sum")
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.False(t, visible[0].IsHidden)
}

func TestProblemService_LookupByID(t *testing.T) {
	store := repository.NewMemoryStore()
	id := "3f0c2a8e-5b7d-4c1e-9a2f-6d8b1e4c7a90"
	require.NoError(t, store.SeedProblem(model.Problem{
		ID:            id,
		ProblemNumber: 7,
		Title:         "Reverse Integer",
		Slug:          "reverse-integer",
		Difficulty:    model.DifficultyMedium,
	}, nil))
	svc := NewProblemService(store, store)

	p, err := svc.GetProblem(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 7, p.ProblemNumber)

	_, err = svc.GetProblem(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestProblemService_ListProblems(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTwoSum(t, store)
	svc := NewProblemService(store, store)

	problems, total, err := svc.ListProblems(context.Background(), ListProblemsRequest{Page: 2, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, problems, 1)
	assert.Equal(t, 2, problems[0].ProblemNumber)

	hard, total, err := svc.ListProblems(context.Background(), ListProblemsRequest{Page: 1, PageSize: 10, Difficulty: model.DifficultyHard})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "p-empty", hard[0].ID)
}

func TestSeedCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
	  {
	    "problem": {"problem_number": 1, "title": "Two Sum", "difficulty": "Easy",
	                "solution_templates": {"python": "class Solution: ..."}},
	    "test_cases": [
	      {"test_case_number": 1, "input_data": {"nums": [2,7,11,15], "target": 9}, "expected_output": [0,1]},
	      {"test_case_number": 2, "is_hidden": true, "input_string": "1 5 3 7\n10\n", "expected_output_string": "2 3"}
	    ]
	  }
	]`), 0o644))

	store := repository.NewMemoryStore()
	n, err := SeedCatalogFile(path, store)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	p, err := store.FindProblemBySlug(context.Background(), "two-sum")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.True(t, p.SupportsLanguage("python"))

	tcs, err := store.ListTestCases(context.Background(), p.ID, false)
	require.NoError(t, err)
	require.Len(t, tcs, 2)
	assert.NotEmpty(t, tcs[0].ID)
	assert.Equal(t, p.ID, tcs[1].ProblemID)

	_, err = SeedCatalogFile(filepath.Join(t.TempDir(), "missing.json"), store)
	assert.Error(t, err)
}
