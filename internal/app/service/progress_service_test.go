package service

import (
	"context"
	"testing"

	"codementor/internal/common"
	"codementor/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressService(t *testing.T) {
	h := newHarness(t, SubmissionServiceOptions{})
	svc := NewProgressService(h.store, h.store)
	ctx := context.Background()

	untouched, err := svc.GetProblemProgress(ctx, "user-1", 1)
	require.NoError(t, err)
	assert.Equal(t, model.ProgressTodo, untouched.Status)
	assert.Zero(t, untouched.AttemptsCount)

	_, err = h.svc.Evaluate(ctx, submitReq("correct"))
	require.NoError(t, err)

	solved, err := svc.GetProblemProgress(ctx, "user-1", 1)
	require.NoError(t, err)
	assert.Equal(t, model.ProgressSolved, solved.Status)

	overview, err := svc.GetOverview(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, overview.Stats.TotalSolved)
	require.Len(t, overview.Problems, 1)
	assert.Equal(t, 1, overview.Problems[0].ProblemNumber)

	empty, err := svc.GetOverview(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, empty.Problems)
	assert.Zero(t, empty.Stats.TotalSubmissions)

	_, err = svc.GetProblemProgress(ctx, "user-1", 404)
	assert.ErrorIs(t, err, common.ErrProblemNotFound)
}
