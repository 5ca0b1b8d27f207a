package evaluation

import (
	"testing"

	"codementor/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func result(n int, v model.Verdict, runtimeMs, memoryKb int) model.TestResult {
	return model.TestResult{
		TestCaseNumber: n,
		Status:         v,
		Passed:         v == model.VerdictAccepted,
		RuntimeMs:      runtimeMs,
		MemoryKb:       memoryKb,
	}
}

func TestAggregateResults_AllAccepted(t *testing.T) {
	agg := AggregateResults([]model.TestResult{
		result(1, model.VerdictAccepted, 10, 1000),
		result(2, model.VerdictAccepted, 30, 3000),
	}, 2)

	assert.Equal(t, model.VerdictAccepted, agg.Status)
	assert.Equal(t, 2, agg.Summary.TotalTests)
	assert.Equal(t, 2, agg.Summary.PassedTests)
	assert.Equal(t, 0, agg.Summary.FailedTests)
	assert.Zero(t, agg.Summary.FirstFailedTest)
	assert.InDelta(t, 20.0, agg.Summary.AvgRuntimeMs, 1e-9)
	assert.InDelta(t, 2000.0, agg.Summary.AvgMemoryKb, 1e-9)
}

func TestAggregateResults_HighestPrecedenceWins(t *testing.T) {
	agg := AggregateResults([]model.TestResult{
		result(1, model.VerdictAccepted, 10, 1000),
		result(2, model.VerdictWrongAnswer, 10, 1000),
		result(3, model.VerdictTimeLimitExceeded, 2000, 1000),
		result(4, model.VerdictWrongAnswer, 10, 1000),
	}, 4)

	assert.Equal(t, model.VerdictTimeLimitExceeded, agg.Status)
	assert.Equal(t, 3, agg.Summary.FirstFailedTest, "first test carrying the overall status")
	assert.Equal(t, 1, agg.Summary.PassedTests)
	assert.Equal(t, 3, agg.Summary.FailedTests)
	assert.InDelta(t, 10.0, agg.Summary.AvgRuntimeMs, 1e-9, "averages cover passed tests only")
}

func TestAggregateResults_OrderIndependentStatus(t *testing.T) {
	forward := AggregateResults([]model.TestResult{
		result(1, model.VerdictWrongAnswer, 0, 0),
		result(2, model.VerdictRuntimeError, 0, 0),
	}, 2)
	backward := AggregateResults([]model.TestResult{
		result(1, model.VerdictRuntimeError, 0, 0),
		result(2, model.VerdictWrongAnswer, 0, 0),
	}, 2)

	assert.Equal(t, model.VerdictRuntimeError, forward.Status)
	assert.Equal(t, model.VerdictRuntimeError, backward.Status)
	assert.Equal(t, 2, forward.Summary.FirstFailedTest)
	assert.Equal(t, 1, backward.Summary.FirstFailedTest)
}

func TestAggregateResults_InternalErrorOutranksAll(t *testing.T) {
	agg := AggregateResults([]model.TestResult{
		result(1, model.VerdictCompilationError, 0, 0),
		result(2, model.VerdictInternalError, 0, 0),
	}, 2)
	assert.Equal(t, model.VerdictInternalError, agg.Status)
	assert.Equal(t, 2, agg.Summary.FirstFailedTest)
}

func TestAggregateResults_MissingResultsAreNotAccepted(t *testing.T) {
	agg := AggregateResults([]model.TestResult{
		result(1, model.VerdictAccepted, 5, 100),
	}, 3)

	assert.Equal(t, model.VerdictInternalError, agg.Status)
	assert.Equal(t, 3, agg.Summary.TotalTests)
	assert.Equal(t, 1, agg.Summary.PassedTests)
	assert.Equal(t, 2, agg.Summary.FailedTests)
}

func TestCompilationFailure(t *testing.T) {
	agg := CompilationFailure(5)
	assert.Equal(t, model.VerdictCompilationError, agg.Status)
	assert.Equal(t, 5, agg.Summary.TotalTests)
	assert.Equal(t, 5, agg.Summary.FailedTests)
	assert.Zero(t, agg.Summary.PassedTests)
}
