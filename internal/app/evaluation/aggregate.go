package evaluation

import "codementor/internal/domain/model"

// Aggregate is the folded view of one evaluation attempt.
type Aggregate struct {
	Status  model.Verdict
	Summary model.SubmissionSummary
}

// AggregateResults folds ordered per-test results into one verdict.
//
// The overall status is the highest-precedence status seen, so it does not
// depend on the order of failures. FirstFailedTest is the first test in
// sequence order carrying that status. totalTests is the number of selected
// test cases; results may be shorter only when evaluation stopped early, in
// which case the missing tests count as failed.
func AggregateResults(results []model.TestResult, totalTests int) Aggregate {
	if totalTests < len(results) {
		totalTests = len(results)
	}

	agg := Aggregate{Status: model.VerdictAccepted}
	var runtimeSum, memorySum int
	for _, r := range results {
		agg.Status = agg.Status.Max(r.Status)
		if r.Passed {
			agg.Summary.PassedTests++
			runtimeSum += r.RuntimeMs
			memorySum += r.MemoryKb
		}
	}
	if len(results) < totalTests && agg.Status == model.VerdictAccepted {
		// Tests that never ran cannot be called accepted.
		agg.Status = model.VerdictInternalError
	}

	agg.Summary.TotalTests = totalTests
	agg.Summary.FailedTests = totalTests - agg.Summary.PassedTests
	if agg.Summary.PassedTests > 0 {
		agg.Summary.AvgRuntimeMs = float64(runtimeSum) / float64(agg.Summary.PassedTests)
		agg.Summary.AvgMemoryKb = float64(memorySum) / float64(agg.Summary.PassedTests)
	}
	if agg.Status != model.VerdictAccepted {
		for _, r := range results {
			if r.Status == agg.Status {
				agg.Summary.FirstFailedTest = r.TestCaseNumber
				break
			}
		}
	}
	return agg
}

// CompilationFailure is the aggregate for a build that never produced a
// runnable program: nothing executed, every selected test counts as failed.
func CompilationFailure(totalTests int) Aggregate {
	return Aggregate{
		Status: model.VerdictCompilationError,
		Summary: model.SubmissionSummary{
			TotalTests:  totalTests,
			FailedTests: totalTests,
		},
	}
}
