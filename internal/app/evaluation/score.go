package evaluation

import (
	"math"

	"codementor/internal/domain/model"
)

// Score maps a verdict and pass counts onto 0..100.
func Score(status model.Verdict, passed, total int) int {
	switch status {
	case model.VerdictAccepted:
		return 100
	case model.VerdictCompilationError, model.VerdictInternalError:
		return 0
	}
	if total <= 0 {
		return 0
	}
	score := int(math.Round(100 * float64(passed) / float64(total)))
	if score >= 100 {
		// Only an accepted submission may score 100.
		return 99
	}
	return score
}

// WorstPassing returns the maximum runtime and memory across passed tests,
// so a submission is never ranked better than its slowest passing case.
func WorstPassing(results []model.TestResult) (runtimeMs, memoryKb int) {
	for _, r := range results {
		if !r.Passed {
			continue
		}
		runtimeMs = max(runtimeMs, r.RuntimeMs)
		memoryKb = max(memoryKb, r.MemoryKb)
	}
	return runtimeMs, memoryKb
}

// PercentileCounts describes the accepted history of a problem relative to
// one candidate submission. The candidate itself is not included.
type PercentileCounts struct {
	PriorAccepted  int
	RuntimeAtLeast int // prior accepted with runtime_ms >= candidate
	MemoryAtLeast  int // prior accepted with memory_kb >= candidate
}

// Percentiles ranks a candidate against prior accepted submissions. The
// candidate joins the population, so a lone accepted submission scores 100.
func Percentiles(c PercentileCounts) (timePct, memoryPct float64) {
	population := float64(c.PriorAccepted + 1)
	return clampPercent(100 * float64(c.RuntimeAtLeast+1) / population),
		clampPercent(100 * float64(c.MemoryAtLeast+1) / population)
}

func clampPercent(p float64) float64 {
	switch {
	case math.IsNaN(p) || p < 0:
		return 0
	case p > 100:
		return 100
	}
	return math.Round(p*100) / 100
}
