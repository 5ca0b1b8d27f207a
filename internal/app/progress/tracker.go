// Package progress applies a finalized submit-mode submission to the
// submitting user's per-problem progress, lifetime stats and the problem's
// aggregate counters. It performs no I/O; callers hold whatever per-key
// serialisation the store provides while Apply runs.
package progress

import (
	"slices"
	"time"

	"codementor/internal/domain/model"
)

// Outcome reports what an Apply call changed beyond the plain counters.
type Outcome struct {
	FirstSolve     bool
	BestReplaced   bool
	PreviousStatus model.ProgressStatus
	NewStreakDay   bool
}

// Apply mutates progress, stats and problemStats for one submit-mode
// submission. difficulty is the problem's difficulty and now the
// finalization instant.
func Apply(
	p *model.UserProgress,
	stats *model.UserStats,
	problemStats *model.ProblemStats,
	sub *model.Submission,
	difficulty model.ProblemDifficulty,
	now time.Time,
) Outcome {
	out := Outcome{PreviousStatus: p.Status}
	if p.Status == "" {
		p.Status = model.ProgressTodo
	}

	p.AttemptsCount++
	p.LastAttemptAt = timePtr(now)
	if p.FirstAttemptAt == nil {
		p.FirstAttemptAt = timePtr(now)
	}
	if !slices.Contains(p.LanguagesUsed, sub.Language) {
		p.LanguagesUsed = append(p.LanguagesUsed, sub.Language)
	}

	if !p.Status.AtLeast(model.ProgressAttempted) {
		p.Status = model.ProgressAttempted
	}

	stats.TotalSubmissions++
	problemStats.TotalSubmissions++

	accepted := sub.Status == model.VerdictAccepted
	if accepted {
		stats.AcceptedSubmissions++
		if !p.Status.AtLeast(model.ProgressSolved) {
			p.Status = model.ProgressSolved
			if p.SolvedAt == nil {
				p.SolvedAt = timePtr(now)
			}
			out.FirstSolve = true
			problemStats.TotalAccepted++
			stats.TotalSolved++
			switch difficulty {
			case model.DifficultyEasy:
				stats.EasySolved++
			case model.DifficultyMedium:
				stats.MediumSolved++
			case model.DifficultyHard:
				stats.HardSolved++
			}
		}
		out.BestReplaced = updateBest(p, sub)
		out.NewStreakDay = updateStreak(stats, now)
	}

	if stats.TotalSubmissions > 0 {
		stats.AcceptanceRate = float64(stats.AcceptedSubmissions) / float64(stats.TotalSubmissions)
	}
	problemStats.RecomputeAcceptanceRate()
	return out
}

// updateBest replaces the best submission on a strict runtime improvement,
// or equal runtime with strictly lower memory.
func updateBest(p *model.UserProgress, sub *model.Submission) bool {
	best := p.BestSubmission
	if best != nil {
		if sub.RuntimeMs > best.RuntimeMs {
			return false
		}
		if sub.RuntimeMs == best.RuntimeMs && sub.MemoryKb >= best.MemoryKb {
			return false
		}
	}
	p.BestSubmission = &model.BestSubmission{
		SubmissionID: sub.ID,
		RuntimeMs:    sub.RuntimeMs,
		MemoryKb:     sub.MemoryKb,
		SubmittedAt:  sub.SubmittedAt,
	}
	return true
}

// updateStreak counts UTC calendar days with at least one accepted
// submission. It returns true when now is the first accepted day counted.
func updateStreak(stats *model.UserStats, now time.Time) bool {
	today := utcDay(now)
	if stats.LastAcceptedOn != nil {
		last := utcDay(*stats.LastAcceptedOn)
		switch {
		case !today.After(last):
			// Same day, or a clock that went backwards: nothing to extend.
			return false
		case last.AddDate(0, 0, 1).Equal(today):
			stats.CurrentStreak++
		default:
			stats.CurrentStreak = 1
		}
	} else {
		stats.CurrentStreak = 1
	}
	stats.LastAcceptedOn = &today
	if stats.CurrentStreak > stats.LongestStreak {
		stats.LongestStreak = stats.CurrentStreak
	}
	return true
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
