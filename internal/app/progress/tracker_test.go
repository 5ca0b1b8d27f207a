package progress

import (
	"testing"
	"time"

	"codementor/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day1 = time.Date(2026, 3, 10, 22, 30, 0, 0, time.UTC)

func submission(id string, v model.Verdict, runtimeMs, memoryKb int, lang string, at time.Time) *model.Submission {
	return &model.Submission{
		ID:          id,
		Language:    lang,
		Status:      v,
		RuntimeMs:   runtimeMs,
		MemoryKb:    memoryKb,
		IsAccepted:  v == model.VerdictAccepted,
		SubmittedAt: at,
	}
}

type state struct {
	progress *model.UserProgress
	stats    *model.UserStats
	problem  *model.ProblemStats
}

func newState() *state {
	return &state{
		progress: model.NewUserProgress("u1", "p1", 1),
		stats:    &model.UserStats{UserID: "u1"},
		problem:  &model.ProblemStats{},
	}
}

func (s *state) apply(sub *model.Submission, d model.ProblemDifficulty) Outcome {
	return Apply(s.progress, s.stats, s.problem, sub, d, sub.SubmittedAt)
}

func TestApply_WrongAnswerThenAccepted(t *testing.T) {
	s := newState()

	out := s.apply(submission("s1", model.VerdictWrongAnswer, 0, 0, "python", day1), model.DifficultyEasy)
	assert.False(t, out.FirstSolve)
	assert.Equal(t, model.ProgressTodo, out.PreviousStatus)
	assert.Equal(t, model.ProgressAttempted, s.progress.Status)
	assert.Equal(t, 1, s.progress.AttemptsCount)
	assert.Nil(t, s.progress.SolvedAt)
	assert.Nil(t, s.progress.BestSubmission)
	assert.Equal(t, 1, s.stats.TotalSubmissions)
	assert.Zero(t, s.stats.TotalSolved)
	assert.Zero(t, s.stats.CurrentStreak)

	later := day1.Add(10 * time.Minute)
	out = s.apply(submission("s2", model.VerdictAccepted, 40, 9000, "python", later), model.DifficultyEasy)
	assert.True(t, out.FirstSolve)
	assert.True(t, out.BestReplaced)
	assert.True(t, out.NewStreakDay)
	assert.Equal(t, model.ProgressSolved, s.progress.Status)
	require.NotNil(t, s.progress.SolvedAt)
	assert.Equal(t, later, *s.progress.SolvedAt)
	assert.Equal(t, day1, *s.progress.FirstAttemptAt)
	assert.Equal(t, later, *s.progress.LastAttemptAt)
	assert.Equal(t, "s2", s.progress.BestSubmission.SubmissionID)
	assert.Equal(t, []string{"python"}, s.progress.LanguagesUsed)

	assert.Equal(t, 1, s.stats.TotalSolved)
	assert.Equal(t, 1, s.stats.EasySolved)
	assert.Equal(t, 2, s.stats.TotalSubmissions)
	assert.Equal(t, 1, s.stats.AcceptedSubmissions)
	assert.InDelta(t, 0.5, s.stats.AcceptanceRate, 1e-9)
	assert.Equal(t, 1, s.stats.CurrentStreak)
	assert.Equal(t, 1, s.stats.LongestStreak)

	assert.Equal(t, 2, s.problem.TotalSubmissions)
	assert.Equal(t, 1, s.problem.TotalAccepted)
	assert.InDelta(t, 0.5, s.problem.AcceptanceRate, 1e-9)
}

func TestApply_SolvedIsNeverDowngraded(t *testing.T) {
	s := newState()
	s.apply(submission("s1", model.VerdictAccepted, 50, 1000, "go", day1), model.DifficultyMedium)
	solvedAt := *s.progress.SolvedAt

	out := s.apply(submission("s2", model.VerdictRuntimeError, 0, 0, "cpp", day1.Add(time.Hour)), model.DifficultyMedium)
	assert.Equal(t, model.ProgressSolved, out.PreviousStatus)
	assert.Equal(t, model.ProgressSolved, s.progress.Status)
	assert.Equal(t, solvedAt, *s.progress.SolvedAt)
	assert.Equal(t, "s1", s.progress.BestSubmission.SubmissionID)
	assert.Equal(t, []string{"go", "cpp"}, s.progress.LanguagesUsed)
	assert.Equal(t, 1, s.stats.MediumSolved)
	assert.Equal(t, 1, s.problem.TotalAccepted)
}

func TestApply_RepeatAcceptDoesNotRecountSolve(t *testing.T) {
	s := newState()
	s.apply(submission("s1", model.VerdictAccepted, 50, 1000, "go", day1), model.DifficultyHard)
	out := s.apply(submission("s2", model.VerdictAccepted, 60, 900, "go", day1.Add(time.Minute)), model.DifficultyHard)

	assert.False(t, out.FirstSolve)
	assert.False(t, out.BestReplaced, "slower runtime never replaces best")
	assert.False(t, out.NewStreakDay)
	assert.Equal(t, 1, s.stats.TotalSolved)
	assert.Equal(t, 1, s.stats.HardSolved)
	assert.Equal(t, 2, s.stats.AcceptedSubmissions)
	assert.Equal(t, 1, s.problem.TotalAccepted)
	assert.Equal(t, 2, s.problem.TotalSubmissions)
}

func TestApply_BestSubmissionTieBreak(t *testing.T) {
	s := newState()
	s.apply(submission("s1", model.VerdictAccepted, 50, 1000, "go", day1), model.DifficultyEasy)

	out := s.apply(submission("s2", model.VerdictAccepted, 50, 1000, "go", day1), model.DifficultyEasy)
	assert.False(t, out.BestReplaced, "equal runtime and memory keeps the earlier best")

	out = s.apply(submission("s3", model.VerdictAccepted, 50, 800, "go", day1), model.DifficultyEasy)
	assert.True(t, out.BestReplaced)
	assert.Equal(t, "s3", s.progress.BestSubmission.SubmissionID)

	out = s.apply(submission("s4", model.VerdictAccepted, 49, 5000, "go", day1), model.DifficultyEasy)
	assert.True(t, out.BestReplaced, "runtime wins over memory")
	assert.Equal(t, "s4", s.progress.BestSubmission.SubmissionID)
}

func TestApply_StreakAcrossUTCDays(t *testing.T) {
	s := newState()
	s.apply(submission("s1", model.VerdictAccepted, 10, 10, "go", day1), model.DifficultyEasy)

	// 01:00 UTC the next day, even though it is the same local evening elsewhere.
	next := time.Date(2026, 3, 11, 1, 0, 0, 0, time.UTC)
	s.apply(submission("s2", model.VerdictAccepted, 10, 10, "go", next), model.DifficultyEasy)
	assert.Equal(t, 2, s.stats.CurrentStreak)
	assert.Equal(t, 2, s.stats.LongestStreak)

	gap := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	out := s.apply(submission("s3", model.VerdictAccepted, 10, 10, "go", gap), model.DifficultyEasy)
	assert.True(t, out.NewStreakDay)
	assert.Equal(t, 1, s.stats.CurrentStreak)
	assert.Equal(t, 2, s.stats.LongestStreak)
	require.NotNil(t, s.stats.LastAcceptedOn)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), *s.stats.LastAcceptedOn)
}

func TestApply_StreakIgnoresClockGoingBackwards(t *testing.T) {
	s := newState()
	s.apply(submission("s1", model.VerdictAccepted, 10, 10, "go", day1), model.DifficultyEasy)
	out := s.apply(submission("s2", model.VerdictAccepted, 10, 10, "go", day1.AddDate(0, 0, -2)), model.DifficultyEasy)

	assert.False(t, out.NewStreakDay)
	assert.Equal(t, 1, s.stats.CurrentStreak)
}

func TestApply_ZeroValueProgressTreatedAsTodo(t *testing.T) {
	p := &model.UserProgress{UserID: "u1", ProblemID: "p1"}
	stats := &model.UserStats{}
	ps := &model.ProblemStats{}

	Apply(p, stats, ps, submission("s1", model.VerdictTimeLimitExceeded, 0, 0, "java", day1), model.DifficultyEasy, day1)
	assert.Equal(t, model.ProgressAttempted, p.Status)
	assert.Equal(t, []string{"java"}, p.LanguagesUsed)
}
