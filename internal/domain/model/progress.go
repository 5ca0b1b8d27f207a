package model

import "time"

type ProgressStatus string

const (
	ProgressTodo      ProgressStatus = "todo"
	ProgressAttempted ProgressStatus = "attempted"
	ProgressSolved    ProgressStatus = "solved"
)

func (s ProgressStatus) rank() int {
	switch s {
	case ProgressAttempted:
		return 1
	case ProgressSolved:
		return 2
	}
	return 0
}

// AtLeast reports whether s is the same as or later than other in the
// todo -> attempted -> solved lifecycle.
func (s ProgressStatus) AtLeast(other ProgressStatus) bool {
	return s.rank() >= other.rank()
}

// UserProgress is keyed by (UserID, ProblemID).
type UserProgress struct {
	UserID         string          `json:"user_id"`
	ProblemID      string          `json:"problem_id"`
	ProblemNumber  int             `json:"problem_number"`
	Status         ProgressStatus  `json:"status"`
	FirstAttemptAt *time.Time      `json:"first_attempt_at,omitempty"`
	LastAttemptAt  *time.Time      `json:"last_attempt_at,omitempty"`
	SolvedAt       *time.Time      `json:"solved_at,omitempty"`
	AttemptsCount  int             `json:"attempts_count"`
	LanguagesUsed  []string        `json:"languages_used"`
	BestSubmission *BestSubmission `json:"best_submission,omitempty"`
}

type BestSubmission struct {
	SubmissionID string    `json:"submission_id"`
	RuntimeMs    int       `json:"runtime_ms"`
	MemoryKb     int       `json:"memory_kb"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// UserStats holds lifetime counters for one user.
type UserStats struct {
	UserID              string     `json:"user_id"`
	TotalSolved         int        `json:"total_solved"`
	EasySolved          int        `json:"easy_solved"`
	MediumSolved        int        `json:"medium_solved"`
	HardSolved          int        `json:"hard_solved"`
	TotalSubmissions    int        `json:"total_submissions"`
	AcceptedSubmissions int        `json:"accepted_submissions"`
	AcceptanceRate      float64    `json:"acceptance_rate"`
	CurrentStreak       int        `json:"current_streak"`
	LongestStreak       int        `json:"longest_streak"`
	LastAcceptedOn      *time.Time `json:"last_accepted_on,omitempty"` // UTC midnight
}

// NewUserProgress returns the initial TODO record for a pair.
func NewUserProgress(userID, problemID string, problemNumber int) *UserProgress {
	return &UserProgress{
		UserID:        userID,
		ProblemID:     problemID,
		ProblemNumber: problemNumber,
		Status:        ProgressTodo,
		LanguagesUsed: []string{},
	}
}
