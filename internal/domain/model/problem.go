package model

import (
	"encoding/json"
	"time"
)

type ProblemDifficulty string

const (
	DifficultyEasy   ProblemDifficulty = "Easy"
	DifficultyMedium ProblemDifficulty = "Medium"
	DifficultyHard   ProblemDifficulty = "Hard"
)

func (d ProblemDifficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

type Problem struct {
	ID                string            `json:"id"`
	ProblemNumber     int               `json:"problem_number"`
	Title             string            `json:"title"`
	Slug              string            `json:"slug"`
	Difficulty        ProblemDifficulty `json:"difficulty"`
	Category          string            `json:"category"`
	SolutionTemplates map[string]string `json:"solution_templates"` // language -> starter code
	Stats             ProblemStats      `json:"stats"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// SupportsLanguage reports whether the problem ships a template for language.
func (p *Problem) SupportsLanguage(language string) bool {
	_, ok := p.SolutionTemplates[language]
	return ok
}

type ProblemStats struct {
	TotalSubmissions int     `json:"total_submissions"`
	TotalAccepted    int     `json:"total_accepted"`
	AcceptanceRate   float64 `json:"acceptance_rate"`
	LikeCount        int     `json:"like_count"`
	DislikeCount     int     `json:"dislike_count"`
}

// RecomputeAcceptanceRate keeps AcceptanceRate = TotalAccepted/TotalSubmissions.
func (s *ProblemStats) RecomputeAcceptanceRate() {
	if s.TotalSubmissions <= 0 {
		s.AcceptanceRate = 0
		return
	}
	s.AcceptanceRate = float64(s.TotalAccepted) / float64(s.TotalSubmissions)
}

type TestCase struct {
	ID                   string          `json:"id"`
	ProblemID            string          `json:"problem_id"`
	TestCaseNumber       int             `json:"test_case_number"` // 1-based, unique per problem
	IsHidden             bool            `json:"is_hidden"`
	IsSample             bool            `json:"is_sample"`
	InputData            json.RawMessage `json:"input_data,omitempty"`
	InputString          string          `json:"input_string"`
	ExpectedOutput       json.RawMessage `json:"expected_output,omitempty"`
	ExpectedOutputString string          `json:"expected_output_string"`
	TimeLimitMs          int             `json:"time_limit_ms"`
	MemoryLimitMb        int             `json:"memory_limit_mb"`
	CreatedAt            time.Time       `json:"created_at"`
}

const (
	DefaultTimeLimitMs   = 2000
	DefaultMemoryLimitMb = 256
)
