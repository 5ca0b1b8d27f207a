package model

import "time"

type SubmissionType string

const (
	SubmissionTypeRun    SubmissionType = "run"
	SubmissionTypeSubmit SubmissionType = "submit"
)

func (t SubmissionType) IsValid() bool {
	return t == SubmissionTypeRun || t == SubmissionTypeSubmit
}

// Submission is an append-only record of one evaluation request.
type Submission struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	ProblemID       string            `json:"problem_id"`
	ProblemNumber   int               `json:"problem_number"`
	Language        string            `json:"language"`
	Code            string            `json:"code"`
	SubmissionType  SubmissionType    `json:"submission_type"`
	Status          Verdict           `json:"status"`
	TestResults     []TestResult      `json:"test_results"`
	Summary         SubmissionSummary `json:"summary"`
	Score           int               `json:"score"`
	RuntimeMs       int               `json:"runtime_ms"`
	MemoryKb        int               `json:"memory_kb"`
	ExecutionTimeMs int               `json:"execution_time_ms"`
	IsAccepted      bool              `json:"is_accepted"`
	ErrorMessage    *string           `json:"error_message,omitempty"`
	SubmittedAt     time.Time         `json:"submitted_at"`
}

type TestResult struct {
	TestCaseID     string  `json:"test_case_id"`
	TestCaseNumber int     `json:"test_case_number"`
	Status         Verdict `json:"status"`
	Passed         bool    `json:"passed"`
	RuntimeMs      int     `json:"runtime_ms"`
	MemoryKb       int     `json:"memory_kb"`
	Stdout         string  `json:"stdout"`
	Stderr         string  `json:"stderr"`
	CompileOutput  string  `json:"compile_output"`
	ExpectedOutput string  `json:"expected_output"`
	UserOutput     string  `json:"user_output"`
	// Message is the sandbox's note on how the run ended, e.g. the signal.
	Message        string  `json:"message,omitempty"`
}

type SubmissionSummary struct {
	TotalTests       int     `json:"total_tests"`
	PassedTests      int     `json:"passed_tests"`
	FailedTests      int     `json:"failed_tests"`
	FirstFailedTest  int     `json:"first_failed_test,omitempty"` // test_case_number
	AvgRuntimeMs     float64 `json:"avg_runtime_ms"`
	AvgMemoryKb      float64 `json:"avg_memory_kb"`
	TimePercentile   float64 `json:"time_percentile"`
	MemoryPercentile float64 `json:"memory_percentile"`
}
