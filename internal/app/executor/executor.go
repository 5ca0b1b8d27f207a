// Package executor is the seam to the remote code-execution sandbox.
package executor

import (
	"context"

	"codementor/internal/domain/model"
)

// Request is one program run against one input.
type Request struct {
	Language       string
	SourceCode     string
	Stdin          string
	ExpectedOutput string
	TimeLimitMs    int
	MemoryLimitKb  int
}

// Outcome is the structured sandbox answer for one Request.
//
// Verdict is the sandbox status mapped onto the platform vocabulary. A program
// that ran to completion reports Accepted or Wrong Answer depending on the
// sandbox's own comparison; callers re-judge those two against the expected
// answer with their own normalisation.
type Outcome struct {
	Verdict       model.Verdict
	RawStatus     string
	Stdout        string
	Stderr        string
	CompileOutput string
	Message       string
	RuntimeMs     int
	MemoryKb      int
}

// Executor runs a single program. Implementations return an error wrapping
// common.ErrSandboxTimeout or common.ErrSandboxTransport when no Outcome
// could be obtained.
type Executor interface {
	Execute(ctx context.Context, req Request) (*Outcome, error)
	SupportsLanguage(language string) bool
}
