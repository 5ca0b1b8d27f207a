package executor

import "codementor/internal/domain/model"

// Judge0 status ids.
const (
	judge0InQueue           = 1
	judge0Processing        = 2
	judge0Accepted          = 3
	judge0WrongAnswer       = 4
	judge0TimeLimitExceeded = 5
	judge0CompilationError  = 6
	judge0RuntimeSIGSEGV    = 7
	judge0RuntimeSIGXFSZ    = 8
	judge0RuntimeSIGFPE     = 9
	judge0RuntimeSIGABRT    = 10
	judge0RuntimeNZEC       = 11
	judge0RuntimeOther      = 12
	judge0InternalError     = 13
	judge0ExecFormatError   = 14
)

// MapJudge0Status maps every Judge0 status id onto exactly one verdict.
// Queued or processing after a synchronous wait means the sandbox gave up,
// which is not the submitter's fault. Unknown ids fall back to Internal Error.
func MapJudge0Status(id int) model.Verdict {
	switch id {
	case judge0Accepted:
		return model.VerdictAccepted
	case judge0WrongAnswer:
		return model.VerdictWrongAnswer
	case judge0TimeLimitExceeded:
		return model.VerdictTimeLimitExceeded
	case judge0CompilationError:
		return model.VerdictCompilationError
	case judge0RuntimeSIGSEGV, judge0RuntimeSIGXFSZ, judge0RuntimeSIGFPE,
		judge0RuntimeSIGABRT, judge0RuntimeNZEC, judge0RuntimeOther:
		return model.VerdictRuntimeError
	case judge0InQueue, judge0Processing, judge0InternalError, judge0ExecFormatError:
		return model.VerdictInternalError
	}
	return model.VerdictInternalError
}

// judge0Languages maps platform language names to Judge0 language ids.
var judge0Languages = map[string]int{
	"python3":    71,
	"javascript": 63,
	"typescript": 74,
	"java":       62,
	"cpp":        54,
	"c":          50,
	"csharp":     51,
	"go":         60,
	"rust":       73,
	"kotlin":     78,
	"swift":      83,
	"php":        68,
	"ruby":       72,
}

// deriveMemoryLimit reclassifies a runtime error as Memory Limit Exceeded when
// the reported peak memory reached the limit. Judge0 has no dedicated status.
func deriveMemoryLimit(v model.Verdict, memoryKb, limitKb int) model.Verdict {
	if v == model.VerdictRuntimeError && limitKb > 0 && memoryKb >= limitKb {
		return model.VerdictMemoryLimitExceeded
	}
	return v
}
