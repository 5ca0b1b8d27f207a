package model

import (
	"database/sql/driver"
	"fmt"
)

// Verdict is the outcome classification of one test or a whole submission.
// The set is closed; Precedence defines a total order over it.
type Verdict uint8

const (
	VerdictAccepted Verdict = iota + 1
	VerdictWrongAnswer
	VerdictMemoryLimitExceeded
	VerdictTimeLimitExceeded
	VerdictRuntimeError
	VerdictCompilationError
	VerdictInternalError
)

var verdictNames = map[Verdict]string{
	VerdictAccepted:            "Accepted",
	VerdictWrongAnswer:         "Wrong Answer",
	VerdictMemoryLimitExceeded: "Memory Limit Exceeded",
	VerdictTimeLimitExceeded:   "Time Limit Exceeded",
	VerdictRuntimeError:        "Runtime Error",
	VerdictCompilationError:    "Compilation Error",
	VerdictInternalError:       "Internal Error",
}

// AllVerdicts lists every verdict in ascending precedence.
func AllVerdicts() []Verdict {
	return []Verdict{
		VerdictAccepted,
		VerdictWrongAnswer,
		VerdictMemoryLimitExceeded,
		VerdictTimeLimitExceeded,
		VerdictRuntimeError,
		VerdictCompilationError,
		VerdictInternalError,
	}
}

// Precedence ranks verdicts; the higher rank wins when folding results.
// Internal Error outranks everything because it says nothing about the code.
func (v Verdict) Precedence() int {
	switch v {
	case VerdictAccepted:
		return 0
	case VerdictWrongAnswer:
		return 1
	case VerdictMemoryLimitExceeded:
		return 2
	case VerdictTimeLimitExceeded:
		return 3
	case VerdictRuntimeError:
		return 4
	case VerdictCompilationError:
		return 5
	case VerdictInternalError:
		return 6
	}
	// Unknown values are treated like an internal failure.
	return 6
}

// Max returns the higher-precedence verdict; a wins ties.
func (v Verdict) Max(other Verdict) Verdict {
	if other.Precedence() > v.Precedence() {
		return other
	}
	return v
}

func (v Verdict) IsValid() bool {
	_, ok := verdictNames[v]
	return ok
}

func (v Verdict) String() string {
	if name, ok := verdictNames[v]; ok {
		return name
	}
	return fmt.Sprintf("Verdict(%d)", uint8(v))
}

// ParseVerdict accepts the display names produced by String.
func ParseVerdict(s string) (Verdict, error) {
	for v, name := range verdictNames {
		if name == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown verdict %q", s)
}

func (v Verdict) MarshalText() ([]byte, error) {
	if !v.IsValid() {
		return nil, fmt.Errorf("cannot marshal invalid verdict %d", uint8(v))
	}
	return []byte(v.String()), nil
}

func (v *Verdict) UnmarshalText(text []byte) error {
	parsed, err := ParseVerdict(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Verdict) Value() (driver.Value, error) {
	if !v.IsValid() {
		return nil, fmt.Errorf("cannot store invalid verdict %d", uint8(v))
	}
	return v.String(), nil
}

func (v *Verdict) Scan(src any) error {
	switch s := src.(type) {
	case string:
		return v.UnmarshalText([]byte(s))
	case []byte:
		return v.UnmarshalText(s)
	}
	return fmt.Errorf("cannot scan %T into Verdict", src)
}
