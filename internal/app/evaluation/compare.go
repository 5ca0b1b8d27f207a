package evaluation

import "strings"

// NormalizeOutput canonicalises program output for comparison: CRLF becomes
// LF, trailing whitespace is dropped from each line and trailing blank lines
// are removed.
func NormalizeOutput(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r\v\f")
	}
	end := len(lines)
	for end > 0 && lines[end-1] == "" {
		end--
	}
	return strings.Join(lines[:end], "\n")
}

// OutputsMatch is the exact comparison applied after normalisation.
func OutputsMatch(expected, actual string) bool {
	return NormalizeOutput(expected) == NormalizeOutput(actual)
}
