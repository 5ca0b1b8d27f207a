package evaluation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"codementor/internal/domain/model"
)

// RenderStdin returns the program input for a test case. An explicit input
// string wins; otherwise each top-level field of the structured input is
// written as one compact JSON value per line, in document order.
func RenderStdin(tc *model.TestCase) (string, error) {
	if tc.InputString != "" {
		return tc.InputString, nil
	}
	if len(bytes.TrimSpace(tc.InputData)) == 0 {
		return "", nil
	}
	values, err := orderedValues(tc.InputData)
	if err != nil {
		return "", fmt.Errorf("test case %d input: %w", tc.TestCaseNumber, err)
	}
	var b strings.Builder
	for _, v := range values {
		b.Write(v)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// RenderExpected returns the expected program output for a test case.
func RenderExpected(tc *model.TestCase) (string, error) {
	if tc.ExpectedOutputString != "" {
		return tc.ExpectedOutputString, nil
	}
	raw := bytes.TrimSpace(tc.ExpectedOutput)
	if len(raw) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", fmt.Errorf("test case %d expected output: %w", tc.TestCaseNumber, err)
	}
	// A bare JSON string is compared by its contents.
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, nil
		}
	}
	return buf.String(), nil
}

// orderedValues splits a JSON object into its member values without losing
// key order. Any other JSON value is returned as a single element.
func orderedValues(raw json.RawMessage) ([][]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, err
		}
		return [][]byte{buf.Bytes()}, nil
	}

	var values [][]byte
	for dec.More() {
		if _, err := dec.Token(); err != nil { // key
			return nil, err
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return nil, err
		}
		values = append(values, buf.Bytes())
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return values, nil
}
