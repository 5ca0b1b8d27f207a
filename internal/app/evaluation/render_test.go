package evaluation

import (
	"encoding/json"
	"testing"

	"codementor/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderStdin_InputStringWins(t *testing.T) {
	tc := &model.TestCase{
		InputString: "3\n1 2 3\n",
		InputData:   json.RawMessage(`{"nums":[9]}`),
	}
	got, err := RenderStdin(tc)
	require.NoError(t, err)
	assert.Equal(t, "3\n1 2 3\n", got)
}

func TestRenderStdin_ObjectFieldsInDocumentOrder(t *testing.T) {
	tc := &model.TestCase{
		InputData: json.RawMessage(`{"nums": [2, 7, 11, 15], "target": 9, "label": "a b"}`),
	}
	got, err := RenderStdin(tc)
	require.NoError(t, err)
	assert.Equal(t, "[2,7,11,15]\n9\n\"a b\"\n", got)

	reordered := &model.TestCase{
		InputData: json.RawMessage(`{"target": 9, "nums": [2,7]}`),
	}
	got, err = RenderStdin(reordered)
	require.NoError(t, err)
	assert.Equal(t, "9\n[2,7]\n", got)
}

func TestRenderStdin_NonObject(t *testing.T) {
	got, err := RenderStdin(&model.TestCase{InputData: json.RawMessage(` [1, 2] `)})
	require.NoError(t, err)
	assert.Equal(t, "[1,2]\n", got)
}

func TestRenderStdin_Empty(t *testing.T) {
	got, err := RenderStdin(&model.TestCase{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRenderStdin_Malformed(t *testing.T) {
	_, err := RenderStdin(&model.TestCase{TestCaseNumber: 4, InputData: json.RawMessage(`{"a":`)})
	assert.Error(t, err)
}

func TestRenderExpected(t *testing.T) {
	got, err := RenderExpected(&model.TestCase{ExpectedOutputString: "0 1"})
	require.NoError(t, err)
	assert.Equal(t, "0 1", got)

	got, err = RenderExpected(&model.TestCase{ExpectedOutput: json.RawMessage(`[0, 1]`)})
	require.NoError(t, err)
	assert.Equal(t, "[0,1]", got)

	got, err = RenderExpected(&model.TestCase{ExpectedOutput: json.RawMessage(`"hello world"`)})
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)

	got, err = RenderExpected(&model.TestCase{})
	require.NoError(t, err)
	assert.Empty(t, got)
}
