package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeOutput(t *testing.T) {
	assert.Equal(t, "1 2\n3", NormalizeOutput("1 2  \r\n3\t\n\n\n"))
	assert.Equal(t, "", NormalizeOutput("\n\n"))
	assert.Equal(t, "  leading kept", NormalizeOutput("  leading kept"))
	assert.Equal(t, "a\n\nb", NormalizeOutput("a\n\nb\n"), "interior blank lines are kept")
}

func TestOutputsMatch(t *testing.T) {
	assert.True(t, OutputsMatch("[0,1]", "[0,1]\n"))
	assert.True(t, OutputsMatch("yes\r\n", "yes"))
	assert.False(t, OutputsMatch("[0,1]", "[0, 1]"))
	assert.False(t, OutputsMatch("Yes", "yes"))
	assert.False(t, OutputsMatch("a\nb", "a b"))
}
