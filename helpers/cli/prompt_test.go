package cli

import (
	"strings"
	"testing"

	"github.com/c-bata/go-prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLines(t *testing.T) {
	t.Parallel()

	var lines []string
	err := ReadLines(strings.NewReader("12\n  34# \n\n*"), func(line string) { lines = append(lines, line) })
	require.NoError(t, err)
	assert.Equal(t, []string{"12", "34#", "", "*"}, lines)
	assert.Nil(t, NoComplete(prompt.Document{}))
}
