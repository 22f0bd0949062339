package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	t.Parallel()

	assert.True(t, KeyNone.IsZero())
	assert.Equal(t, "none", KeyNone.String())
	assert.True(t, Key('7').IsDigit())
	assert.False(t, KeyAccept.IsDigit())
	assert.Equal(t, "#", KeyAccept.String())

	for _, r := range "0123456789*#" {
		k, ok := ParseKey(r)
		assert.True(t, ok)
		assert.Equal(t, string(r), k.String())
	}
	for _, r := range "aA \n+" {
		k, ok := ParseKey(r)
		assert.False(t, ok)
		assert.Equal(t, KeyNone, k)
	}
}
