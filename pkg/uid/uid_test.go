package uid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsValid(t *testing.T) {
	id := New()
	assert.True(t, IsValid(id))
	assert.False(t, IsValid("not-a-uuid"))
}

func TestRandomHex(t *testing.T) {
	a, err := RandomHex(32)
	require.NoError(t, err)
	b, err := RandomHex(32)
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
