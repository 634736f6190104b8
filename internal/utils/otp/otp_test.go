package otp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	code, hash, err := Generate(DefaultLength)
	require.NoError(t, err)
	assert.Len(t, code, DefaultLength)
	assert.NotEqual(t, code, hash, "Hash must not be the plain code")

	assert.True(t, Verify(code, hash))
	assert.False(t, Verify("not-the-code", hash))
	assert.False(t, Verify("", hash))
	assert.False(t, Verify(code, ""))
}

func TestGenerateRejectsNonPositiveLength(t *testing.T) {
	_, _, err := Generate(0)
	assert.Error(t, err)
}

func TestGenerateKeepsLeadingZeros(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, _, err := Generate(4)
		require.NoError(t, err)
		assert.Len(t, code, 4)
	}
}
