package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.True(t, VerifyPassword("s3cret", hash))
	assert.False(t, VerifyPassword("wrong", hash))
	assert.False(t, VerifyPassword("s3cret", "not-a-hash"))
}

func TestGenerateRandomBytes(t *testing.T) {
	a, err := GenerateRandomBytes(32)
	require.NoError(t, err)
	b, err := GenerateRandomBytes(32)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestGenerateRandomString(t *testing.T) {
	s, err := GenerateRandomString(24)
	require.NoError(t, err)
	assert.Len(t, s, 32)
}
