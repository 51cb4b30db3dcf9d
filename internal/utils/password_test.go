package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := HashPassword(DefaultPassword, bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, DefaultPassword, hash)

	assert.True(t, VerifyPassword(hash, DefaultPassword))
	assert.False(t, VerifyPassword(hash, "654321"))
	assert.False(t, VerifyPassword("not-a-hash", DefaultPassword))
}

func TestHashRejectsEmpty(t *testing.T) {
	_, err := HashPassword("", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrEmptyPassword)
}
