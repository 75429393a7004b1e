package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("Test@123456")
	require.NoError(t, err)
	assert.NotEqual(t, "Test@123456", hash)

	ok, err := h.Verify(hash, "Test@123456")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(hash, "test@123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_OutOfRangeCostFallsBack(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).cost)
}
