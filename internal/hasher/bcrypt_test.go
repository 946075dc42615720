package hasher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	digest, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", digest)

	assert.True(t, h.Verify("correct horse battery staple", digest))
	assert.False(t, h.Verify("wrong password", digest))
	assert.False(t, h.Verify("", digest))
}

func TestHash_Salted(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	first, err := h.Hash("same password")
	require.NoError(t, err)
	second, err := h.Hash("same password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify("same password", first))
	assert.True(t, h.Verify("same password", second))
}

func TestNewHasher_InvalidCostFallsBack(t *testing.T) {
	h := NewHasher(0)

	digest, err := h.Hash("password")
	require.NoError(t, err)
	assert.True(t, h.Verify("password", digest))
}

func TestVerify_NotAHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	assert.False(t, h.Verify("password", "definitely not a bcrypt digest"))
}
