package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	for _, password := range []string{"secret1", "correct horse battery staple", "пароль123", "      "} {
		digest, err := hasher.Hash(password)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(digest, "$2a$"))
		assert.NotEqual(t, password, digest)

		ok, err := hasher.Verify(password, digest)
		require.NoError(t, err)
		assert.True(t, ok, "password %q should verify", password)

		ok, err = hasher.Verify(password+"x", digest)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestBcryptHasher_RejectsInputPastTruncation(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)
	password := strings.Repeat("p", MaxPasswordBytes)

	digest, err := hasher.Hash(password)
	require.NoError(t, err)

	ok, err := hasher.Verify(password, digest)
	require.NoError(t, err)
	assert.True(t, ok)

	// bcrypt alone would accept this, ignoring everything past byte 72.
	ok, err = hasher.Verify(password+"DIFFERENT", digest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_Salted(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	first, err := hasher.Hash("samepassword")
	require.NoError(t, err)
	second, err := hasher.Hash("samepassword")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestBcryptHasher_MalformedDigest(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	ok, err := hasher.Verify("secret1", "not-a-bcrypt-digest")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrMalformedDigest)
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(1).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).cost)
	assert.Equal(t, 12, NewBcryptHasher(12).cost)
}
