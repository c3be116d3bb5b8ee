package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("secret1", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEqual(t, "secret1", hash)

	require.True(t, VerifyPassword(hash, "secret1"))
	require.False(t, VerifyPassword(hash, "secret2"))
}

func TestHashPasswordSaltedPerCall(t *testing.T) {
	h1, err := HashPassword("secret1", bcrypt.MinCost)
	require.NoError(t, err)
	h2, err := HashPassword("secret1", bcrypt.MinCost)
	require.NoError(t, err)

	// Different salts, different digests; both still verify.
	require.NotEqual(t, h1, h2)
	require.True(t, VerifyPassword(h1, "secret1"))
	require.True(t, VerifyPassword(h2, "secret1"))
}

func TestVerifyPasswordMalformedDigest(t *testing.T) {
	// Truncated or garbage storage must read as a mismatch, not a panic.
	require.False(t, VerifyPassword("", "secret1"))
	require.False(t, VerifyPassword("not-a-bcrypt-digest", "secret1"))
	require.False(t, VerifyPassword("$2a$10$truncated", "secret1"))
}
