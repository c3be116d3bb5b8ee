package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testIssuer() *TokenIssuer {
	return NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	ti := testIssuer()

	raw, exp, err := ti.IssueAccess(42, "ann@x.com", "CUSTOMER")
	require.NoError(t, err)
	require.True(t, exp.After(time.Now()))

	claims, err := ti.Verify(raw, AccessToken)
	require.NoError(t, err)
	require.Equal(t, "ann@x.com", claims.Email)
	require.Equal(t, "CUSTOMER", claims.Role)

	uid, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, uint64(42), uid)
}

func TestSecretIsolation(t *testing.T) {
	ti := testIssuer()

	access, _, err := ti.IssueAccess(1, "a@x.com", "ADMIN")
	require.NoError(t, err)
	refresh, _, err := ti.IssueRefresh(1, "a@x.com", "ADMIN")
	require.NoError(t, err)

	// An access token must not verify as a refresh token and vice versa,
	// even though the payload schema is identical.
	_, err = ti.Verify(access, RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = ti.Verify(refresh, AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	// Each verifies against its own secret.
	_, err = ti.Verify(access, AccessToken)
	require.NoError(t, err)
	_, err = ti.Verify(refresh, RefreshToken)
	require.NoError(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	ti := NewTokenIssuer("access-secret", "refresh-secret", -time.Minute, -time.Minute)

	raw, _, err := ti.IssueAccess(1, "a@x.com", "CUSTOMER")
	require.NoError(t, err)

	_, err = ti.Verify(raw, AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsTampered(t *testing.T) {
	ti := testIssuer()

	raw, _, err := ti.IssueAccess(1, "a@x.com", "CUSTOMER")
	require.NoError(t, err)

	// Grafting extra claims bytes into the payload invalidates the HMAC.
	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "xx." + parts[2]

	_, err = ti.Verify(tampered, AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = ti.Verify("not-a-token", AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueRefreshDistinctPerCall(t *testing.T) {
	ti := testIssuer()

	r1, _, err := ti.IssueRefresh(1, "a@x.com", "CUSTOMER")
	require.NoError(t, err)
	r2, _, err := ti.IssueRefresh(1, "a@x.com", "CUSTOMER")
	require.NoError(t, err)

	// Rotation relies on consecutive tokens being distinct strings even
	// when minted within the same second.
	require.NotEqual(t, r1, r2)
}

func TestPreHashTokenDeterministic(t *testing.T) {
	long := strings.Repeat("x", 500) // longer than bcrypt's 72-byte limit

	d1 := PreHashToken(long)
	d2 := PreHashToken(long)
	require.Equal(t, d1, d2)
	require.Len(t, d1, 64) // 256 bits, hex encoded

	require.NotEqual(t, d1, PreHashToken(long+"y"))
}
