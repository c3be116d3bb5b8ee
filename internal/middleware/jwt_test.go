package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/nkazemy/marketplace-api/internal/utils"
)

func testIssuer() *utils.TokenIssuer {
	return utils.NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
}

// invoke runs a request with the given Authorization header through mw and a
// handler that records the context it saw.
func invoke(t *testing.T, mw echo.MiddlewareFunc, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen echo.Context
	h := mw(func(c echo.Context) error {
		seen = c
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, seen
}

func TestAuthGuardMissingToken(t *testing.T) {
	rec, seen := invoke(t, AuthGuard(testIssuer()), "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Nil(t, seen)

	rec, seen = invoke(t, AuthGuard(testIssuer()), "Basic dXNlcjpwdw==")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Nil(t, seen)
}

func TestAuthGuardInvalidToken(t *testing.T) {
	rec, seen := invoke(t, AuthGuard(testIssuer()), "Bearer garbage")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Nil(t, seen)
}

func TestAuthGuardAttachesClaims(t *testing.T) {
	issuer := testIssuer()
	raw, _, err := issuer.IssueAccess(7, "ann@x.com", "VENDOR")
	require.NoError(t, err)

	rec, seen := invoke(t, AuthGuard(issuer), "Bearer "+raw)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	require.Equal(t, uint64(7), seen.Get(CtxUserID))
	require.Equal(t, "ann@x.com", seen.Get(CtxEmail))
	require.Equal(t, "VENDOR", seen.Get(CtxRole))
	require.Nil(t, seen.Get(CtxRefreshToken))
}

func TestAuthGuardRejectsRefreshSignedToken(t *testing.T) {
	issuer := testIssuer()
	refresh, _, err := issuer.IssueRefresh(7, "ann@x.com", "VENDOR")
	require.NoError(t, err)

	// Identical payload schema, wrong secret for this guard.
	rec, seen := invoke(t, AuthGuard(issuer), "Bearer "+refresh)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Nil(t, seen)
}

func TestAuthGuardRejectsExpired(t *testing.T) {
	expired := utils.NewTokenIssuer("access-secret", "refresh-secret", -time.Minute, -time.Minute)
	raw, _, err := expired.IssueAccess(7, "ann@x.com", "VENDOR")
	require.NoError(t, err)

	rec, seen := invoke(t, AuthGuard(testIssuer()), "Bearer "+raw)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Nil(t, seen)
}

func TestRefreshGuardForwardsRawToken(t *testing.T) {
	issuer := testIssuer()
	refresh, _, err := issuer.IssueRefresh(9, "bob@x.com", "CUSTOMER")
	require.NoError(t, err)

	rec, seen := invoke(t, RefreshGuard(issuer), "Bearer "+refresh)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	require.Equal(t, uint64(9), seen.Get(CtxUserID))
	// The handler needs the exact presented bytes for the rotation check.
	require.Equal(t, refresh, seen.Get(CtxRefreshToken))
}

func TestRefreshGuardRejectsAccessSignedToken(t *testing.T) {
	issuer := testIssuer()
	access, _, err := issuer.IssueAccess(9, "bob@x.com", "CUSTOMER")
	require.NoError(t, err)

	rec, seen := invoke(t, RefreshGuard(issuer), "Bearer "+access)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Nil(t, seen)
}
