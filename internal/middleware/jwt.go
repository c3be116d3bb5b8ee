package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nkazemy/marketplace-api/internal/utils"
)

// Context keys populated by the guards for downstream handlers.
const (
	CtxUserID       = "user_id"       // uint64 subject of the verified token
	CtxEmail        = "email"         // email claim
	CtxRole         = "role"          // role claim
	CtxRefreshToken = "refresh_token" // raw refresh token (RefreshGuard only)
)

// bearerToken pulls the token out of "Authorization: Bearer <token>". The
// empty string means the header is missing or malformed.
func bearerToken(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}

// AuthGuard returns an Echo middleware that validates a Bearer access token
// against the issuer's access secret and injects the decoded identity into
// the request context under CtxUserID/CtxEmail/CtxRole. Every failure mode —
// missing header, bad signature, wrong secret, expiry, malformed claims —
// yields the same 401 body; the guard fails closed.
func AuthGuard(issuer *utils.TokenIssuer) echo.MiddlewareFunc {
	return guard(issuer, utils.AccessToken)
}

// RefreshGuard is AuthGuard's counterpart for the refresh secret. Beyond the
// identity claims it stores the raw token string under CtxRefreshToken,
// because the refresh handler must hand the exact presented bytes to the
// session rotation check.
func RefreshGuard(issuer *utils.TokenIssuer) echo.MiddlewareFunc {
	return guard(issuer, utils.RefreshToken)
}

func guard(issuer *utils.TokenIssuer, kind utils.TokenKind) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := issuer.Verify(raw, kind)
			if err != nil {
				// The cause (signature vs expiry vs structure) stays
				// server-side; clients always see the same shape.
				c.Logger().Debugf("token rejected: %v", err)
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			uid, err := claims.UserID()
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(CtxUserID, uid)
			c.Set(CtxEmail, claims.Email)
			c.Set(CtxRole, claims.Role)
			if kind == utils.RefreshToken {
				c.Set(CtxRefreshToken, raw)
			}
			return next(c)
		}
	}
}
