package handler_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkazemy/marketplace-api/internal/handler"
	"github.com/nkazemy/marketplace-api/internal/model"
	"github.com/nkazemy/marketplace-api/internal/repository"
	"github.com/nkazemy/marketplace-api/internal/router"
	"github.com/nkazemy/marketplace-api/internal/service"
	"github.com/nkazemy/marketplace-api/internal/utils"
)

// fakeUsers is an in-memory identity store with the repository error
// contract, enough to drive the auth endpoints end to end without MySQL.
type fakeUsers struct {
	mu      sync.Mutex
	seq     uint64
	users   map[uint64]*model.User
	byEmail map[string]uint64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[uint64]*model.User{}, byEmail: map[string]uint64{}}
}

func (f *fakeUsers) Create(_ context.Context, name, email, passwordHash, role string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[email]; ok {
		return 0, repository.ErrEmailExists
	}
	f.seq++
	f.users[f.seq] = &model.User{ID: f.seq, Name: name, Email: email, PasswordHash: passwordHash, Role: role, IsActive: true}
	f.byEmail[email] = f.seq
	return f.seq, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byEmail[email]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return *f.users[id], nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return *u, nil
}

func (f *fakeUsers) UpdateRefreshHash(_ context.Context, id uint64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.RefreshTokenHash = sql.NullString{String: hash, Valid: true}
	}
	return nil
}

func (f *fakeUsers) RotateRefreshHash(_ context.Context, id uint64, oldHash, newHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || !u.RefreshTokenHash.Valid || u.RefreshTokenHash.String != oldHash {
		return repository.ErrSessionChanged
	}
	u.RefreshTokenHash = sql.NullString{String: newHash, Valid: true}
	return nil
}

func (f *fakeUsers) ClearRefreshHash(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.RefreshTokenHash = sql.NullString{}
	}
	return nil
}

func newAuthServer(t *testing.T) *echo.Echo {
	t.Helper()
	issuer := utils.NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	svc := service.NewAuthService(newFakeUsers(), issuer, bcrypt.MinCost)

	e := echo.New()
	router.RegisterAuth(e, handler.NewAuthHandler(svc, nil), issuer, nil)
	return e
}

func do(e *echo.Echo, method, path, body, bearer string) *httptest.ResponseRecorder {
	var rd *strings.Reader
	if body != "" {
		rd = strings.NewReader(body)
	} else {
		rd = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type tokenPairBody struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func decodePair(t *testing.T, rec *httptest.ResponseRecorder) tokenPairBody {
	t.Helper()
	var body tokenPairBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.AccessToken)
	require.NotEmpty(t, body.RefreshToken)
	return body
}

func TestRegisterLoginFlow(t *testing.T) {
	e := newAuthServer(t)

	rec := do(e, http.MethodPost, "/v1/auth/register", `{"name":"Ann","email":"ann@x.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	decodePair(t, rec)

	// Duplicate email conflicts and leaks nothing else.
	rec = do(e, http.MethodPost, "/v1/auth/register", `{"name":"Ann2","email":"ann@x.com","password":"other"}`, "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodPost, "/v1/auth/login", `{"email":"ann@x.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodePair(t, rec)

	// Wrong password and unknown email produce identical responses.
	wrongPw := do(e, http.MethodPost, "/v1/auth/login", `{"email":"ann@x.com","password":"bad"}`, "")
	noUser := do(e, http.MethodPost, "/v1/auth/login", `{"email":"ghost@x.com","password":"bad"}`, "")
	require.Equal(t, http.StatusUnauthorized, wrongPw.Code)
	require.Equal(t, http.StatusUnauthorized, noUser.Code)
	require.Equal(t, wrongPw.Body.String(), noUser.Body.String())
}

func TestRefreshRotationOverHTTP(t *testing.T) {
	e := newAuthServer(t)

	reg := do(e, http.MethodPost, "/v1/auth/register", `{"name":"Ann","email":"ann@x.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusCreated, reg.Code)
	first := decodePair(t, reg)

	// Rotation succeeds once and returns a different refresh token.
	rec := do(e, http.MethodPost, "/v1/auth/refresh", "", first.RefreshToken)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodePair(t, rec)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// Replay of the consumed token is rejected.
	rec = do(e, http.MethodPost, "/v1/auth/refresh", "", first.RefreshToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// An access token is signed with the wrong secret for this endpoint.
	rec = do(e, http.MethodPost, "/v1/auth/refresh", "", second.AccessToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutRevokesOverHTTP(t *testing.T) {
	e := newAuthServer(t)

	reg := do(e, http.MethodPost, "/v1/auth/register", `{"name":"Ann","email":"ann@x.com","password":"secret1"}`, "")
	pair := decodePair(t, reg)

	// Logout needs a valid access token.
	rec := do(e, http.MethodPost, "/v1/auth/logout", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodPost, "/v1/auth/logout", "", pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Logged out")

	// The refresh token is dead after logout.
	rec = do(e, http.MethodPost, "/v1/auth/refresh", "", pair.RefreshToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeEndpoint(t *testing.T) {
	e := newAuthServer(t)

	reg := do(e, http.MethodPost, "/v1/auth/register", `{"name":"Ann","email":"ann@x.com","password":"secret1","role":"VENDOR"}`, "")
	pair := decodePair(t, reg)

	rec := do(e, http.MethodGet, "/v1/auth/me", "", pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ann@x.com")
	require.Contains(t, rec.Body.String(), "VENDOR")
}
