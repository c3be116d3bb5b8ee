package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkazemy/marketplace-api/internal/model"
	"github.com/nkazemy/marketplace-api/internal/repository"
	"github.com/nkazemy/marketplace-api/internal/utils"
)

// memStore is an in-memory IdentityStore honoring the same error contract as
// repository.UserRepo: sql.ErrNoRows for absent users, ErrEmailExists for
// duplicates and ErrSessionChanged for a lost compare-and-swap.
type memStore struct {
	mu      sync.Mutex
	seq     uint64
	users   map[uint64]*model.User
	byEmail map[string]uint64

	failPersist bool // force refresh-hash writes to fail
}

func newMemStore() *memStore {
	return &memStore{users: map[uint64]*model.User{}, byEmail: map[string]uint64{}}
}

func (m *memStore) Create(_ context.Context, name, email, passwordHash, role string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(email)
	if _, ok := m.byEmail[email]; ok {
		return 0, repository.ErrEmailExists
	}
	m.seq++
	m.users[m.seq] = &model.User{
		ID: m.seq, Name: name, Email: email,
		PasswordHash: passwordHash, Role: role, IsActive: true,
	}
	m.byEmail[email] = m.seq
	return m.seq, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return *m.users[id], nil
}

func (m *memStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return *u, nil
}

func (m *memStore) UpdateRefreshHash(_ context.Context, id uint64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPersist {
		return errors.New("store unreachable")
	}
	if u, ok := m.users[id]; ok {
		u.RefreshTokenHash = sql.NullString{String: hash, Valid: true}
	}
	return nil
}

func (m *memStore) RotateRefreshHash(_ context.Context, id uint64, oldHash, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPersist {
		return errors.New("store unreachable")
	}
	u, ok := m.users[id]
	if !ok || !u.RefreshTokenHash.Valid || u.RefreshTokenHash.String != oldHash {
		return repository.ErrSessionChanged
	}
	u.RefreshTokenHash = sql.NullString{String: newHash, Valid: true}
	return nil
}

func (m *memStore) ClearRefreshHash(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.RefreshTokenHash = sql.NullString{}
	}
	return nil
}

func newTestService(store IdentityStore) *AuthService {
	issuer := utils.NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	return NewAuthService(store, issuer, bcrypt.MinCost)
}

func TestRegisterIssuesSingleUseRefreshToken(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store)

	u, pair, err := svc.Register(ctx, "Ann", "ann@x.com", "secret1", "")
	require.NoError(t, err)
	require.Equal(t, model.RoleCustomer, u.Role)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	// First rotation succeeds and hands back a different refresh token.
	_, next, err := svc.RefreshTokens(ctx, u.ID, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// Replaying the consumed token is denied: the stored hash was rotated.
	_, _, err = svc.RefreshTokens(ctx, u.ID, pair.RefreshToken)
	require.ErrorIs(t, err, ErrAccessDenied)

	// The new token still works exactly once.
	_, _, err = svc.RefreshTokens(ctx, u.ID, next.RefreshToken)
	require.NoError(t, err)
	_, _, err = svc.RefreshTokens(ctx, u.ID, next.RefreshToken)
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store)

	_, _, err := svc.Register(ctx, "Ann", "ann@x.com", "secret1", "")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "Ann Again", "ann@x.com", "secret2", "")
	require.ErrorIs(t, err, ErrEmailTaken)
	require.Len(t, store.users, 1)
}

func TestRegisterRoleHandling(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemStore())

	u, _, err := svc.Register(ctx, "V", "v@x.com", "pw", "vendor")
	require.NoError(t, err)
	require.Equal(t, model.RoleVendor, u.Role)

	// ADMIN cannot be self-assigned; it silently falls back to CUSTOMER.
	u, _, err = svc.Register(ctx, "A", "a@x.com", "pw", "ADMIN")
	require.NoError(t, err)
	require.Equal(t, model.RoleCustomer, u.Role)
}

func TestLoginEnumerationResistance(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store)

	_, _, err := svc.Register(ctx, "Ann", "ann@x.com", "secret1", "")
	require.NoError(t, err)

	// Wrong password and unknown email fail with the identical error value.
	_, _, errWrongPw := svc.Login(ctx, "ann@x.com", "nope")
	_, _, errNoUser := svc.Login(ctx, "ghost@x.com", "nope")
	require.ErrorIs(t, errWrongPw, ErrInvalidCredentials)
	require.ErrorIs(t, errNoUser, ErrInvalidCredentials)
	require.Equal(t, errWrongPw, errNoUser)
}

func TestLoginInactiveAccount(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store)

	u, _, err := svc.Register(ctx, "Ann", "ann@x.com", "secret1", "")
	require.NoError(t, err)
	store.users[u.ID].IsActive = false

	_, _, err = svc.Login(ctx, "ann@x.com", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginReplacesSession(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store)

	u, first, err := svc.Register(ctx, "Ann", "ann@x.com", "secret1", "")
	require.NoError(t, err)

	_, second, err := svc.Login(ctx, "ann@x.com", "secret1")
	require.NoError(t, err)

	// Login overwrote the stored hash: the registration-time refresh token
	// is revoked, the login-time one is live.
	_, _, err = svc.RefreshTokens(ctx, u.ID, first.RefreshToken)
	require.ErrorIs(t, err, ErrAccessDenied)
	_, _, err = svc.RefreshTokens(ctx, u.ID, second.RefreshToken)
	require.NoError(t, err)
}

func TestLogoutRevokesSession(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store)

	u, pair, err := svc.Register(ctx, "Ann", "ann@x.com", "secret1", "")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, u.ID))
	_, _, err = svc.RefreshTokens(ctx, u.ID, pair.RefreshToken)
	require.ErrorIs(t, err, ErrAccessDenied)

	// Idempotent: logging out again with no session still succeeds.
	require.NoError(t, svc.Logout(ctx, u.ID))
}

func TestRefreshUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemStore())

	_, _, err := svc.RefreshTokens(ctx, 999, "whatever")
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestRefreshForgedToken(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store)

	u, _, err := svc.Register(ctx, "Ann", "ann@x.com", "secret1", "")
	require.NoError(t, err)

	// A syntactically fine but never-issued token must not match the hash.
	forged := utils.NewTokenIssuer("other", "other-ref", time.Minute, time.Hour)
	raw, _, err := forged.IssueRefresh(u.ID, u.Email, u.Role)
	require.NoError(t, err)

	_, _, err = svc.RefreshTokens(ctx, u.ID, raw)
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestPersistFailureReturnsNoTokensAndKeepsState(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store)

	u, pair, err := svc.Register(ctx, "Ann", "ann@x.com", "secret1", "")
	require.NoError(t, err)

	store.failPersist = true
	_, broken, err := svc.RefreshTokens(ctx, u.ID, pair.RefreshToken)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrAccessDenied) // infrastructure, not denial
	require.Empty(t, broken.AccessToken)
	require.Empty(t, broken.RefreshToken)

	// The session state is unchanged: the original token still rotates once
	// the store recovers.
	store.failPersist = false
	_, _, err = svc.RefreshTokens(ctx, u.ID, pair.RefreshToken)
	require.NoError(t, err)
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store)

	u, pair, err := svc.Register(ctx, "Ann", "ann@x.com", "secret1", "")
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.RefreshTokens(ctx, u.ID, pair.RefreshToken)
		}(i)
	}
	wg.Wait()

	// The compare-and-swap admits exactly one rotation; every other call
	// sees either a changed hash or a mismatching token.
	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrAccessDenied)
		}
	}
	require.Equal(t, 1, wins)
}
