// Package service contains the credential issuance and session lifecycle
// orchestration. AuthService is the single source of truth for "is this
// refresh token still valid for this user": at any instant at most one
// refresh token is valid per user, namely the one whose pre-hash-then-bcrypt
// digest equals the hash stored on the user row.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nkazemy/marketplace-api/internal/model"
	"github.com/nkazemy/marketplace-api/internal/repository"
	"github.com/nkazemy/marketplace-api/internal/utils"
)

// Logical denial sentinels. These map 1:1 to client-facing rejections and
// are never used for infrastructure failures; a store or hashing error is
// wrapped and propagated as-is so monitoring can tell outages from misuse.
var (
	// ErrEmailTaken rejects a registration for an email that already exists.
	ErrEmailTaken = errors.New("email already in use")
	// ErrInvalidCredentials rejects a login. Unknown email and wrong
	// password produce this same value so callers cannot enumerate users.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccessDenied rejects a refresh rotation: no session, a token that
	// does not match the stored hash, or a rotation lost to a concurrent one.
	ErrAccessDenied = errors.New("access denied")
)

// IdentityStore is the slice of the user store the auth flow needs. The
// concrete implementation is repository.UserRepo; tests substitute an
// in-memory fake. Lookups signal absence with sql.ErrNoRows, Create signals
// a duplicate email with repository.ErrEmailExists, and RotateRefreshHash
// signals a lost compare-and-swap with repository.ErrSessionChanged.
type IdentityStore interface {
	Create(ctx context.Context, name, email, passwordHash, role string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdateRefreshHash(ctx context.Context, id uint64, hash string) error
	RotateRefreshHash(ctx context.Context, id uint64, oldHash, newHash string) error
	ClearRefreshHash(ctx context.Context, id uint64) error
}

// TokenPair is what register, login and refresh hand back to the client.
// The refresh token appears here exactly once; only its hash is stored.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

// AuthService orchestrates register / login / logout / refresh over an
// identity store and a token issuer.
type AuthService struct {
	users      IdentityStore
	issuer     *utils.TokenIssuer
	bcryptCost int
}

func NewAuthService(users IdentityStore, issuer *utils.TokenIssuer, bcryptCost int) *AuthService {
	return &AuthService{users: users, issuer: issuer, bcryptCost: bcryptCost}
}

// Register creates a user and opens a session for it. The requested role may
// be CUSTOMER or VENDOR; anything else (including ADMIN) falls back to
// CUSTOMER. A duplicate email fails with ErrEmailTaken and leaves no record
// behind.
func (s *AuthService) Register(ctx context.Context, name, email, password, role string) (model.User, TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	role = strings.ToUpper(strings.TrimSpace(role))
	if !model.ValidRegistrationRole(role) {
		role = model.RoleCustomer
	}

	// Pre-check for a friendlier conflict path; the unique index on email
	// still backstops the race below.
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return model.User{}, TokenPair{}, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return model.User{}, TokenPair{}, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return model.User{}, TokenPair{}, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.users.Create(ctx, name, email, hash, role)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, TokenPair{}, ErrEmailTaken
		}
		return model.User{}, TokenPair{}, fmt.Errorf("create user: %w", err)
	}

	u := model.User{ID: id, Name: name, Email: email, Role: role, IsActive: true}
	pair, err := s.issueTokenPair(ctx, u, func(ctx context.Context, hash string) error {
		return s.users.UpdateRefreshHash(ctx, id, hash)
	})
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	return u, pair, nil
}

// Login verifies credentials and opens a fresh session, replacing whatever
// session existed before. Unknown email, wrong password and a deactivated
// account all fail with the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (model.User, TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, TokenPair{}, ErrInvalidCredentials
		}
		return model.User{}, TokenPair{}, fmt.Errorf("lookup email: %w", err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.issueTokenPair(ctx, u, func(ctx context.Context, hash string) error {
		return s.users.UpdateRefreshHash(ctx, u.ID, hash)
	})
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	return u, pair, nil
}

// Logout clears the stored refresh hash, revoking the session. It is
// idempotent: logging out with no session is a no-op success. The caller is
// assumed to be authenticated already; no token is verified here.
func (s *AuthService) Logout(ctx context.Context, userID uint64) error {
	if err := s.users.ClearRefreshHash(ctx, userID); err != nil {
		return fmt.Errorf("clear refresh hash: %w", err)
	}
	return nil
}

// RefreshTokens exchanges a still-valid refresh token for a brand-new pair.
// The presented token must match the stored hash bit-for-bit after the
// SHA-256 normalization; anything else is ErrAccessDenied. On success the
// stored hash is swapped via compare-and-swap, which makes every refresh
// token single-use: a replay after rotation, or the loser of two concurrent
// refreshes, finds the hash changed and is denied.
func (s *AuthService) RefreshTokens(ctx context.Context, userID uint64, presented string) (model.User, TokenPair, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, TokenPair{}, ErrAccessDenied
		}
		return model.User{}, TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}
	if !u.RefreshTokenHash.Valid {
		// NoSession state: nothing to rotate.
		return model.User{}, TokenPair{}, ErrAccessDenied
	}

	digest := utils.PreHashToken(presented)
	if !utils.VerifyPassword(u.RefreshTokenHash.String, digest) {
		return model.User{}, TokenPair{}, ErrAccessDenied
	}

	oldHash := u.RefreshTokenHash.String
	pair, err := s.issueTokenPair(ctx, u, func(ctx context.Context, newHash string) error {
		return s.users.RotateRefreshHash(ctx, u.ID, oldHash, newHash)
	})
	if err != nil {
		if errors.Is(err, repository.ErrSessionChanged) {
			return model.User{}, TokenPair{}, ErrAccessDenied
		}
		return model.User{}, TokenPair{}, err
	}
	return u, pair, nil
}

// issueTokenPair signs both tokens, hashes the refresh token (SHA-256 then
// bcrypt) and persists the hash through the supplied callback. Persistence
// happens before the pair is returned: if the write fails, the caller gets
// no tokens and, for the CAS path, the session state is unchanged.
func (s *AuthService) issueTokenPair(ctx context.Context, u model.User, persist func(ctx context.Context, hash string) error) (TokenPair, error) {
	access, accessExp, err := s.issuer.IssueAccess(u.ID, u.Email, u.Role)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshExp, err := s.issuer.IssueRefresh(u.ID, u.Email, u.Role)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	hash, err := utils.HashPassword(utils.PreHashToken(refresh), s.bcryptCost)
	if err != nil {
		return TokenPair{}, fmt.Errorf("hash refresh token: %w", err)
	}
	if err := persist(ctx, hash); err != nil {
		if errors.Is(err, repository.ErrSessionChanged) {
			return TokenPair{}, err
		}
		return TokenPair{}, fmt.Errorf("save refresh hash: %w", err)
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}
