package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/nkazemy/marketplace-api/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// ErrSessionChanged is returned by RotateRefreshHash when the stored hash no
// longer equals the one the caller verified against. It means another
// rotation (or a logout) won the race; the presented token is stale.
var ErrSessionChanged = errors.New("session changed concurrently")

const userColumns = "id,name,email,password_hash,role,refresh_token_hash,is_active,created_at,updated_at"

// Create inserts a user and returns its ID. The password arrives already
// hashed; this layer never sees plaintext credentials.
func (r *UserRepo) Create(ctx context.Context, name, email, passwordHash, role string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)",
		name, email, passwordHash, role)
	if err != nil {
		// MySQL 1062 = duplicate entry on the unique email index.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) scanOne(ctx context.Context, query string, arg interface{}) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.RefreshTokenHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// UpdateRefreshHash unconditionally overwrites the stored refresh-token hash
// for the user. Used on register and login, where any previous session is
// simply replaced.
func (r *UserRepo) UpdateRefreshHash(ctx context.Context, id uint64, hash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash=? WHERE id=?", hash, id)
	return err
}

// RotateRefreshHash swaps oldHash for newHash only if oldHash is still the
// stored value. The compare-and-swap serializes concurrent refresh calls per
// user: of two requests presenting the same token, exactly one write matches
// and the loser gets ErrSessionChanged.
func (r *UserRepo) RotateRefreshHash(ctx context.Context, id uint64, oldHash, newHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash=? WHERE id=? AND refresh_token_hash=?",
		newHash, id, oldHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionChanged
	}
	return nil
}

// ClearRefreshHash sets the stored hash to NULL (logout). Idempotent: a user
// with no session clears to the same state.
func (r *UserRepo) ClearRefreshHash(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash=NULL WHERE id=?", id)
	return err
}
