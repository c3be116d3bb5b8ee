package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"   // secure random generation for token IDs
	"crypto/sha256" // SHA-256 pre-hash of refresh tokens before bcrypt storage
	"encoding/hex"  // hex encoding of digests and random bytes
	"errors"        // sentinel error for verification failures
	"strconv"       // formatting the numeric user ID into the sub claim
	"time"          // expiry calculations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// TokenKind selects which signing secret and lifetime a token is issued and
// verified against. Access and refresh tokens share the same claim schema, so
// a verifier must always pick the secret by the kind it expects and never by
// the payload shape.
type TokenKind int

const (
	AccessToken  TokenKind = iota // short-lived, proves identity per request
	RefreshToken                  // long-lived, exchanged for a new pair
)

// ErrInvalidToken is returned by Verify for every verification failure: bad
// signature, malformed structure, wrong signing method or expiry. Callers
// surface all of them as a single unauthorized response.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload carried by both token kinds: {sub, email, role, iat, exp}.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the sub claim back into the numeric user identifier.
func (c *Claims) UserID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// TokenIssuer builds and signs the HS256 access/refresh token pair for a
// user. The two secrets are independent so that possession of one token
// kind never allows forging the other. Both secrets and both TTLs are
// injected at construction; nothing here reads the environment.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenIssuer wires the two signing secrets and expiry policies.
func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssueAccess signs a short-lived access token for the user and returns the
// serialized JWT together with its expiry time.
func (ti *TokenIssuer) IssueAccess(userID uint64, email, role string) (string, time.Time, error) {
	return ti.issue(ti.accessSecret, ti.accessTTL, userID, email, role)
}

// IssueRefresh signs a long-lived refresh token for the user. Only a hash of
// the returned string is ever persisted.
func (ti *TokenIssuer) IssueRefresh(userID uint64, email, role string) (string, time.Time, error) {
	return ti.issue(ti.refreshSecret, ti.refreshTTL, userID, email, role)
}

func (ti *TokenIssuer) issue(secret []byte, ttl time.Duration, userID uint64, email, role string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	// The random jti keeps two tokens minted for the same user within the
	// same second from serializing identically; the rotation check depends
	// on consecutive refresh tokens being distinct strings.
	jti, err := randomHex(16)
	if err != nil {
		return "", time.Time{}, err
	}
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses raw against the secret for the given kind and returns the
// decoded claims. Every failure mode collapses into ErrInvalidToken; the
// underlying cause is wrapped for logging but callers must not branch on it.
func (ti *TokenIssuer) Verify(raw string, kind TokenKind) (*Claims, error) {
	secret := ti.accessSecret
	if kind == RefreshToken {
		secret = ti.refreshSecret
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but HMAC before touching the key.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("token not valid")
		}
		return nil, errors.Join(ErrInvalidToken, err)
	}
	return claims, nil
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// PreHashToken returns the SHA-256 hex digest of a raw refresh token. The
// digest is deterministic so it survives an independent bcrypt round trip,
// and it normalizes arbitrarily long signed tokens to 64 characters, inside
// bcrypt's 72-byte input limit.
func PreHashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
