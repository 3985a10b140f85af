// Package auth authenticates API keys and carries the resulting principal
// through request contexts.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/go-faster/errors"
)

var (
	// ErrUnauthorized is returned for missing or unknown API keys.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the principal lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrKeyNotFound is returned by repositories when no key matches.
	ErrKeyNotFound = errors.New("api key not found")
)

// Role is the kind of account an API key acts for.
type Role string

const (
	// RoleCustomer keys act for a single customer account.
	RoleCustomer Role = "customer"
	// RoleStaff keys may fulfil orders and read reports.
	RoleStaff Role = "staff"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleStaff
}

// APIKey is a stored API key. Only the HMAC hash of the key is kept.
type APIKey struct {
	ID      string
	KeyHash string
	Name    string
	Role    Role
	// SubjectID is the customer ID for customer keys and the staff ID for
	// staff keys.
	SubjectID string
}

// Principal is the authenticated caller.
type Principal struct {
	ID        string
	Name      string
	Role      Role
	SubjectID string
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKey, error)
}

// Authenticator resolves raw API keys to principals.
type Authenticator struct {
	keys   Repository
	pepper []byte
}

// NewAuthenticator creates an Authenticator hashing keys with pepper.
func NewAuthenticator(keys Repository, pepper []byte) *Authenticator {
	return &Authenticator{keys: keys, pepper: pepper}
}

// HashKey returns the hex HMAC-SHA256 of key under pepper.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticate looks up the key and returns its principal. Every failure is
// reported as ErrUnauthorized except repository errors, which are wrapped.
func (a *Authenticator) Authenticate(ctx context.Context, key string) (*Principal, error) {
	if key == "" {
		return nil, ErrUnauthorized
	}
	hash := HashKey(a.pepper, key)

	info, err := a.keys.FindByHash(ctx, hash)
	switch {
	case errors.Is(err, ErrKeyNotFound):
		return nil, ErrUnauthorized
	case err != nil:
		return nil, errors.Wrap(err, "find api key")
	}

	// Compare against the stored hash in constant time.
	if subtle.ConstantTimeCompare([]byte(hash), []byte(info.KeyHash)) != 1 {
		return nil, ErrUnauthorized
	}
	if !info.Role.Valid() {
		return nil, ErrUnauthorized
	}

	return &Principal{
		ID:        info.ID,
		Name:      info.Name,
		Role:      info.Role,
		SubjectID: info.SubjectID,
	}, nil
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
