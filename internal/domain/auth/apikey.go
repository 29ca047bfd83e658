package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned when a presented API key cannot be matched to
// an active identity.
var ErrUnauthorized = errors.New("unauthorized")

// Scopes an API key may carry.
const (
	ScopeStorefront = "storefront"
	ScopeAdmin      = "admin"
)

// Identity is the resolved caller behind an API key. UserID identifies the
// storefront customer account the key acts for; admin keys have none.
type Identity struct {
	ID      string
	KeyHash string
	Name    string
	UserID  string
	Scopes  []string
}

// HasScope reports whether the identity carries the given scope.
func (i *Identity) HasScope(scope string) bool {
	for _, s := range i.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Repository resolves API key hashes to identities.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*Identity, error)
}
