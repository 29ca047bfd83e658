package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solemart/storefront/internal/domain/auth"
)

type fakeKeyRepo struct {
	identities map[string]*auth.Identity
}

func (f *fakeKeyRepo) FindByHash(_ context.Context, hash string) (*auth.Identity, error) {
	id, ok := f.identities[hash]
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	return id, nil
}

func keyHash(pepper, key string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

func authedHandler(t *testing.T, sec *Security, scope string) http.Handler {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := IdentityFromContext(r.Context())
		require.NotNil(t, identity)
		w.WriteHeader(http.StatusOK)
	})
	return sec.Authenticate(RequireScope(scope)(next))
}

func TestAuthenticate_ValidKey(t *testing.T) {
	const pepper = "test-pepper"
	hash := keyHash(pepper, "secret-key")
	repo := &fakeKeyRepo{identities: map[string]*auth.Identity{
		hash: {ID: "k1", KeyHash: hash, UserID: "u1", Scopes: []string{auth.ScopeStorefront}},
	}}
	sec := NewSecurity(repo, []byte(pepper))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("X-API-Key", "secret-key")
	w := httptest.NewRecorder()

	authedHandler(t, sec, ScopeStorefront).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthenticate_MissingKey(t *testing.T) {
	sec := NewSecurity(&fakeKeyRepo{}, []byte("pepper"))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	w := httptest.NewRecorder()

	authedHandler(t, sec, ScopeStorefront).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_UnknownKey(t *testing.T) {
	sec := NewSecurity(&fakeKeyRepo{identities: map[string]*auth.Identity{}}, []byte("pepper"))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	w := httptest.NewRecorder()

	authedHandler(t, sec, ScopeStorefront).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireScope_Insufficient(t *testing.T) {
	const pepper = "test-pepper"
	hash := keyHash(pepper, "storefront-key")
	repo := &fakeKeyRepo{identities: map[string]*auth.Identity{
		hash: {ID: "k1", KeyHash: hash, UserID: "u1", Scopes: []string{auth.ScopeStorefront}},
	}}
	sec := NewSecurity(repo, []byte(pepper))

	req := httptest.NewRequest(http.MethodPatch, "/orders/o1/status", nil)
	req.Header.Set("X-API-Key", "storefront-key")
	w := httptest.NewRecorder()

	authedHandler(t, sec, ScopeAdmin).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthenticate_StaleStoredHash(t *testing.T) {
	const pepper = "test-pepper"
	hash := keyHash(pepper, "secret-key")
	// Repository returns a row whose stored hash differs from the lookup key.
	repo := &fakeKeyRepo{identities: map[string]*auth.Identity{
		hash: {ID: "k1", KeyHash: keyHash(pepper, "other-key"), Scopes: []string{auth.ScopeAdmin}},
	}}
	sec := NewSecurity(repo, []byte(pepper))

	req := httptest.NewRequest(http.MethodGet, "/returns", nil)
	req.Header.Set("X-API-Key", "secret-key")
	w := httptest.NewRecorder()

	authedHandler(t, sec, ScopeAdmin).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
