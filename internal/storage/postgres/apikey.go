package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solemart/storefront/internal/domain/auth"
)

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository provides API key lookups backed by PostgreSQL.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository returns an APIKeyRepository that uses the given pool.
func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// FindByHash looks up an active API key by its HMAC-SHA256 hash.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.Identity, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, key_hash, name, user_id, scopes
		FROM api_keys WHERE key_hash = $1 AND active`, hash)

	var id auth.Identity
	err := row.Scan(&id.ID, &id.KeyHash, &id.Name, &id.UserID, &id.Scopes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUnauthorized
		}
		return nil, fmt.Errorf("finding api key by hash: %w", err)
	}
	return &id, nil
}

// Upsert writes an API key row, replacing any existing row with the same
// ID. Used by the seed tool.
func (r *APIKeyRepository) Upsert(ctx context.Context, id *auth.Identity) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO api_keys (id, key_hash, name, user_id, scopes, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			key_hash = EXCLUDED.key_hash,
			name = EXCLUDED.name,
			user_id = EXCLUDED.user_id,
			scopes = EXCLUDED.scopes,
			active = TRUE`,
		id.ID, id.KeyHash, id.Name, id.UserID, id.Scopes)
	if err != nil {
		return fmt.Errorf("upserting api key %q: %w", id.Name, err)
	}
	return nil
}
