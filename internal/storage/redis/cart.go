// Package redis implements cart persistence on top of Redis.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/solemart/storefront/internal/domain/cart"
)

// CartRepository stores carts as JSON blobs keyed by owner with a
// sliding TTL. Expired carts simply disappear, which matches the
// guest-cart semantics: abandoned carts are not kept around.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{client: client, ttl: ttl}
}

func cartKey(ownerID string) string {
	return "cart:" + ownerID
}

func (r *CartRepository) Get(ctx context.Context, ownerID string) (*cart.Cart, error) {
	raw, err := r.client.Get(ctx, cartKey(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cart.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	var c cart.Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}

	return &c, nil
}

func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode cart")
	}

	if err := r.client.Set(ctx, cartKey(c.OwnerID), raw, r.ttl).Err(); err != nil {
		return errors.Wrap(err, "save cart")
	}

	return nil
}

func (r *CartRepository) Delete(ctx context.Context, ownerID string) error {
	if err := r.client.Del(ctx, cartKey(ownerID)).Err(); err != nil {
		return errors.Wrap(err, "delete cart")
	}

	return nil
}
