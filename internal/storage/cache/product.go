// Package cache wraps repositories with in-process read-through caches.
package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/solemart/storefront/internal/domain/product"
)

// ProductRepository is a read-through cache in front of another
// product.Repository. The catalog changes rarely, so short TTLs keep
// hot listing endpoints off the database without any invalidation
// machinery. Writes are not cached; the ingest tool talks to Postgres
// directly and the entries age out.
type ProductRepository struct {
	next  product.Repository
	cache *gocache.Cache
}

func NewProductRepository(next product.Repository, ttl time.Duration) *ProductRepository {
	return &ProductRepository{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	if v, ok := r.cache.Get("list"); ok {
		return v.([]product.Product), nil
	}

	products, err := r.next.List(ctx)
	if err != nil {
		return nil, err
	}

	r.cache.Set("list", products, gocache.DefaultExpiration)

	return products, nil
}

func (r *ProductRepository) ListByCategory(ctx context.Context, category string) ([]product.Product, error) {
	key := "category:" + strings.ToLower(category)
	if v, ok := r.cache.Get(key); ok {
		return v.([]product.Product), nil
	}

	products, err := r.next.ListByCategory(ctx, category)
	if err != nil {
		return nil, err
	}

	r.cache.Set(key, products, gocache.DefaultExpiration)

	return products, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	key := "product:" + id
	if v, ok := r.cache.Get(key); ok {
		p := v.(product.Product)
		return &p, nil
	}

	p, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cache.Set(key, *p, gocache.DefaultExpiration)

	return p, nil
}

// GetByIDs serves each product from the cache when present and batches
// the misses into a single lookup.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	products := make([]product.Product, 0, len(ids))
	missing := make([]string, 0, len(ids))

	for _, id := range ids {
		if v, ok := r.cache.Get("product:" + id); ok {
			products = append(products, v.(product.Product))
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return products, nil
	}

	fetched, err := r.next.GetByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}

	for _, p := range fetched {
		r.cache.Set("product:"+p.ID, p, gocache.DefaultExpiration)
		products = append(products, p)
	}

	return products, nil
}
