package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when no cart exists for the given owner.
var ErrNotFound = errors.New("cart not found")

// Cart is a customer's persisted shopping cart. Carts are keyed by owner ID
// (a user ID, or an anonymous session ID before login).
type Cart struct {
	OwnerID   string `json:"owner_id"`
	Items     []Item `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item is one cart line.
type Item struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Repository persists carts. Implementations are expected to expire carts
// that go untouched for the configured TTL.
type Repository interface {
	Get(ctx context.Context, ownerID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, ownerID string) error
}
