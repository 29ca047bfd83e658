package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrInvalidQuantity is returned when a cart line quantity is negative.
var ErrInvalidQuantity = errors.New("quantity must not be negative")

// Service implements cart operations over a Repository.
type Service struct {
	carts Repository
	now   func() time.Time
}

// NewService creates a cart Service.
func NewService(carts Repository) *Service {
	return &Service{carts: carts, now: time.Now}
}

// Get returns the owner's cart, or an empty cart when none is stored.
func (s *Service) Get(ctx context.Context, ownerID string) (*Cart, error) {
	c, err := s.carts.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &Cart{OwnerID: ownerID}, nil
		}
		return nil, errors.Wrap(err, "get cart")
	}
	return c, nil
}

// SetItem sets the quantity for a product in the owner's cart. Quantity
// zero removes the line.
func (s *Service) SetItem(ctx context.Context, ownerID, productID string, quantity int) (*Cart, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	c, err := s.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	updated := c.Items[:0]
	found := false
	for _, it := range c.Items {
		if it.ProductID == productID {
			found = true
			if quantity > 0 {
				it.Quantity = quantity
				updated = append(updated, it)
			}
			continue
		}
		updated = append(updated, it)
	}
	if !found && quantity > 0 {
		updated = append(updated, Item{ProductID: productID, Quantity: quantity})
	}
	c.Items = updated
	c.UpdatedAt = s.now()

	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// Clear removes the owner's cart entirely.
func (s *Service) Clear(ctx context.Context, ownerID string) error {
	if err := s.carts.Delete(ctx, ownerID); err != nil && !errors.Is(err, ErrNotFound) {
		return errors.Wrap(err, "delete cart")
	}
	return nil
}

// Merge folds an anonymous cart into the user's cart after login, summing
// quantities for lines both carts share, and deletes the anonymous cart.
func (s *Service) Merge(ctx context.Context, anonymousID, userID string) (*Cart, error) {
	anon, err := s.Get(ctx, anonymousID)
	if err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[string]int, len(c.Items))
	for i, it := range c.Items {
		byProduct[it.ProductID] = i
	}
	for _, it := range anon.Items {
		if i, ok := byProduct[it.ProductID]; ok {
			c.Items[i].Quantity += it.Quantity
			continue
		}
		c.Items = append(c.Items, it)
	}
	c.UpdatedAt = s.now()

	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save merged cart")
	}
	if err := s.carts.Delete(ctx, anonymousID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "delete anonymous cart")
	}
	return c, nil
}
