// Package product defines the storefront catalog types and their read
// surface.
package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no product matches the requested ID.
var ErrNotFound = errors.New("product not found")

// Product is one sellable catalog entry. SKU is the supplier-facing
// identifier the feed ingest keys on; ID is the storefront identifier.
type Product struct {
	ID          string
	SKU         string
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	Image       Image
}

// Image carries the URL variants rendered at different breakpoints.
type Image struct {
	Thumbnail string
	Mobile    string
	Tablet    string
	Desktop   string
}

// Repository is the catalog read surface used by checkout and the API.
// Implementations return ErrNotFound for unknown IDs.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	ListByCategory(ctx context.Context, category string) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
