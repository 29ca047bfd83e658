// Package coupon implements checkout discount codes: percentage, fixed
// amount, and free-lowest-item rules with validity windows and usage caps.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidCoupon covers unknown codes and carts that fail a rule's
	// minimum item count.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrCouponExpired is returned outside the rule's validity window.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrCouponUsageLimitReached is returned once a capped rule is used up.
	ErrCouponUsageLimitReached = errors.New("coupon usage limit reached")
)

// DiscountType selects how a rule computes its discount.
type DiscountType string

const (
	// DiscountPercentage takes a percentage off the cart subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount off, capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
	// DiscountFreeLowest makes the cheapest cart item free.
	DiscountFreeLowest DiscountType = "free_lowest"
)

// Rule is one redeemable coupon.
type Rule struct {
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
	MinItems     int
	Description  string
	ValidFrom    *time.Time
	ValidUntil   *time.Time
	MaxUses      int
	Uses         int
	// MaxDiscount caps the computed amount when positive.
	MaxDiscount decimal.Decimal
}

// Redeemable reports whether the rule may be redeemed at t, checking the
// validity window and the usage cap.
func (r *Rule) Redeemable(t time.Time) error {
	if r.ValidFrom != nil && t.Before(*r.ValidFrom) {
		return ErrCouponExpired
	}
	if r.ValidUntil != nil && t.After(*r.ValidUntil) {
		return ErrCouponExpired
	}
	if r.MaxUses > 0 && r.Uses >= r.MaxUses {
		return ErrCouponUsageLimitReached
	}
	return nil
}

// Discount is the outcome of applying a rule to a cart.
type Discount struct {
	Amount      decimal.Decimal
	Description string
}

// Item is a cart line as the discount calculation sees it.
type Item struct {
	ProductID string
	Price     decimal.Decimal
	Quantity  int
}

// Repository provides lookup and mutation of coupon rules.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
	IncrementUses(ctx context.Context, code string) error
}
