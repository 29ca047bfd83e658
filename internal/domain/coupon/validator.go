package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Validator computes the discount a coupon code yields for a cart, or
// rejects the code.
type Validator interface {
	Validate(ctx context.Context, code string, items []Item, now time.Time) (*Discount, error)
}

// RepoValidator resolves codes through a Repository and records each
// successful redemption.
type RepoValidator struct {
	repo Repository
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo}
}

// Validate resolves the code, checks redeemability at the caller-supplied
// time, computes the discount, and bumps the usage counter.
func (v *RepoValidator) Validate(ctx context.Context, code string, items []Item, now time.Time) (*Discount, error) {
	rule, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}
	if err := rule.Redeemable(now); err != nil {
		return nil, err
	}

	d, err := Apply(rule, items)
	if err != nil {
		return nil, err
	}
	if err := v.repo.IncrementUses(ctx, code); err != nil {
		return nil, errors.Wrap(err, "increment coupon uses")
	}
	return &d, nil
}
