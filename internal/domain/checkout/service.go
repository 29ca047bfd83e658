// Package checkout turns a cart into a persisted order: price lookup,
// coupon application, shipping and tax computation, sequential order
// numbering, and the first timeline event.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/solemart/storefront/internal/domain/coupon"
	"github.com/solemart/storefront/internal/domain/lifecycle"
	"github.com/solemart/storefront/internal/domain/order"
	"github.com/solemart/storefront/internal/domain/product"
	"github.com/solemart/storefront/internal/notify"
)

// Sentinel errors for checkout validation.
var (
	ErrEmptyItems      = fmt.Errorf("items required")
	ErrInvalidQuantity = fmt.Errorf("quantity must be greater than 0")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// LineInput is one requested order line.
type LineInput struct {
	ProductID string
	Quantity  int
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	UserID     string
	Items      []LineInput
	CouponCode string
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order    *order.Order
	Products []product.Product
}

// Service encapsulates order placement business logic.
type Service struct {
	products product.Repository
	coupons  coupon.Validator
	orders   order.Repository
	numbers  order.NumberSequence
	engine   *lifecycle.Engine
	notifier notify.Notifier
	now      func() time.Time
}

// NewService creates a checkout Service with the required collaborators.
func NewService(
	products product.Repository,
	coupons coupon.Validator,
	orders order.Repository,
	numbers order.NumberSequence,
	engine *lifecycle.Engine,
	notifier notify.Notifier,
) *Service {
	return &Service{
		products: products,
		coupons:  coupons,
		orders:   orders,
		numbers:  numbers,
		engine:   engine,
		notifier: notifier,
		now:      time.Now,
	}
}

// PlaceOrder validates items, fetches products in a single batch, applies
// the coupon, computes shipping and tax, mints the order number, persists
// the order with its first timeline event, and notifies the customer.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	products := make([]product.Product, 0, len(req.Items))
	lines := make([]order.Item, len(req.Items))
	couponItems := make([]coupon.Item, len(req.Items))
	subtotal := decimal.Zero

	for i, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		products = append(products, p)

		qty := decimal.NewFromInt(int64(item.Quantity))
		lineTotal := p.Price.Mul(qty).Round(2)
		lines[i] = order.Item{
			ProductID: p.ID,
			Name:      p.Name,
			Category:  p.Category,
			UnitPrice: p.Price,
			Quantity:  item.Quantity,
			LineTotal: lineTotal,
		}
		couponItems[i] = coupon.Item{
			ProductID: p.ID,
			Price:     p.Price,
			Quantity:  item.Quantity,
		}
		subtotal = subtotal.Add(lineTotal)
	}
	subtotal = subtotal.Round(2)

	now := s.now()

	discount := decimal.Zero
	if req.CouponCode != "" {
		d, err := s.coupons.Validate(ctx, req.CouponCode, couponItems, now)
		if err != nil {
			return nil, fmt.Errorf("validate coupon: %w", err)
		}
		// Cap at the subtotal so the monetary invariant
		// total = subtotal - discount + shipping + tax always holds.
		discount = decimal.Min(d.Amount, subtotal).Round(2)
	}

	shipping := s.engine.ShippingCost(subtotal)
	tax := s.engine.Tax(subtotal.Sub(discount))
	total := subtotal.Sub(discount).Add(shipping).Add(tax).Round(2)

	number, err := s.numbers.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate order number: %w", err)
	}

	o := &order.Order{
		ID:            uuid.New().String(),
		Number:        number,
		UserID:        req.UserID,
		Items:         lines,
		Subtotal:      subtotal,
		Discount:      discount,
		Shipping:      shipping,
		Tax:           tax,
		Total:         total,
		Status:        order.StatusPendingPayment,
		PaymentStatus: order.PaymentPending,
		CouponCode:    req.CouponCode,
		CreatedAt:     now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	ev := order.Event{
		ID:        uuid.New().String(),
		Type:      order.EventCreated,
		Status:    o.Status,
		CreatedAt: now,
	}
	ev.Message = lifecycle.EventMessage(ev)
	if err := s.orders.AppendEvent(ctx, o.ID, ev); err != nil {
		return nil, fmt.Errorf("append created event: %w", err)
	}

	s.notifier.Notify(ctx, o.UserID, "Order placed",
		fmt.Sprintf("Order #%d was placed. Total: $%s.", o.Number, o.Total.StringFixed(2)))

	return &PlaceOrderResult{
		Order:    o,
		Products: products,
	}, nil
}
