package lifecycle

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solemart/storefront/internal/domain/order"
)

// Decision is a policy verdict. When Allowed is false, Reason carries a
// user-presentable explanation; it is never an error.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// ReturnItem identifies an order line (or part of one) being returned.
type ReturnItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// RefundBreakdown itemizes how a return refund was computed, for audit.
type RefundBreakdown struct {
	Items          decimal.Decimal `json:"items"`
	RestockFee     decimal.Decimal `json:"restock_fee"`
	ShippingRefund decimal.Decimal `json:"shipping_refund"`
	Total          decimal.Decimal `json:"total"`
}

// Engine evaluates orders against an immutable Policy. It is stateless and
// safe for concurrent use.
type Engine struct {
	policy Policy
}

// NewEngine creates an Engine with the given policy.
func NewEngine(p Policy) *Engine {
	return &Engine{policy: p}
}

// Policy returns the engine's policy values.
func (e *Engine) Policy() Policy {
	return e.policy
}

// CanCancel decides whether the order may still be cancelled at the given
// time. Elapsed time exactly equal to the cancellation window is allowed;
// the denial triggers strictly past it.
func (e *Engine) CanCancel(o *order.Order, now time.Time) Decision {
	switch o.Status {
	case order.StatusCancelled:
		return deny("order is already cancelled")
	case order.StatusDelivered:
		return deny("delivered orders cannot be cancelled; request a return instead")
	}
	if !statusIn(o.Status, e.policy.CancellableStatuses) {
		return deny(fmt.Sprintf("orders in status %q can no longer be cancelled", o.Status))
	}
	if now.Sub(o.CreatedAt) > e.policy.CancellationWindow {
		hours := int(e.policy.CancellationWindow / time.Hour)
		return deny(fmt.Sprintf("orders can only be cancelled within %d hours of placement", hours))
	}
	return allow()
}

// CanReturn decides whether a return may be requested for the order at the
// given time. The boundary is inclusive, matching CanCancel.
func (e *Engine) CanReturn(o *order.Order, now time.Time) Decision {
	if o.Status == order.StatusCancelled || o.Status == order.StatusRefunded {
		return deny("cancelled or refunded orders cannot be returned")
	}
	if !statusIn(o.Status, e.policy.ReturnableStatuses) {
		return deny(fmt.Sprintf("orders in status %q are not eligible for return", o.Status))
	}
	if o.DeliveredAt == nil {
		return deny("no delivery has been recorded for this order")
	}
	if now.Sub(*o.DeliveredAt) > e.policy.ReturnWindow {
		days := int(e.policy.ReturnWindow / (24 * time.Hour))
		return deny(fmt.Sprintf("returns are only accepted within %d days of delivery", days))
	}
	return allow()
}

// CancellationRefund returns the amount refunded when the order is
// cancelled: the full grand total iff payment was captured, zero otherwise.
func (e *Engine) CancellationRefund(o *order.Order) decimal.Decimal {
	if o.PaymentStatus != order.PaymentCaptured {
		return decimal.Zero
	}
	return o.Total
}

// ReturnRefund computes the refund for returning the given items. Each item
// contributes (line total / original quantity) x returned quantity. A
// restock fee applies only when the buyer changed their mind; the original
// shipping cost is refunded only for seller-caused reasons. The result is
// floored at zero and fully itemized.
func (e *Engine) ReturnRefund(o *order.Order, items []ReturnItem, reason Reason) RefundBreakdown {
	itemsTotal := decimal.Zero
	for _, ret := range items {
		line, ok := findLine(o.Items, ret.ProductID)
		if !ok || line.Quantity <= 0 {
			continue
		}
		perUnit := line.LineTotal.Div(decimal.NewFromInt(int64(line.Quantity)))
		itemsTotal = itemsTotal.Add(perUnit.Mul(decimal.NewFromInt(int64(ret.Quantity))))
	}
	itemsTotal = itemsTotal.Round(2)

	restockFee := decimal.Zero
	if reason == ReasonChangedMind {
		restockFee = itemsTotal.Mul(e.policy.RestockFeePercent).Div(decimal.NewFromInt(100)).Round(2)
	}

	shippingRefund := decimal.Zero
	if reason.SellerFault() {
		shippingRefund = o.Shipping
	}

	total := itemsTotal.Sub(restockFee).Add(shippingRefund)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return RefundBreakdown{
		Items:          itemsTotal,
		RestockFee:     restockFee,
		ShippingRefund: shippingRefund,
		Total:          total.Round(2),
	}
}

// FreeReturnShipping reports whether the customer ships the return for free:
// always for seller-caused reasons, otherwise when the order total meets the
// configured threshold.
func (e *Engine) FreeReturnShipping(o *order.Order, reason Reason) bool {
	if reason.SellerFault() {
		return true
	}
	return o.Total.GreaterThanOrEqual(e.policy.FreeReturnShippingThreshold)
}

// ProductReturnable reports whether items of the given category may be
// returned at all. The denylist match is case-insensitive.
func (e *Engine) ProductReturnable(category string) bool {
	return !categoryIn(category, e.policy.NonReturnableCategories)
}

// ShippingCost returns the outbound shipping charge for a cart subtotal:
// zero at or above the free-shipping threshold, the flat fee below it.
func (e *Engine) ShippingCost(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(e.policy.FreeShippingThreshold) {
		return decimal.Zero
	}
	return e.policy.ShippingFee
}

// Tax returns the tax charged on the given (discounted) amount.
func (e *Engine) Tax(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Mul(e.policy.TaxRate).Round(2)
}

func findLine(items []order.Item, productID string) (order.Item, bool) {
	for _, it := range items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return order.Item{}, false
}
