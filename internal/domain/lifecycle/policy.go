// Package lifecycle implements the order lifecycle rules engine: stateless
// policy decisions over order snapshots, covering cancellation and return
// eligibility, refund computation, shipping-status mapping, and event
// message rendering. The engine holds no mutable state and performs no I/O;
// callers supply the current time explicitly.
package lifecycle

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solemart/storefront/internal/domain/order"
)

// Policy is the immutable set of business-rule constants the engine
// evaluates orders against. Construct one per engine; tests inject variants
// instead of mutating globals.
type Policy struct {
	// CancellationWindow is the maximum elapsed time after order creation
	// during which cancellation is permitted.
	CancellationWindow time.Duration
	// ReturnWindow is the maximum elapsed time after delivery during which
	// a return may be requested.
	ReturnWindow time.Duration
	// RestockFeePercent is deducted from the items refund when the return
	// reason is buyer-caused (e.g. 20 means 20%).
	RestockFeePercent decimal.Decimal
	// FreeReturnShippingThreshold grants free return shipping to any order
	// whose grand total meets or exceeds it.
	FreeReturnShippingThreshold decimal.Decimal
	// FreeShippingThreshold waives the outbound shipping fee at checkout.
	FreeShippingThreshold decimal.Decimal
	// ShippingFee is the flat outbound shipping charge.
	ShippingFee decimal.Decimal
	// TaxRate is applied to the discounted subtotal at checkout (0.08 = 8%).
	TaxRate decimal.Decimal
	// CancellableStatuses is the set of order statuses cancellation is
	// allowed from.
	CancellableStatuses []order.Status
	// ReturnableStatuses is the set of order statuses a return may be
	// requested from.
	ReturnableStatuses []order.Status
	// NonReturnableCategories is a case-insensitive product category
	// denylist for returns.
	NonReturnableCategories []string
}

// DefaultPolicy returns the production policy values.
func DefaultPolicy() Policy {
	return Policy{
		CancellationWindow:          24 * time.Hour,
		ReturnWindow:                30 * 24 * time.Hour,
		RestockFeePercent:           decimal.NewFromInt(20),
		FreeReturnShippingThreshold: decimal.NewFromInt(100),
		FreeShippingThreshold:       decimal.NewFromInt(75),
		ShippingFee:                 decimal.RequireFromString("9.95"),
		TaxRate:                     decimal.RequireFromString("0.08"),
		CancellableStatuses: []order.Status{
			order.StatusPendingPayment,
			order.StatusPaid,
			order.StatusProcessing,
		},
		ReturnableStatuses: []order.Status{
			order.StatusDelivered,
		},
		NonReturnableCategories: []string{
			"underwear",
			"swimwear",
			"cosmetics",
			"gift-cards",
			"final-sale",
		},
	}
}

func statusIn(s order.Status, set []order.Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func categoryIn(category string, set []string) bool {
	for _, v := range set {
		if strings.EqualFold(category, v) {
			return true
		}
	}
	return false
}
