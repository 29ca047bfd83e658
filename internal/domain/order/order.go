package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Order is a snapshot of a customer order with its pricing breakdown and
// lifecycle state.
type Order struct {
	ID            string
	Number        int64
	UserID        string
	Items         []Item
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Shipping      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	Status        Status
	PaymentStatus PaymentStatus
	CouponCode    string
	Tracking      Tracking
	CreatedAt     time.Time
	DeliveredAt   *time.Time
	CancelledAt   *time.Time
}

// Item is a single order line. LineTotal is the unit price multiplied by
// quantity at the time the order was placed.
type Item struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Tracking holds carrier-assigned shipment identifiers.
type Tracking struct {
	Carrier string `json:"carrier"`
	Number  string `json:"number"`
}

// PaymentStatus describes the state of the payment backing an order.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentCaptured PaymentStatus = "captured"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Repository defines persistence operations for orders and their event
// timeline. Events are append-only: there is no update or delete.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)

	// UpdateStatus writes the new status only when the stored status still
	// equals from, so concurrent transitions cannot race past the table.
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	SetPaymentStatus(ctx context.Context, id string, ps PaymentStatus) error
	SetTracking(ctx context.Context, id string, t Tracking) error
	SetDeliveredAt(ctx context.Context, id string, at time.Time) error
	SetCancelledAt(ctx context.Context, id string, at time.Time) error

	AppendEvent(ctx context.Context, orderID string, ev Event) error
	ListEvents(ctx context.Context, orderID string) ([]Event, error)
}

// NumberSequence mints sequential order numbers. Implementations must be
// atomic: two concurrent calls never observe the same number.
type NumberSequence interface {
	Next(ctx context.Context) (int64, error)
}
