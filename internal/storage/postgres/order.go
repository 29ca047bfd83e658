package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solemart/storefront/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

const orderColumns = `id, number, user_id, items, subtotal, discount, shipping,
	tax, total, status, payment_status, coupon_code, tracking_carrier,
	tracking_number, created_at, delivered_at, cancelled_at`

// OrderRepository implements order.Repository backed by PostgreSQL. Line
// items are stored as JSONB; events live in their own append-only table.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO orders (id, number, user_id, items, subtotal, discount,
			shipping, tax, total, status, payment_status, coupon_code,
			tracking_carrier, tracking_number, created_at, delivered_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		o.ID, o.Number, o.UserID, itemsJSON, o.Subtotal, o.Discount,
		o.Shipping, o.Tax, o.Total, o.Status, o.PaymentStatus, o.CouponCode,
		o.Tracking.Carrier, o.Tracking.Number, o.CreatedAt, o.DeliveredAt, o.CancelledAt)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns one order, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

// ListStaleByStatus returns orders stuck in the given status since before
// the cutoff. Used by the unpaid-order expiry job.
func (r *OrderRepository) ListStaleByStatus(ctx context.Context, status order.Status, cutoff time.Time) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = $1 AND created_at < $2`,
		status, cutoff)
	if err != nil {
		return nil, fmt.Errorf("listing stale %q orders: %w", status, err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

// UpdateStatus moves the order from one status to another. The WHERE clause
// carries the expected current status, so a concurrent transition makes
// this a no-op surfaced as order.ErrNotFound.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// SetPaymentStatus updates the payment status.
func (r *OrderRepository) SetPaymentStatus(ctx context.Context, id string, ps order.PaymentStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET payment_status = $1 WHERE id = $2`, ps, id)
	if err != nil {
		return fmt.Errorf("updating order %q payment status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// SetTracking records carrier tracking identifiers on the order.
func (r *OrderRepository) SetTracking(ctx context.Context, id string, t order.Tracking) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET tracking_carrier = $1, tracking_number = $2 WHERE id = $3`,
		t.Carrier, t.Number, id)
	if err != nil {
		return fmt.Errorf("updating order %q tracking: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// SetDeliveredAt stamps the delivery timestamp.
func (r *OrderRepository) SetDeliveredAt(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET delivered_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("updating order %q delivered_at: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// SetCancelledAt stamps the cancellation timestamp.
func (r *OrderRepository) SetCancelledAt(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET cancelled_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("updating order %q cancelled_at: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// AppendEvent inserts a timeline entry. Events are insert-only; there is no
// update path.
func (r *OrderRepository) AppendEvent(ctx context.Context, orderID string, ev order.Event) error {
	var metaJSON []byte
	if ev.Metadata != nil {
		var err error
		metaJSON, err = json.Marshal(ev.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling event metadata: %w", err)
		}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO order_events (id, order_id, type, status, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.ID, orderID, ev.Type, ev.Status, ev.Message, metaJSON, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("appending event to order %q: %w", orderID, err)
	}
	return nil
}

// ListEvents returns the order's timeline, oldest first.
func (r *OrderRepository) ListEvents(ctx context.Context, orderID string) ([]order.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, type, status, message, metadata, created_at
		FROM order_events WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing events for order %q: %w", orderID, err)
	}
	defer rows.Close()

	var out []order.Event
	for rows.Next() {
		var (
			ev       order.Event
			metaJSON []byte
		)
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.Status, &ev.Message, &metaJSON, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &ev.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling event metadata: %w", err)
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event rows: %w", err)
	}
	return out, nil
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.UserID, &itemsJSON, &o.Subtotal, &o.Discount,
		&o.Shipping, &o.Tax, &o.Total, &o.Status, &o.PaymentStatus,
		&o.CouponCode, &o.Tracking.Carrier, &o.Tracking.Number,
		&o.CreatedAt, &o.DeliveredAt, &o.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshaling order items: %w", err)
	}
	return &o, nil
}

func scanOrders(rows pgx.Rows) ([]order.Order, error) {
	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order row: %w", err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order rows: %w", err)
	}
	return out, nil
}
