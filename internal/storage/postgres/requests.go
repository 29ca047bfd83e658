package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solemart/storefront/internal/domain/lifecycle"
	"github.com/solemart/storefront/internal/domain/returns"
)

var _ returns.Repository = (*RequestRepository)(nil)

const requestColumns = `id, order_id, user_id, type, reason, items,
	refund_items, refund_restock_fee, refund_shipping, refund_total,
	free_shipping, status, note, requested_at, decided_at, completed_at`

// RequestRepository persists cancellation and return requests.
type RequestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository returns a RequestRepository that uses the given pool.
func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

// Create persists a new request.
func (r *RequestRepository) Create(ctx context.Context, req *returns.Request) error {
	var itemsJSON []byte
	if req.Items != nil {
		var err error
		itemsJSON, err = json.Marshal(req.Items)
		if err != nil {
			return fmt.Errorf("marshaling request items: %w", err)
		}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO order_requests (id, order_id, user_id, type, reason, items,
			refund_items, refund_restock_fee, refund_shipping, refund_total,
			free_shipping, status, note, requested_at, decided_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		req.ID, req.OrderID, req.UserID, req.Type, req.Reason, itemsJSON,
		req.Refund.Items, req.Refund.RestockFee, req.Refund.ShippingRefund, req.Refund.Total,
		req.FreeShipping, req.Status, req.Note, req.RequestedAt, req.DecidedAt, req.CompletedAt)
	if err != nil {
		return fmt.Errorf("creating request %q: %w", req.ID, err)
	}
	return nil
}

// GetByID returns one request, or returns.ErrNotFound.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*returns.Request, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM order_requests WHERE id = $1`, id)

	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, returns.ErrNotFound
		}
		return nil, fmt.Errorf("getting request %q: %w", id, err)
	}
	return req, nil
}

// ListByOrder returns all requests filed against an order.
func (r *RequestRepository) ListByOrder(ctx context.Context, orderID string) ([]returns.Request, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+requestColumns+` FROM order_requests WHERE order_id = $1 ORDER BY requested_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing requests for order %q: %w", orderID, err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

// ListByStatus returns requests in the given status, oldest first.
func (r *RequestRepository) ListByStatus(ctx context.Context, status returns.RequestStatus) ([]returns.Request, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+requestColumns+` FROM order_requests WHERE status = $1 ORDER BY requested_at`, status)
	if err != nil {
		return nil, fmt.Errorf("listing %q requests: %w", status, err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

// Update writes the request's mutable fields (status, note, decision
// timestamps). The identity/refund fields are fixed at creation.
func (r *RequestRepository) Update(ctx context.Context, req *returns.Request) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE order_requests
		SET status = $1, note = $2, decided_at = $3, completed_at = $4
		WHERE id = $5`,
		req.Status, req.Note, req.DecidedAt, req.CompletedAt, req.ID)
	if err != nil {
		return fmt.Errorf("updating request %q: %w", req.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return returns.ErrNotFound
	}
	return nil
}

func scanRequest(row rowScanner) (*returns.Request, error) {
	var (
		req       returns.Request
		itemsJSON []byte
	)
	err := row.Scan(
		&req.ID, &req.OrderID, &req.UserID, &req.Type, &req.Reason, &itemsJSON,
		&req.Refund.Items, &req.Refund.RestockFee, &req.Refund.ShippingRefund, &req.Refund.Total,
		&req.FreeShipping, &req.Status, &req.Note,
		&req.RequestedAt, &req.DecidedAt, &req.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(itemsJSON) > 0 {
		var items []lifecycle.ReturnItem
		if err := json.Unmarshal(itemsJSON, &items); err != nil {
			return nil, fmt.Errorf("unmarshaling request items: %w", err)
		}
		req.Items = items
	}
	return &req, nil
}

func scanRequests(rows pgx.Rows) ([]returns.Request, error) {
	var out []returns.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning request row: %w", err)
		}
		out = append(out, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating request rows: %w", err)
	}
	return out, nil
}
