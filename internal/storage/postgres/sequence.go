package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solemart/storefront/internal/domain/order"
)

var _ order.NumberSequence = (*CounterSequence)(nil)

// CounterSequence mints sequential order numbers from the counters table.
// The increment is a single UPDATE ... RETURNING, so the read-modify-write
// is atomic: concurrent callers each get a distinct number or an error,
// never a duplicate.
type CounterSequence struct {
	pool *pgxpool.Pool
	name string
}

// NewOrderNumberSequence returns the sequence backing order numbers.
func NewOrderNumberSequence(pool *pgxpool.Pool) *CounterSequence {
	return &CounterSequence{pool: pool, name: "order_number"}
}

// Next increments the counter and returns the new value.
func (s *CounterSequence) Next(ctx context.Context) (int64, error) {
	var value int64
	err := s.pool.QueryRow(ctx,
		`UPDATE counters SET value = value + 1 WHERE name = $1 RETURNING value`,
		s.name).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("incrementing counter %q: %w", s.name, err)
	}
	return value, nil
}
