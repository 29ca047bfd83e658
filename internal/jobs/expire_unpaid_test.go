package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solemart/storefront/internal/domain/fulfillment"
	"github.com/solemart/storefront/internal/domain/order"
	"github.com/solemart/storefront/internal/notify"
)

// memOrderStore implements order.Repository and staleOrderLister in memory.
type memOrderStore struct {
	orders map[string]*order.Order
	events map[string][]order.Event
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{
		orders: make(map[string]*order.Order),
		events: make(map[string][]order.Event),
	}
}

func (m *memOrderStore) Create(_ context.Context, o *order.Order) error {
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memOrderStore) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderStore) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrderStore) UpdateStatus(_ context.Context, id string, from, to order.Status) error {
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return order.ErrNotFound
	}
	o.Status = to
	return nil
}

func (m *memOrderStore) SetPaymentStatus(_ context.Context, id string, ps order.PaymentStatus) error {
	o, ok := m.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.PaymentStatus = ps
	return nil
}

func (m *memOrderStore) SetTracking(_ context.Context, id string, t order.Tracking) error {
	o, ok := m.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Tracking = t
	return nil
}

func (m *memOrderStore) SetDeliveredAt(_ context.Context, id string, at time.Time) error {
	o, ok := m.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.DeliveredAt = &at
	return nil
}

func (m *memOrderStore) SetCancelledAt(_ context.Context, id string, at time.Time) error {
	o, ok := m.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.CancelledAt = &at
	return nil
}

func (m *memOrderStore) AppendEvent(_ context.Context, orderID string, ev order.Event) error {
	m.events[orderID] = append(m.events[orderID], ev)
	return nil
}

func (m *memOrderStore) ListEvents(_ context.Context, orderID string) ([]order.Event, error) {
	return m.events[orderID], nil
}

func (m *memOrderStore) ListStaleByStatus(_ context.Context, status order.Status, cutoff time.Time) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.orders {
		if o.Status == status && o.CreatedAt.Before(cutoff) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func TestExpireUnpaidOrders(t *testing.T) {
	store := newMemOrderStore()
	now := time.Now()

	require.NoError(t, store.Create(context.Background(), &order.Order{
		ID: "stale", Status: order.StatusPendingPayment, CreatedAt: now.Add(-2 * time.Hour),
	}))
	require.NoError(t, store.Create(context.Background(), &order.Order{
		ID: "fresh", Status: order.StatusPendingPayment, CreatedAt: now.Add(-10 * time.Minute),
	}))
	require.NoError(t, store.Create(context.Background(), &order.Order{
		ID: "paid", Status: order.StatusPaid, CreatedAt: now.Add(-2 * time.Hour),
	}))

	svc := fulfillment.NewService(store, notify.Nop{})
	job := NewExpireUnpaidOrders(store, svc, time.Hour, zap.NewNop())

	require.NoError(t, job.Run(context.Background()))

	stale, err := store.GetByID(context.Background(), "stale")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, stale.Status)
	assert.NotNil(t, stale.CancelledAt)
	assert.NotEmpty(t, store.events["stale"])

	fresh, err := store.GetByID(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPendingPayment, fresh.Status)

	paid, err := store.GetByID(context.Background(), "paid")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, paid.Status)
}

func TestExpireUnpaidOrders_NoStaleOrders(t *testing.T) {
	store := newMemOrderStore()
	svc := fulfillment.NewService(store, notify.Nop{})
	job := NewExpireUnpaidOrders(store, svc, time.Hour, zap.NewNop())

	assert.NoError(t, job.Run(context.Background()))
}
