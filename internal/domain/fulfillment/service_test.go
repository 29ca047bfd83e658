package fulfillment

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solemart/storefront/internal/domain/lifecycle"
	"github.com/solemart/storefront/internal/domain/order"
	"github.com/solemart/storefront/internal/notify"
)

// memOrderRepo is an in-memory order.Repository for service tests.
type memOrderRepo struct {
	orders map[string]*order.Order
	events map[string][]order.Event
}

func newMemOrderRepo(orders ...*order.Order) *memOrderRepo {
	m := &memOrderRepo{
		orders: make(map[string]*order.Order),
		events: make(map[string][]order.Event),
	}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *memOrderRepo) Create(_ context.Context, o *order.Order) error {
	m.orders[o.ID] = o
	return nil
}

func (m *memOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderRepo) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrderRepo) UpdateStatus(_ context.Context, id string, from, to order.Status) error {
	o, ok := m.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	if o.Status != from {
		return order.ErrNotFound
	}
	o.Status = to
	return nil
}

func (m *memOrderRepo) SetPaymentStatus(_ context.Context, id string, ps order.PaymentStatus) error {
	m.orders[id].PaymentStatus = ps
	return nil
}

func (m *memOrderRepo) SetTracking(_ context.Context, id string, t order.Tracking) error {
	m.orders[id].Tracking = t
	return nil
}

func (m *memOrderRepo) SetDeliveredAt(_ context.Context, id string, at time.Time) error {
	m.orders[id].DeliveredAt = &at
	return nil
}

func (m *memOrderRepo) SetCancelledAt(_ context.Context, id string, at time.Time) error {
	m.orders[id].CancelledAt = &at
	return nil
}

func (m *memOrderRepo) AppendEvent(_ context.Context, orderID string, ev order.Event) error {
	m.events[orderID] = append(m.events[orderID], ev)
	return nil
}

func (m *memOrderRepo) ListEvents(_ context.Context, orderID string) ([]order.Event, error) {
	return m.events[orderID], nil
}

func testOrder(status order.Status) *order.Order {
	return &order.Order{
		ID:            "ord-1",
		Number:        1001,
		UserID:        "u1",
		Status:        status,
		PaymentStatus: order.PaymentPending,
		Total:         decimal.RequireFromString("50.00"),
		CreatedAt:     time.Now(),
	}
}

// --- Tests ---

func TestMarkPaid(t *testing.T) {
	repo := newMemOrderRepo(testOrder(order.StatusPendingPayment))
	svc := NewService(repo, notify.Nop{})

	o, err := svc.MarkPaid(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, o.Status)
	assert.Equal(t, order.PaymentCaptured, o.PaymentStatus)

	events := repo.events["ord-1"]
	require.Len(t, events, 1)
	assert.Equal(t, order.EventPaymentCaptured, events[0].Type)
}

func TestUpdateStatus_ValidTransition(t *testing.T) {
	repo := newMemOrderRepo(testOrder(order.StatusPaid))
	svc := NewService(repo, notify.Nop{})

	o, err := svc.UpdateStatus(context.Background(), "ord-1", order.StatusProcessing, "warehouse picked up")
	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, o.Status)

	events := repo.events["ord-1"]
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Message, "processing")
	assert.Contains(t, events[0].Message, "warehouse picked up")
}

func TestUpdateStatus_SkippingStageRejected(t *testing.T) {
	repo := newMemOrderRepo(testOrder(order.StatusPaid))
	svc := NewService(repo, notify.Nop{})

	// paid -> shipped skips processing and must be rejected with no writes.
	_, err := svc.UpdateStatus(context.Background(), "ord-1", order.StatusShipped, "")

	var itErr *order.InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, order.StatusPaid, itErr.From)
	assert.Equal(t, order.StatusShipped, itErr.To)

	stored := repo.orders["ord-1"]
	assert.Equal(t, order.StatusPaid, stored.Status)
	assert.Empty(t, repo.events["ord-1"])
}

func TestUpdateStatus_DeliveredStampsTimestamp(t *testing.T) {
	repo := newMemOrderRepo(testOrder(order.StatusOutForDelivery))
	svc := NewService(repo, notify.Nop{})

	o, err := svc.UpdateStatus(context.Background(), "ord-1", order.StatusDelivered, "")
	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, o.Status)
	require.NotNil(t, repo.orders["ord-1"].DeliveredAt)
}

func TestUpdateStatus_UnknownOrder(t *testing.T) {
	svc := NewService(newMemOrderRepo(), notify.Nop{})

	_, err := svc.UpdateStatus(context.Background(), "ghost", order.StatusPaid, "")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestApplyTrackingUpdate_MovesOrderAlong(t *testing.T) {
	repo := newMemOrderRepo(testOrder(order.StatusProcessing))
	svc := NewService(repo, notify.Nop{})

	o, err := svc.ApplyTrackingUpdate(context.Background(), "ord-1", TrackingUpdate{
		Carrier:        "ups",
		TrackingNumber: "1Z999",
		Status:         lifecycle.ShipPickedUp,
		Location:       "Louisville, KY",
	})
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, o.Status)
	assert.Equal(t, "ups", o.Tracking.Carrier)

	events := repo.events["ord-1"]
	require.Len(t, events, 1)
	assert.Equal(t, order.EventTrackingUpdated, events[0].Type)
	assert.Contains(t, events[0].Message, "1Z999")
	assert.Contains(t, events[0].Message, "Louisville, KY")
}

func TestApplyTrackingUpdate_DeliveredStampsAndNotifies(t *testing.T) {
	repo := newMemOrderRepo(testOrder(order.StatusOutForDelivery))
	svc := NewService(repo, notify.Nop{})

	o, err := svc.ApplyTrackingUpdate(context.Background(), "ord-1", TrackingUpdate{
		Carrier:        "ups",
		TrackingNumber: "1Z999",
		Status:         lifecycle.ShipDelivered,
	})
	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, o.Status)
	require.NotNil(t, repo.orders["ord-1"].DeliveredAt)
}

func TestApplyTrackingUpdate_UnknownStatusKeepsOrder(t *testing.T) {
	repo := newMemOrderRepo(testOrder(order.StatusShipped))
	svc := NewService(repo, notify.Nop{})

	// Unknown carrier status maps to processing; shipped -> processing is
	// not a legal edge, so only the event is recorded.
	o, err := svc.ApplyTrackingUpdate(context.Background(), "ord-1", TrackingUpdate{
		Carrier:        "ups",
		TrackingNumber: "1Z999",
		Status:         lifecycle.ShippingStatus("customs_hold"),
	})
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, o.Status)
	assert.Len(t, repo.events["ord-1"], 1)
}

func TestApplyTrackingUpdate_ReturnedToSenderCancels(t *testing.T) {
	repo := newMemOrderRepo(testOrder(order.StatusInTransit))
	svc := NewService(repo, notify.Nop{})

	o, err := svc.ApplyTrackingUpdate(context.Background(), "ord-1", TrackingUpdate{
		Carrier:        "usps",
		TrackingNumber: "940011",
		Status:         lifecycle.ShipReturnedToSender,
	})
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, o.Status)
	require.NotNil(t, repo.orders["ord-1"].CancelledAt)
}
