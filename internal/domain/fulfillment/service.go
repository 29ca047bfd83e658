// Package fulfillment moves orders through their lifecycle after checkout:
// payment capture, manual status changes, and carrier tracking updates.
// Every change is validated against the order status transition table and
// recorded on the append-only timeline.
package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solemart/storefront/internal/domain/lifecycle"
	"github.com/solemart/storefront/internal/domain/order"
	"github.com/solemart/storefront/internal/notify"
)

// TrackingUpdate is a carrier callback payload.
type TrackingUpdate struct {
	Carrier        string
	TrackingNumber string
	Status         lifecycle.ShippingStatus
	Location       string
}

// Service drives order status changes.
type Service struct {
	orders   order.Repository
	notifier notify.Notifier
	now      func() time.Time
}

// NewService creates a fulfillment Service.
func NewService(orders order.Repository, notifier notify.Notifier) *Service {
	return &Service{orders: orders, notifier: notifier, now: time.Now}
}

// Get returns the order with the given ID.
func (s *Service) Get(ctx context.Context, id string) (*order.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// ListByUser returns the user's orders.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// Timeline returns the order's event history, oldest first.
func (s *Service) Timeline(ctx context.Context, orderID string) ([]order.Event, error) {
	return s.orders.ListEvents(ctx, orderID)
}

// MarkPaid records payment capture and moves the order to paid.
func (s *Service) MarkPaid(ctx context.Context, id string) (*order.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := order.Transition(o.Status, order.StatusPaid); err != nil {
		return nil, err
	}
	if err := s.orders.UpdateStatus(ctx, o.ID, o.Status, order.StatusPaid); err != nil {
		return nil, errors.Wrap(err, "update status")
	}
	if err := s.orders.SetPaymentStatus(ctx, o.ID, order.PaymentCaptured); err != nil {
		return nil, errors.Wrap(err, "set payment status")
	}
	o.Status = order.StatusPaid
	o.PaymentStatus = order.PaymentCaptured

	s.appendEvent(ctx, o, order.EventPaymentCaptured, nil)
	s.notifier.Notify(ctx, o.UserID, "Payment received",
		fmt.Sprintf("Payment for order #%d was captured.", o.Number))
	return o, nil
}

// UpdateStatus transitions the order to the requested status. A transition
// absent from the table fails with *order.InvalidTransitionError and leaves
// the order untouched.
func (s *Service) UpdateStatus(ctx context.Context, id string, to order.Status, note string) (*order.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, o, to); err != nil {
		return nil, err
	}

	var meta map[string]string
	if note != "" {
		meta = map[string]string{order.MetaNote: note}
	}
	s.appendEvent(ctx, o, order.EventStatusChanged, meta)
	s.notifier.Notify(ctx, o.UserID, "Order update",
		fmt.Sprintf("Order #%d is now %s.", o.Number, o.Status))
	return o, nil
}

// ApplyTrackingUpdate records a carrier scan. The carrier status is mapped
// onto an order status; when the mapped status differs and the edge exists
// in the transition table the order moves, otherwise only the tracking
// event is appended.
func (s *Service) ApplyTrackingUpdate(ctx context.Context, id string, upd TrackingUpdate) (*order.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Carrier != "" && upd.TrackingNumber != "" {
		t := order.Tracking{Carrier: upd.Carrier, Number: upd.TrackingNumber}
		if err := s.orders.SetTracking(ctx, o.ID, t); err != nil {
			return nil, errors.Wrap(err, "set tracking")
		}
		o.Tracking = t
	}

	mapped := lifecycle.OrderStatusForShipment(upd.Status)
	if mapped != o.Status && order.CanTransition(o.Status, mapped) {
		if err := s.transition(ctx, o, mapped); err != nil {
			return nil, err
		}
	}

	meta := map[string]string{
		order.MetaCarrier:        upd.Carrier,
		order.MetaTrackingNumber: upd.TrackingNumber,
	}
	if upd.Location != "" {
		meta[order.MetaLocation] = upd.Location
	}
	s.appendEvent(ctx, o, order.EventTrackingUpdated, meta)

	if o.Status == order.StatusDelivered {
		s.notifier.Notify(ctx, o.UserID, "Order delivered",
			fmt.Sprintf("Order #%d was delivered.", o.Number))
	}
	return o, nil
}

// transition applies a validated status change and stamps the delivery or
// cancellation timestamp when the target status calls for one.
func (s *Service) transition(ctx context.Context, o *order.Order, to order.Status) error {
	next, err := order.Transition(o.Status, to)
	if err != nil {
		return err
	}
	if err := s.orders.UpdateStatus(ctx, o.ID, o.Status, next); err != nil {
		return errors.Wrap(err, "update status")
	}
	o.Status = next

	now := s.now()
	switch next {
	case order.StatusDelivered:
		if err := s.orders.SetDeliveredAt(ctx, o.ID, now); err != nil {
			return errors.Wrap(err, "set delivered timestamp")
		}
		o.DeliveredAt = &now
	case order.StatusCancelled:
		if err := s.orders.SetCancelledAt(ctx, o.ID, now); err != nil {
			return errors.Wrap(err, "set cancelled timestamp")
		}
		o.CancelledAt = &now
	}
	return nil
}

// appendEvent writes a timeline entry. Timeline failures are logged but do
// not roll back the status change that triggered them.
func (s *Service) appendEvent(ctx context.Context, o *order.Order, typ order.EventType, meta map[string]string) {
	ev := order.Event{
		ID:        uuid.New().String(),
		Type:      typ,
		Status:    o.Status,
		Metadata:  meta,
		CreatedAt: s.now(),
	}
	ev.Message = lifecycle.EventMessage(ev)
	if err := s.orders.AppendEvent(ctx, o.ID, ev); err != nil {
		zctx.From(ctx).Warn("append order event failed",
			zap.String("order_id", o.ID),
			zap.String("event_type", string(typ)),
			zap.Error(err),
		)
	}
}
