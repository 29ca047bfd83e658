package returns

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

// Service drives cancellation and return requests through their lifecycle.
type Service struct {
	requests Repository
	orders   order.Repository
	engine   *lifecycle.Engine
	notifier notify.Notifier
	now      func() time.Time
}

// NewService creates a returns Service.
func NewService(
	requests Repository,
	orders order.Repository,
	engine *lifecycle.Engine,
	notifier notify.Notifier,
) *Service {
	return &Service{
		requests: requests,
		orders:   orders,
		engine:   engine,
		notifier: notifier,
		now:      time.Now,
	}
}

// Get returns the request with the given ID.
func (s *Service) Get(ctx context.Context, id string) (*Request, error) {
	return s.requests.GetByID(ctx, id)
}

// ListByOrder returns all requests filed against an order.
func (s *Service) ListByOrder(ctx context.Context, orderID string) ([]Request, error) {
	return s.requests.ListByOrder(ctx, orderID)
}

// ListPending returns requests awaiting a decision.
func (s *Service) ListPending(ctx context.Context) ([]Request, error) {
	return s.requests.ListByStatus(ctx, RequestPending)
}

// RequestCancellation files a cancellation request for the order. The
// lifecycle engine gates eligibility; denials surface as *DeniedError with
// the user-presentable reason. The refund amount is computed up front.
func (s *Service) RequestCancellation(ctx context.Context, orderID string, reason lifecycle.Reason, note string) (*Request, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if d := s.engine.CanCancel(o, now); !d.Allowed {
		return nil, &DeniedError{Reason: d.Reason}
	}

	refund := s.engine.CancellationRefund(o)
	req := &Request{
		ID:          uuid.New().String(),
		OrderID:     o.ID,
		UserID:      o.UserID,
		Type:        TypeCancellation,
		Reason:      reason,
		Refund:      lifecycle.RefundBreakdown{Total: refund},
		Status:      RequestPending,
		Note:        note,
		RequestedAt: now,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, errors.Wrap(err, "create cancellation request")
	}

	s.appendEvent(ctx, o, order.EventCancelRequested, map[string]string{
		order.MetaNote: string(reason),
	})
	s.notifier.Notify(ctx, o.UserID, "Cancellation requested",
		fmt.Sprintf("We received your cancellation request for order #%d.", o.Number))
	return req, nil
}

// RequestReturn files a return request for the given items. Eligibility is
// gated by the engine (status, delivery, window) plus per-item checks:
// every item must reference an order line, stay within its purchased
// quantity, and belong to a returnable category. The order moves to
// return_requested.
func (s *Service) RequestReturn(ctx context.Context, orderID string, items []lifecycle.ReturnItem, reason lifecycle.Reason, note string) (*Request, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if d := s.engine.CanReturn(o, now); !d.Allowed {
		return nil, &DeniedError{Reason: d.Reason}
	}
	if len(items) == 0 {
		return nil, &DeniedError{Reason: "no items to return"}
	}
	for _, ret := range items {
		line, ok := findLine(o.Items, ret.ProductID)
		if !ok {
			return nil, &DeniedError{Reason: fmt.Sprintf("product %s is not part of this order", ret.ProductID)}
		}
		if ret.Quantity <= 0 || ret.Quantity > line.Quantity {
			return nil, &DeniedError{Reason: fmt.Sprintf("invalid return quantity for product %s", ret.ProductID)}
		}
		if !s.engine.ProductReturnable(line.Category) {
			return nil, &DeniedError{Reason: fmt.Sprintf("%s items cannot be returned", line.Category)}
		}
	}

	refund := s.engine.ReturnRefund(o, items, reason)
	req := &Request{
		ID:           uuid.New().String(),
		OrderID:      o.ID,
		UserID:       o.UserID,
		Type:         TypeReturn,
		Reason:       reason,
		Items:        items,
		Refund:       refund,
		FreeShipping: s.engine.FreeReturnShipping(o, reason),
		Status:       RequestPending,
		Note:         note,
		RequestedAt:  now,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, errors.Wrap(err, "create return request")
	}

	if err := s.transition(ctx, o, order.StatusReturnRequested); err != nil {
		return nil, err
	}
	s.appendEvent(ctx, o, order.EventReturnRequested, map[string]string{
		order.MetaNote: string(reason),
	})
	s.notifier.Notify(ctx, o.UserID, "Return requested",
		fmt.Sprintf("We received your return request for order #%d. Estimated refund: $%s.",
			o.Number, refund.Total.StringFixed(2)))
	return req, nil
}

// Approve moves a pending request to approved. An approved cancellation
// cancels the order immediately; an approved return waits for the package
// before Complete issues the refund.
func (s *Service) Approve(ctx context.Context, requestID, note string) (*Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != RequestPending {
		return nil, ErrNotPending
	}

	now := s.now()
	req.Status = RequestApproved
	req.DecidedAt = &now
	if note != "" {
		req.Note = note
	}
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, errors.Wrap(err, "update request")
	}

	o, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if req.Type == TypeCancellation {
		if err := s.transition(ctx, o, order.StatusCancelled); err != nil {
			return nil, err
		}
	}
	s.appendEvent(ctx, o, order.EventRequestDecided, map[string]string{
		order.MetaNote: fmt.Sprintf("%s request approved", req.Type),
	})
	s.notifier.Notify(ctx, req.UserID, "Request approved",
		fmt.Sprintf("Your %s request for order #%d was approved.", req.Type, o.Number))
	return req, nil
}

// Reject moves a pending request to rejected. A rejected return releases
// the order back to delivered.
func (s *Service) Reject(ctx context.Context, requestID, note string) (*Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != RequestPending {
		return nil, ErrNotPending
	}

	now := s.now()
	req.Status = RequestRejected
	req.DecidedAt = &now
	if note != "" {
		req.Note = note
	}
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, errors.Wrap(err, "update request")
	}

	o, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if req.Type == TypeReturn && o.Status == order.StatusReturnRequested {
		if err := s.transition(ctx, o, order.StatusDelivered); err != nil {
			return nil, err
		}
	}
	s.appendEvent(ctx, o, order.EventRequestDecided, map[string]string{
		order.MetaNote: fmt.Sprintf("%s request rejected", req.Type),
	})
	s.notifier.Notify(ctx, req.UserID, "Request rejected",
		fmt.Sprintf("Your %s request for order #%d was rejected.", req.Type, o.Number))
	return req, nil
}

// Complete finishes an approved request once the refund is issued: the
// order moves to refunded (cancellation, or a return covering the whole
// order) or partially_refunded (partial return), the payment is marked
// refunded, and a refund event carrying the amount lands on the timeline.
// Completed requests are terminal.
func (s *Service) Complete(ctx context.Context, requestID string) (*Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != RequestApproved {
		return nil, ErrNotApproved
	}

	o, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	switch req.Type {
	case TypeCancellation:
		// Order was cancelled at approval; cancelled -> refunded.
		if err := s.transition(ctx, o, order.StatusRefunded); err != nil {
			return nil, err
		}
	case TypeReturn:
		if err := s.transition(ctx, o, order.StatusReturned); err != nil {
			return nil, err
		}
		final := order.StatusRefunded
		if !coversWholeOrder(o, req.Items) {
			final = order.StatusPartiallyRefunded
		}
		if err := s.transition(ctx, o, final); err != nil {
			return nil, err
		}
	}
	if err := s.orders.SetPaymentStatus(ctx, o.ID, order.PaymentRefunded); err != nil {
		return nil, errors.Wrap(err, "set payment status")
	}

	now := s.now()
	req.Status = RequestCompleted
	req.CompletedAt = &now
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, errors.Wrap(err, "update request")
	}

	s.appendEvent(ctx, o, order.EventRefundIssued, map[string]string{
		order.MetaRefundAmount: req.Refund.Total.StringFixed(2),
	})
	s.notifier.Notify(ctx, req.UserID, "Refund issued",
		fmt.Sprintf("A refund of $%s for order #%d is on its way.",
			req.Refund.Total.StringFixed(2), o.Number))
	return req, nil
}

func (s *Service) transition(ctx context.Context, o *order.Order, to order.Status) error {
	next, err := order.Transition(o.Status, to)
	if err != nil {
		return err
	}
	if err := s.orders.UpdateStatus(ctx, o.ID, o.Status, next); err != nil {
		return errors.Wrap(err, "update status")
	}
	o.Status = next
	if next == order.StatusCancelled {
		now := s.now()
		if err := s.orders.SetCancelledAt(ctx, o.ID, now); err != nil {
			return errors.Wrap(err, "set cancelled timestamp")
		}
		o.CancelledAt = &now
	}
	return nil
}

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

// coversWholeOrder reports whether the returned items account for every
// unit on the order.
func coversWholeOrder(o *order.Order, items []lifecycle.ReturnItem) bool {
	returned := make(map[string]int, len(items))
	for _, it := range items {
		returned[it.ProductID] += it.Quantity
	}
	for _, line := range o.Items {
		if returned[line.ProductID] < line.Quantity {
			return false
		}
	}
	return true
}

func findLine(items []order.Item, productID string) (order.Item, bool) {
	for _, it := range items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return order.Item{}, false
}
