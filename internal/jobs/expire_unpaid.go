package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/solemart/storefront/internal/domain/fulfillment"
	"github.com/solemart/storefront/internal/domain/order"
)

// staleOrderLister finds orders stuck in a status since before a cutoff.
type staleOrderLister interface {
	ListStaleByStatus(ctx context.Context, status order.Status, cutoff time.Time) ([]order.Order, error)
}

// ExpireUnpaidOrders cancels orders that sat in pending_payment longer than
// the TTL. Cancellation goes through the fulfillment service so the usual
// transition rules apply and a timeline event is written. Orders that moved
// on concurrently fail the guarded transition and are skipped.
type ExpireUnpaidOrders struct {
	orders      staleOrderLister
	fulfillment *fulfillment.Service
	ttl         time.Duration
	lg          *zap.Logger
	now         func() time.Time
}

func NewExpireUnpaidOrders(orders staleOrderLister, f *fulfillment.Service, ttl time.Duration, lg *zap.Logger) *ExpireUnpaidOrders {
	return &ExpireUnpaidOrders{
		orders:      orders,
		fulfillment: f,
		ttl:         ttl,
		lg:          lg,
		now:         time.Now,
	}
}

func (j *ExpireUnpaidOrders) Name() string { return "expire-unpaid-orders" }

func (j *ExpireUnpaidOrders) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.ttl)

	stale, err := j.orders.ListStaleByStatus(ctx, order.StatusPendingPayment, cutoff)
	if err != nil {
		return err
	}

	cancelled := 0
	for i := range stale {
		_, err := j.fulfillment.UpdateStatus(ctx, stale[i].ID, order.StatusCancelled, "payment not received in time")
		if err != nil {
			j.lg.Warn("expire unpaid order",
				zap.String("order_id", stale[i].ID),
				zap.Error(err),
			)
			continue
		}
		cancelled++
	}

	if cancelled > 0 {
		j.lg.Info("expired unpaid orders", zap.Int("cancelled", cancelled))
	}
	return nil
}
