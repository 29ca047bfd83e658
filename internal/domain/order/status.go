package order

import "fmt"

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPendingPayment    Status = "pending_payment"
	StatusPaid              Status = "paid"
	StatusProcessing        Status = "processing"
	StatusShipped           Status = "shipped"
	StatusInTransit         Status = "in_transit"
	StatusOutForDelivery    Status = "out_for_delivery"
	StatusDelivered         Status = "delivered"
	StatusReturnRequested   Status = "return_requested"
	StatusReturned          Status = "returned"
	StatusCancelled         Status = "cancelled"
	StatusRefunded          Status = "refunded"
	StatusPartiallyRefunded Status = "partially_refunded"
)

// transitions is the fixed adjacency table for order status changes. A status
// missing from the table (or an empty set) accepts no further transitions.
var transitions = map[Status][]Status{
	StatusPendingPayment:  {StatusPaid, StatusCancelled},
	StatusPaid:            {StatusProcessing, StatusCancelled},
	StatusProcessing:      {StatusShipped, StatusCancelled},
	StatusShipped:         {StatusInTransit, StatusOutForDelivery, StatusDelivered, StatusCancelled},
	StatusInTransit:       {StatusOutForDelivery, StatusDelivered, StatusCancelled},
	StatusOutForDelivery:  {StatusDelivered},
	StatusDelivered:       {StatusReturnRequested},
	StatusReturnRequested: {StatusReturned, StatusDelivered},
	StatusReturned:        {StatusRefunded, StatusPartiallyRefunded},
	StatusCancelled:       {StatusRefunded},
}

// InvalidTransitionError reports an attempted status change that is not in
// the transition table. It aborts the surrounding operation; the order is
// left untouched.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order status transition %s -> %s", e.From, e.To)
}

// CanTransition reports whether the from -> to edge exists in the table.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates the edge and returns the new status, or an
// *InvalidTransitionError when the edge is absent.
func Transition(from, to Status) (Status, error) {
	if !CanTransition(from, to) {
		return from, &InvalidTransitionError{From: from, To: to}
	}
	return to, nil
}

// IsTerminal reports whether no transition leaves the given status.
// Cancelled and returned are not terminal in this sense: they still admit
// the single refund-completion edge driven by the returns service.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}
