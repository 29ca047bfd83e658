// Package returns manages cancellation and return requests: eligibility
// gating through the lifecycle rules engine, refund computation, and the
// pending -> approved/rejected -> completed request lifecycle.
package returns

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/solemart/storefront/internal/domain/lifecycle"
)

var (
	// ErrNotFound is returned when a request does not exist.
	ErrNotFound = errors.New("request not found")
	// ErrNotPending is returned when approving or rejecting a request that
	// was already decided.
	ErrNotPending = errors.New("request is not pending")
	// ErrNotApproved is returned when completing a request that was never
	// approved. Completed requests are terminal.
	ErrNotApproved = errors.New("request is not approved")
)

// DeniedError carries a business-policy denial out of the service layer.
// The reason is user-presentable.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return e.Reason
}

// Type discriminates cancellation requests from return requests.
type Type string

const (
	TypeCancellation Type = "cancellation"
	TypeReturn       Type = "return"
)

// RequestStatus is the request's own lifecycle state.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestCompleted RequestStatus = "completed"
)

// Request is a customer's cancellation or return request together with the
// refund computed for it at request time.
type Request struct {
	ID           string
	OrderID      string
	UserID       string
	Type         Type
	Reason       lifecycle.Reason
	Items        []lifecycle.ReturnItem
	Refund       lifecycle.RefundBreakdown
	FreeShipping bool
	Status       RequestStatus
	Note         string
	RequestedAt  time.Time
	DecidedAt    *time.Time
	CompletedAt  *time.Time
}

// Repository persists requests.
type Repository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id string) (*Request, error)
	ListByOrder(ctx context.Context, orderID string) ([]Request, error)
	ListByStatus(ctx context.Context, status RequestStatus) ([]Request, error)
	Update(ctx context.Context, r *Request) error
}
