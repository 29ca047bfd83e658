package order

import "time"

// EventType classifies entries on an order's timeline.
type EventType string

const (
	EventCreated         EventType = "created"
	EventPaymentCaptured EventType = "payment_captured"
	EventStatusChanged   EventType = "status_changed"
	EventTrackingUpdated EventType = "tracking_updated"
	EventCancelRequested EventType = "cancel_requested"
	EventReturnRequested EventType = "return_requested"
	EventRequestDecided  EventType = "request_decided"
	EventRefundIssued    EventType = "refund_issued"
	EventNoteAdded       EventType = "note_added"
)

// Event is one append-only entry on an order's timeline. Events are never
// mutated or removed once written.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Status    Status            `json:"status"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Well-known metadata keys interpolated into event messages.
const (
	MetaCarrier        = "carrier"
	MetaTrackingNumber = "tracking_number"
	MetaLocation       = "location"
	MetaRefundAmount   = "refund_amount"
	MetaNote           = "note"
)
