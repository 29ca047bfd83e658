package lifecycle

import (
	"fmt"

	"github.com/solemart/storefront/internal/domain/order"
)

// EventMessage renders a human-readable description of a timeline event,
// interpolating whatever metadata the event carries. Events with no usable
// metadata get a generic per-type message.
func EventMessage(ev order.Event) string {
	meta := func(key string) string {
		if ev.Metadata == nil {
			return ""
		}
		return ev.Metadata[key]
	}

	switch ev.Type {
	case order.EventCreated:
		return "Order placed."
	case order.EventPaymentCaptured:
		return "Payment captured."
	case order.EventStatusChanged:
		if note := meta(order.MetaNote); note != "" {
			return fmt.Sprintf("Order status changed to %s: %s", ev.Status, note)
		}
		return fmt.Sprintf("Order status changed to %s.", ev.Status)
	case order.EventTrackingUpdated:
		carrier := meta(order.MetaCarrier)
		number := meta(order.MetaTrackingNumber)
		location := meta(order.MetaLocation)
		switch {
		case carrier != "" && number != "" && location != "":
			return fmt.Sprintf("Shipment %s (%s) scanned at %s.", number, carrier, location)
		case carrier != "" && number != "":
			return fmt.Sprintf("Shipment %s (%s) was updated.", number, carrier)
		default:
			return "Shipment tracking was updated."
		}
	case order.EventCancelRequested:
		if note := meta(order.MetaNote); note != "" {
			return fmt.Sprintf("Cancellation requested: %s", note)
		}
		return "Cancellation requested."
	case order.EventReturnRequested:
		if note := meta(order.MetaNote); note != "" {
			return fmt.Sprintf("Return requested: %s", note)
		}
		return "Return requested."
	case order.EventRequestDecided:
		if note := meta(order.MetaNote); note != "" {
			return fmt.Sprintf("Request decision: %s", note)
		}
		return "Request was reviewed."
	case order.EventRefundIssued:
		if amount := meta(order.MetaRefundAmount); amount != "" {
			return fmt.Sprintf("Refund of $%s issued.", amount)
		}
		return "Refund issued."
	case order.EventNoteAdded:
		if note := meta(order.MetaNote); note != "" {
			return note
		}
		return "Note added."
	default:
		return "Order updated."
	}
}
