package lifecycle

import (
	"fmt"
	"strings"

	"github.com/solemart/storefront/internal/domain/order"
)

// ShippingStatus is a carrier-reported shipment state, distinct from the
// order's own status.
type ShippingStatus string

const (
	ShipLabelCreated     ShippingStatus = "label_created"
	ShipPickedUp         ShippingStatus = "picked_up"
	ShipInTransit        ShippingStatus = "in_transit"
	ShipOutForDelivery   ShippingStatus = "out_for_delivery"
	ShipDelivered        ShippingStatus = "delivered"
	ShipReturnedToSender ShippingStatus = "returned_to_sender"
)

// OrderStatusForShipment maps a carrier-reported shipping status onto the
// order status it implies. Unknown carrier values fall back to processing.
func OrderStatusForShipment(s ShippingStatus) order.Status {
	switch s {
	case ShipLabelCreated, ShipPickedUp:
		return order.StatusShipped
	case ShipInTransit:
		return order.StatusInTransit
	case ShipOutForDelivery:
		return order.StatusOutForDelivery
	case ShipDelivered:
		return order.StatusDelivered
	case ShipReturnedToSender:
		return order.StatusCancelled
	default:
		return order.StatusProcessing
	}
}

// TrackingURL returns the carrier's public tracking page for a shipment, or
// an empty string for carriers without a known URL template.
func TrackingURL(carrier, trackingNumber string) string {
	switch strings.ToLower(carrier) {
	case "ups":
		return fmt.Sprintf("https://www.ups.com/track?tracknum=%s", trackingNumber)
	case "fedex":
		return fmt.Sprintf("https://www.fedex.com/fedextrack/?trknbr=%s", trackingNumber)
	case "usps":
		return fmt.Sprintf("https://tools.usps.com/go/TrackConfirmAction?tLabels=%s", trackingNumber)
	case "dhl":
		return fmt.Sprintf("https://www.dhl.com/en/express/tracking.html?AWB=%s", trackingNumber)
	default:
		return ""
	}
}
