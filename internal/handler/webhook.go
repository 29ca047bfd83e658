package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/solemart/storefront/internal/domain/fulfillment"
	"github.com/solemart/storefront/internal/domain/lifecycle"
)

// trackingPayload is a carrier callback. Carriers disagree on field sets, so
// unknown keys are skipped rather than rejected.
type trackingPayload struct {
	OrderID        string
	Carrier        string
	TrackingNumber string
	Status         string
	Location       string
}

func decodeTrackingPayload(body []byte) (trackingPayload, error) {
	var p trackingPayload
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var (
			v   string
			err error
		)
		switch key {
		case "order_id":
			v, err = d.Str()
			p.OrderID = v
		case "carrier":
			v, err = d.Str()
			p.Carrier = v
		case "tracking_number":
			v, err = d.Str()
			p.TrackingNumber = v
		case "status":
			v, err = d.Str()
			p.Status = v
		case "location":
			v, err = d.Str()
			p.Location = v
		default:
			err = d.Skip()
		}
		return err
	})
	return p, err
}

// trackingWebhook ingests a carrier status callback. The shipment status is
// mapped onto the order state machine; unknown carrier statuses still land
// on the timeline without moving the order.
func (h *Handler) trackingWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	payload, err := decodeTrackingPayload(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}
	if payload.OrderID == "" {
		writeError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	o, err := h.fulfillment.ApplyTrackingUpdate(r.Context(), payload.OrderID, fulfillment.TrackingUpdate{
		Carrier:        payload.Carrier,
		TrackingNumber: payload.TrackingNumber,
		Status:         lifecycle.ShippingStatus(payload.Status),
		Location:       payload.Location,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
