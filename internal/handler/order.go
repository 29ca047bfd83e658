package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/solemart/storefront/internal/domain/checkout"
	"github.com/solemart/storefront/internal/domain/lifecycle"
	"github.com/solemart/storefront/internal/domain/order"
)

type lineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// placeOrder creates an order from the request body's items, falling back to
// the caller's saved cart when no items are given. The cart is cleared after
// a successful cart checkout.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items      []lineRequest `json:"items"`
		CouponCode string        `json:"coupon_code"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	identity := IdentityFromContext(r.Context())

	fromCart := len(req.Items) == 0
	if fromCart {
		c, err := h.carts.Get(r.Context(), identity.UserID)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		for _, item := range c.Items {
			req.Items = append(req.Items, lineRequest{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}
	}

	lines := make([]checkout.LineInput, len(req.Items))
	for i, item := range req.Items {
		lines[i] = checkout.LineInput{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	result, err := h.checkout.PlaceOrder(r.Context(), checkout.PlaceOrderRequest{
		UserID:     identity.UserID,
		Items:      lines,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if fromCart {
		if err := h.carts.Clear(r.Context(), identity.UserID); err != nil {
			zctx.From(r.Context()).Warn("clear cart after checkout",
				zap.String("user_id", identity.UserID),
				zap.Error(err),
			)
		}
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result.Order))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())

	orders, err := h.fulfillment.ListByUser(r.Context(), identity.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// loadOwnOrder fetches the order and hides other customers' orders behind a
// 404 so order IDs cannot be probed.
func (h *Handler) loadOwnOrder(w http.ResponseWriter, r *http.Request) (*order.Order, bool) {
	o, err := h.fulfillment.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return nil, false
	}

	identity := IdentityFromContext(r.Context())
	if o.UserID != identity.UserID && !identity.HasScope(ScopeAdmin) {
		writeError(w, http.StatusNotFound, order.ErrNotFound.Error())
		return nil, false
	}
	return o, true
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.loadOwnOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) listOrderEvents(w http.ResponseWriter, r *http.Request) {
	o, ok := h.loadOwnOrder(w, r)
	if !ok {
		return
	}

	events, err := h.fulfillment.Timeline(r.Context(), o.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) requestCancellation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
		Note   string `json:"note"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	o, ok := h.loadOwnOrder(w, r)
	if !ok {
		return
	}

	request, err := h.returns.RequestCancellation(r.Context(), o.ID, lifecycle.Reason(req.Reason), req.Note)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestResponse(request))
}

func (h *Handler) requestReturn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items  []lifecycle.ReturnItem `json:"items"`
		Reason string                 `json:"reason"`
		Note   string                 `json:"note"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items required")
		return
	}

	o, ok := h.loadOwnOrder(w, r)
	if !ok {
		return
	}

	request, err := h.returns.RequestReturn(r.Context(), o.ID, req.Items, lifecycle.Reason(req.Reason), req.Note)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestResponse(request))
}

// updateOrderStatus is the admin endpoint driving manual fulfillment steps
// such as paid -> processing. "paid" routes through MarkPaid so the payment
// capture is recorded alongside the status change.
func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	id := chi.URLParam(r, "id")

	var (
		o   *order.Order
		err error
	)
	if order.Status(req.Status) == order.StatusPaid {
		o, err = h.fulfillment.MarkPaid(r.Context(), id)
	} else {
		o, err = h.fulfillment.UpdateStatus(r.Context(), id, order.Status(req.Status), req.Note)
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
