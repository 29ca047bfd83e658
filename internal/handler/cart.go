package handler

import (
	"net/http"
	"time"

	"github.com/solemart/storefront/internal/domain/cart"
)

type cartResponse struct {
	Items     []cart.Item `json:"items"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func toCartResponse(c *cart.Cart) cartResponse {
	items := c.Items
	if items == nil {
		items = []cart.Item{}
	}
	return cartResponse{Items: items, UpdatedAt: c.UpdatedAt}
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())

	c, err := h.carts.Get(r.Context(), identity.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// putCartItem sets the quantity of one cart line. Quantity zero removes the
// line.
func (h *Handler) putCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	// Reject unknown products up front so carts stay orderable.
	if _, err := h.products.GetByID(r.Context(), req.ProductID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	identity := IdentityFromContext(r.Context())
	c, err := h.carts.SetItem(r.Context(), identity.UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())

	if err := h.carts.Clear(r.Context(), identity.UserID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mergeCart folds an anonymous session cart into the authenticated user's
// cart after login.
func (h *Handler) mergeCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AnonymousID string `json:"anonymous_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AnonymousID == "" {
		writeError(w, http.StatusBadRequest, "anonymous_id is required")
		return
	}

	identity := IdentityFromContext(r.Context())
	c, err := h.carts.Merge(r.Context(), req.AnonymousID, identity.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}
