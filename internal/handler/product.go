package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/solemart/storefront/internal/domain/product"
)

// listProducts returns the catalog, optionally filtered by ?category=.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	var (
		ps  []product.Product
		err error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		ps, err = h.products.ListByCategory(r.Context(), category)
	} else {
		ps, err = h.products.List(r.Context())
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]productResponse, len(ps))
	for i, p := range ps {
		out[i] = h.toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toProductResponse(*p))
}
