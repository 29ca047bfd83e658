// Package handler exposes the storefront API over HTTP. Handlers decode
// requests, delegate to the domain services, and map domain errors onto
// status codes.
package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/solemart/storefront/internal/domain/cart"
	"github.com/solemart/storefront/internal/domain/checkout"
	"github.com/solemart/storefront/internal/domain/fulfillment"
	"github.com/solemart/storefront/internal/domain/product"
	"github.com/solemart/storefront/internal/domain/returns"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product
	// responses. When empty, paths are returned as stored.
	ImageBaseURL string
}

// Handler bundles the HTTP endpoints for the storefront API.
type Handler struct {
	products     product.Repository
	carts        *cart.Service
	checkout     *checkout.Service
	fulfillment  *fulfillment.Service
	returns      *returns.Service
	imageBaseURL string
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	carts *cart.Service,
	checkoutSvc *checkout.Service,
	fulfillmentSvc *fulfillment.Service,
	returnsSvc *returns.Service,
) *Handler {
	return &Handler{
		products:     products,
		carts:        carts,
		checkout:     checkoutSvc,
		fulfillment:  fulfillmentSvc,
		returns:      returnsSvc,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes assembles the API router. The catalog is public; cart and order
// endpoints need a storefront key; decision endpoints and the carrier
// webhook need an admin key.
func (h *Handler) Routes(sec *Security) chi.Router {
	r := chi.NewRouter()

	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)

	r.Group(func(r chi.Router) {
		r.Use(sec.Authenticate, RequireScope(ScopeStorefront))

		r.Get("/cart", h.getCart)
		r.Put("/cart", h.putCartItem)
		r.Delete("/cart", h.clearCart)
		r.Post("/cart/merge", h.mergeCart)

		r.Post("/orders", h.placeOrder)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Get("/orders/{id}/events", h.listOrderEvents)
		r.Post("/orders/{id}/cancel", h.requestCancellation)
		r.Post("/orders/{id}/return", h.requestReturn)
	})

	r.Group(func(r chi.Router) {
		r.Use(sec.Authenticate, RequireScope(ScopeAdmin))

		r.Patch("/orders/{id}/status", h.updateOrderStatus)
		r.Get("/returns", h.listPendingRequests)
		r.Get("/returns/{id}", h.getRequest)
		r.Post("/returns/{id}/approve", h.approveRequest)
		r.Post("/returns/{id}/reject", h.rejectRequest)
		r.Post("/returns/{id}/complete", h.completeRequest)
		r.Post("/webhooks/tracking", h.trackingWebhook)
	})

	return r
}
