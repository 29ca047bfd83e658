package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solemart/storefront/internal/domain/checkout"
	"github.com/solemart/storefront/internal/domain/order"
	"github.com/solemart/storefront/internal/domain/product"
	"github.com/solemart/storefront/internal/domain/returns"
)

type fakeProductRepo struct {
	products []product.Product
}

func (f *fakeProductRepo) List(context.Context) ([]product.Product, error) {
	return f.products, nil
}

func (f *fakeProductRepo) ListByCategory(_ context.Context, category string) ([]product.Product, error) {
	var out []product.Product
	for _, p := range f.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	for i := range f.products {
		if f.products[i].ID == id {
			return &f.products[i], nil
		}
	}
	return nil, product.ErrNotFound
}

func (f *fakeProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, err := f.GetByID(context.Background(), id); err == nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func productRouter(repo product.Repository, imageBase string) chi.Router {
	h := New(Config{ImageBaseURL: imageBase}, repo, nil, nil, nil, nil)
	r := chi.NewRouter()
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	return r
}

func TestListProducts(t *testing.T) {
	repo := &fakeProductRepo{products: []product.Product{
		{ID: "p1", Name: "Waffle", Price: decimal.NewFromFloat(6.5), Category: "waffle",
			Image: product.Image{Thumbnail: "/waffle-thumb.jpg"}},
		{ID: "p2", Name: "Cake", Price: decimal.NewFromFloat(4.25), Category: "cake"},
	}}

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	w := httptest.NewRecorder()
	productRouter(repo, "https://cdn.example.com").ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body []productResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body, 2)
	assert.Equal(t, "p1", body[0].ID)
	assert.InDelta(t, 6.5, body[0].Price, 1e-9)
	assert.Equal(t, "https://cdn.example.com/waffle-thumb.jpg", body[0].Image.Thumbnail)
}

func TestListProducts_ByCategory(t *testing.T) {
	repo := &fakeProductRepo{products: []product.Product{
		{ID: "p1", Category: "waffle"},
		{ID: "p2", Category: "cake"},
	}}

	req := httptest.NewRequest(http.MethodGet, "/products?category=cake", nil)
	w := httptest.NewRecorder()
	productRouter(repo, "").ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body []productResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body, 1)
	assert.Equal(t, "p2", body[0].ID)
}

func TestGetProduct_NotFound(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products/nope", nil)
	w := httptest.NewRecorder()
	productRouter(&fakeProductRepo{}, "").ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWriteDomainError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"policy denial", &returns.DeniedError{Reason: "cancellation window has passed"}, http.StatusConflict},
		{"invalid transition", &order.InvalidTransitionError{From: order.StatusPaid, To: order.StatusShipped}, http.StatusConflict},
		{"request not pending", returns.ErrNotPending, http.StatusConflict},
		{"unknown order", order.ErrNotFound, http.StatusNotFound},
		{"unknown product", product.ErrNotFound, http.StatusNotFound},
		{"unknown request", returns.ErrNotFound, http.StatusNotFound},
		{"empty items", checkout.ErrEmptyItems, http.StatusBadRequest},
		{"bad quantity", &checkout.InvalidQuantityError{ProductID: "p1"}, http.StatusUnprocessableEntity},
		{"missing product", &checkout.ProductNotFoundError{ProductID: "p1"}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/", nil)

			writeDomainError(w, r, tt.err)

			assert.Equal(t, tt.want, w.Code)

			var body errorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.want, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestDecodeTrackingPayload(t *testing.T) {
	payload := []byte(`{
		"order_id": "ord-1",
		"carrier": "ups",
		"tracking_number": "1Z999",
		"status": "out_for_delivery",
		"location": "Springfield, IL",
		"signature_required": true
	}`)

	p, err := decodeTrackingPayload(payload)
	require.NoError(t, err)

	assert.Equal(t, "ord-1", p.OrderID)
	assert.Equal(t, "ups", p.Carrier)
	assert.Equal(t, "1Z999", p.TrackingNumber)
	assert.Equal(t, "out_for_delivery", p.Status)
	assert.Equal(t, "Springfield, IL", p.Location)
}

func TestDecodeTrackingPayload_Invalid(t *testing.T) {
	_, err := decodeTrackingPayload([]byte(`{"order_id": 42`))
	assert.Error(t, err)
}
