package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/solemart/storefront/internal/domain/cart"
	"github.com/solemart/storefront/internal/domain/checkout"
	"github.com/solemart/storefront/internal/domain/coupon"
	"github.com/solemart/storefront/internal/domain/lifecycle"
	"github.com/solemart/storefront/internal/domain/order"
	"github.com/solemart/storefront/internal/domain/product"
	"github.com/solemart/storefront/internal/domain/returns"
)

// errorResponse is the uniform error envelope.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// writeDomainError maps domain errors onto HTTP status codes. Policy
// denials and impossible transitions are conflicts with the order's current
// state; bad input is 400 or 422; unknown entities are 404.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		denied      *returns.DeniedError
		transition  *order.InvalidTransitionError
		notFound    *checkout.ProductNotFoundError
		badQuantity *checkout.InvalidQuantityError
	)

	switch {
	case errors.As(err, &denied):
		writeError(w, http.StatusConflict, denied.Reason)
	case errors.As(err, &transition):
		writeError(w, http.StatusConflict, transition.Error())
	case errors.Is(err, returns.ErrNotPending),
		errors.Is(err, returns.ErrNotApproved):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, returns.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, checkout.ErrEmptyItems),
		errors.Is(err, cart.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound),
		errors.As(err, &badQuantity),
		errors.Is(err, coupon.ErrInvalidCoupon):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

type imageResponse struct {
	Thumbnail string `json:"thumbnail"`
	Mobile    string `json:"mobile"`
	Tablet    string `json:"tablet"`
	Desktop   string `json:"desktop"`
}

type productResponse struct {
	ID          string        `json:"id"`
	SKU         string        `json:"sku"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Price       float64       `json:"price"`
	Category    string        `json:"category"`
	Image       imageResponse `json:"image"`
}

func (h *Handler) toProductResponse(p product.Product) productResponse {
	base := h.imageBaseURL
	return productResponse{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Category:    p.Category,
		Image: imageResponse{
			Thumbnail: base + p.Image.Thumbnail,
			Mobile:    base + p.Image.Mobile,
			Tablet:    base + p.Image.Tablet,
			Desktop:   base + p.Image.Desktop,
		},
	}
}

type itemResponse struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
}

type orderResponse struct {
	ID            string         `json:"id"`
	Number        int64          `json:"number"`
	Items         []itemResponse `json:"items"`
	Subtotal      float64        `json:"subtotal"`
	Discount      float64        `json:"discount"`
	Shipping      float64        `json:"shipping"`
	Tax           float64        `json:"tax"`
	Total         float64        `json:"total"`
	Status        order.Status   `json:"status"`
	PaymentStatus string         `json:"payment_status"`
	CouponCode    string         `json:"coupon_code,omitempty"`
	Tracking      *order.Tracking `json:"tracking,omitempty"`
	TrackingURL   string         `json:"tracking_url,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	DeliveredAt   *time.Time     `json:"delivered_at,omitempty"`
	CancelledAt   *time.Time     `json:"cancelled_at,omitempty"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]itemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = itemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Category:  it.Category,
			UnitPrice: it.UnitPrice.InexactFloat64(),
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal.InexactFloat64(),
		}
	}
	resp := orderResponse{
		ID:            o.ID,
		Number:        o.Number,
		Items:         items,
		Subtotal:      o.Subtotal.InexactFloat64(),
		Discount:      o.Discount.InexactFloat64(),
		Shipping:      o.Shipping.InexactFloat64(),
		Tax:           o.Tax.InexactFloat64(),
		Total:         o.Total.InexactFloat64(),
		Status:        o.Status,
		PaymentStatus: string(o.PaymentStatus),
		CouponCode:    o.CouponCode,
		CreatedAt:     o.CreatedAt,
		DeliveredAt:   o.DeliveredAt,
		CancelledAt:   o.CancelledAt,
	}
	if o.Tracking.Number != "" {
		t := o.Tracking
		resp.Tracking = &t
		resp.TrackingURL = lifecycle.TrackingURL(t.Carrier, t.Number)
	}
	return resp
}

type refundResponse struct {
	Items          float64 `json:"items"`
	RestockFee     float64 `json:"restock_fee"`
	ShippingRefund float64 `json:"shipping_refund"`
	Total          float64 `json:"total"`
}

type requestResponse struct {
	ID           string                 `json:"id"`
	OrderID      string                 `json:"order_id"`
	Type         returns.Type           `json:"type"`
	Reason       lifecycle.Reason       `json:"reason"`
	Items        []lifecycle.ReturnItem `json:"items,omitempty"`
	Refund       refundResponse         `json:"refund"`
	FreeShipping bool                   `json:"free_return_shipping"`
	Status       returns.RequestStatus  `json:"status"`
	Note         string                 `json:"note,omitempty"`
	RequestedAt  time.Time              `json:"requested_at"`
	DecidedAt    *time.Time             `json:"decided_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}

func toRequestResponse(req *returns.Request) requestResponse {
	return requestResponse{
		ID:      req.ID,
		OrderID: req.OrderID,
		Type:    req.Type,
		Reason:  req.Reason,
		Items:   req.Items,
		Refund: refundResponse{
			Items:          req.Refund.Items.InexactFloat64(),
			RestockFee:     req.Refund.RestockFee.InexactFloat64(),
			ShippingRefund: req.Refund.ShippingRefund.InexactFloat64(),
			Total:          req.Refund.Total.InexactFloat64(),
		},
		FreeShipping: req.FreeShipping,
		Status:       req.Status,
		Note:         req.Note,
		RequestedAt:  req.RequestedAt,
		DecidedAt:    req.DecidedAt,
		CompletedAt:  req.CompletedAt,
	}
}
