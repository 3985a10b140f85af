// Package handler serves the storefront JSON API on a net/http ServeMux.
package handler

import (
	"net/http"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "api_key"

// Deps are the domain services the API delegates to.
type Deps struct {
	Catalog   *catalog.Catalog
	Carts     *cart.Store
	Customers customer.Repository
	Pricing   *pricing.Calculator
	Payments  *payment.Processor
	Records   payment.Records
	Checkout  *checkout.Service
	Orders    *order.Service
	Auth      *auth.Authenticator
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// PaymentLimit throttles the routes that move money. Nil disables it.
	PaymentLimit httpmiddleware.Middleware
}

// Handler implements the storefront HTTP routes.
type Handler struct {
	Deps

	paymentLimit httpmiddleware.Middleware
}

// New constructs a Handler.
func New(cfg Config, deps Deps) *Handler {
	limit := cfg.PaymentLimit
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{
		Deps:         deps,
		paymentLimit: limit,
	}
}

// Register adds every API route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("GET /api/catalog", h.authenticated(h.getCatalog))

	mux.Handle("GET /api/cart", h.customer(h.getCart))
	mux.Handle("POST /api/cart/items", h.customer(h.addCartItem))
	mux.Handle("DELETE /api/cart", h.customer(h.clearCart))

	mux.Handle("POST /api/checkout", h.customer(h.beginCheckout))
	mux.Handle("GET /api/checkout/{id}", h.customer(h.getCheckout))
	mux.Handle("POST /api/checkout/{id}/confirm", h.customer(h.limited(h.confirmCheckout)))
	mux.Handle("DELETE /api/checkout/{id}", h.customer(h.cancelCheckout))

	mux.Handle("GET /api/account", h.customer(h.getAccount))
	mux.Handle("POST /api/account/payments", h.customer(h.limited(h.payBalance)))
	mux.Handle("GET /api/orders", h.customer(h.listOwnOrders))

	mux.Handle("GET /api/staff/orders", h.staff(h.listOrders))
	mux.Handle("POST /api/staff/orders/{number}/fulfill", h.staff(h.fulfillOrder))
	mux.Handle("GET /api/staff/customers", h.staff(h.listCustomers))
	mux.Handle("GET /api/staff/reports/sales", h.staff(h.salesReport))
	mux.Handle("GET /api/staff/reports/popular", h.staff(h.popularReport))
}

// limited applies the payment rate limit after authentication so the bucket
// can be keyed by principal.
func (h *Handler) limited(fn http.HandlerFunc) http.HandlerFunc {
	limited := h.paymentLimit(fn)
	return limited.ServeHTTP
}
