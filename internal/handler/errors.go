package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/money"
)

// requestError is a malformed request: bad JSON, a wrong field type or an
// unparsable query parameter.
type requestError struct {
	Field string
	Err   error
}

func (e *requestError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Err.Error()
	}
	return "invalid " + e.Field + ": " + e.Err.Error()
}

func (e *requestError) Unwrap() error {
	return e.Err
}

func badRequest(field string, err error) error {
	return &requestError{Field: field, Err: err}
}

// apiError is the rendered form of a domain error.
type apiError struct {
	status  int
	message string
	field   string
	extra   func(e *jx.Encoder)
}

// mapError converts domain errors to HTTP responses. ok is false for
// unexpected errors.
func mapError(err error) (apiError, bool) {
	var (
		reqErr      *requestError
		validErr    *payment.ValidationError
		qtyErr      *cart.InvalidQuantityError
		priceErr    *cart.InvalidPriceError
		kindErr     *cart.UnknownKindError
		catalogErr  *catalog.NotFoundError
		boxErr      *catalog.BoxContentsError
		deliveryErr *pricing.DeliveryUnavailableError
		limitErr    *payment.CreditLimitExceededError
		notFoundErr *order.NotFoundError
		fulfilled   *order.AlreadyFulfilledError
		commitErr   *payment.CommitError
	)
	switch {
	// Commit failures may wrap lookup errors that would otherwise map to 404.
	case errors.As(err, &commitErr):
		return apiError{status: http.StatusInternalServerError, message: "payment could not be committed"}, false
	case errors.As(err, &reqErr):
		return apiError{status: http.StatusBadRequest, message: reqErr.Error(), field: reqErr.Field}, true
	case errors.Is(err, auth.ErrUnauthorized):
		return apiError{status: http.StatusUnauthorized, message: "unauthorized"}, true
	case errors.Is(err, auth.ErrForbidden):
		return apiError{status: http.StatusForbidden, message: "forbidden"}, true

	case errors.As(err, &validErr):
		return apiError{status: http.StatusUnprocessableEntity, message: validErr.Error(), field: validErr.Field}, true
	case errors.As(err, &qtyErr):
		return apiError{status: http.StatusUnprocessableEntity, message: qtyErr.Error(), field: "quantity"}, true
	case errors.As(err, &priceErr):
		return apiError{status: http.StatusUnprocessableEntity, message: priceErr.Error(), field: "price"}, true
	case errors.As(err, &kindErr):
		return apiError{status: http.StatusUnprocessableEntity, message: kindErr.Error(), field: "kind"}, true
	case errors.As(err, &catalogErr):
		return apiError{status: http.StatusUnprocessableEntity, message: catalogErr.Error(), field: "name"}, true
	case errors.As(err, &boxErr):
		return apiError{status: http.StatusUnprocessableEntity, message: boxErr.Error(), field: "contents"}, true
	case errors.Is(err, money.ErrInvalidAmount):
		return apiError{status: http.StatusUnprocessableEntity, message: "invalid amount", field: "amount"}, true
	case errors.Is(err, pricing.ErrEmptyCart):
		return apiError{status: http.StatusUnprocessableEntity, message: "cart is empty"}, true
	case errors.As(err, &deliveryErr):
		return apiError{status: http.StatusUnprocessableEntity, message: deliveryErr.Error(), field: "delivery"}, true
	case errors.Is(err, order.ErrInvalidRange):
		return apiError{status: http.StatusUnprocessableEntity, message: order.ErrInvalidRange.Error(), field: "to"}, true
	case errors.Is(err, payment.ErrNothingOwing):
		return apiError{status: http.StatusUnprocessableEntity, message: payment.ErrNothingOwing.Error(), field: "amount"}, true

	case errors.As(err, &limitErr):
		return apiError{
			status:  http.StatusPaymentRequired,
			message: "credit limit exceeded",
			extra: func(e *jx.Encoder) {
				e.Field("current_balance", func(e *jx.Encoder) { encodeMoney(e, limitErr.CurrentBalance) })
				e.Field("order_amount", func(e *jx.Encoder) { encodeMoney(e, limitErr.OrderAmount) })
				e.Field("would_be_balance", func(e *jx.Encoder) { encodeMoney(e, limitErr.WouldBeBalance) })
				e.Field("max_owing", func(e *jx.Encoder) { encodeMoney(e, limitErr.MaxOwing) })
			},
		}, true
	case errors.Is(err, payment.ErrAuthorization):
		return apiError{status: http.StatusPaymentRequired, message: payment.ErrAuthorization.Error()}, true

	case errors.Is(err, checkout.ErrTransactionNotFound):
		return apiError{status: http.StatusNotFound, message: "checkout transaction not found"}, true
	case errors.As(err, &notFoundErr):
		return apiError{status: http.StatusNotFound, message: notFoundErr.Error()}, true
	case errors.Is(err, customer.ErrNotFound):
		return apiError{status: http.StatusNotFound, message: "customer not found"}, true

	case errors.Is(err, checkout.ErrTransactionClosed):
		return apiError{status: http.StatusConflict, message: "checkout transaction is closed"}, true
	case errors.Is(err, checkout.ErrTransactionBusy):
		return apiError{status: http.StatusConflict, message: "checkout transaction is being confirmed"}, true
	case errors.As(err, &fulfilled):
		return apiError{status: http.StatusConflict, message: fulfilled.Error()}, true
	}
	return apiError{status: http.StatusInternalServerError, message: "internal server error"}, false
}

// fail writes err as a JSON error body. Unexpected errors are logged and
// hidden from the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	resp, ok := mapError(err)
	if !ok {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("route", r.Pattern),
			zap.Error(err),
		)
	}

	writeJSON(w, resp.status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(resp.status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(resp.message) })
			if resp.field != "" {
				e.Field("field", func(e *jx.Encoder) { e.Str(resp.field) })
			}
			if resp.extra != nil {
				resp.extra(e)
			}
		})
	})
}
