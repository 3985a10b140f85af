package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/order"
)

// getAccount returns the customer's profile, balance and payment history.
func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	cust, err := h.Customers.Get(r.Context(), customerID(r))
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "get customer"))
		return
	}
	payments, err := h.Records.ListPayments(r.Context(), cust.ID)
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "list payments"))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("customer", func(e *jx.Encoder) { encodeCustomer(e, cust) })
			e.Field("payments", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, p := range payments {
						encodeRecord(e, p)
					}
				})
			})
		})
	})
}

// payBalance pays down the outstanding balance by card. Amounts over the
// owing are reduced to it and reported as clamped.
func (h *Handler) payBalance(w http.ResponseWriter, r *http.Request) {
	amount, in, err := decodeBalancePayment(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cust, err := h.Customers.Get(r.Context(), customerID(r))
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "get customer"))
		return
	}
	bp, err := h.Payments.PayBalance(r.Context(), cust, amount, in)
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "pay balance"))
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("requested", func(e *jx.Encoder) { encodeMoney(e, bp.Requested) })
			e.Field("applied", func(e *jx.Encoder) { encodeMoney(e, bp.Applied) })
			e.Field("clamped", func(e *jx.Encoder) { e.Bool(bp.Clamped()) })
			e.Field("balance", func(e *jx.Encoder) { encodeMoney(e, bp.Receipt.Balance) })
			e.Field("payment", func(e *jx.Encoder) { encodeRecord(e, bp.Receipt.Payment) })
		})
	})
}

// listOwnOrders lists the caller's orders, newest first.
func (h *Handler) listOwnOrders(w http.ResponseWriter, r *http.Request) {
	f, err := orderFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f.CustomerID = customerID(r)
	orders, err := h.Orders.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrders(e, orders) })
}

// orderFilter reads ?status=&from=&to= into a filter.
func orderFilter(r *http.Request) (order.Filter, error) {
	var f order.Filter
	if s := r.URL.Query().Get("status"); s != "" {
		f.Status = order.Status(s)
		if !f.Status.Valid() {
			return f, badRequest("status", errors.Errorf("unknown status %q", s))
		}
	}
	var err error
	if f.From, err = queryDate(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(r, "to"); err != nil {
		return f, err
	}
	return f, nil
}
