package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/checkout"
)

// transactionID parses the {id} path value. Malformed ids are reported as
// unknown transactions.
func transactionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, &checkout.TransactionError{Err: checkout.ErrTransactionNotFound}
	}
	return id, nil
}

// beginCheckout snapshots the cart into a new transaction. Body:
// {"delivery": bool}, optional.
func (h *Handler) beginCheckout(w http.ResponseWriter, r *http.Request) {
	var isDelivery bool
	if err := decodeObject(w, r, true, func(d *jx.Decoder, key string) error {
		if key != "delivery" {
			return d.Skip()
		}
		var err error
		isDelivery, err = d.Bool()
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}

	items := h.Carts.For(customerID(r)).Snapshot()
	tx, err := h.Checkout.Begin(r.Context(), customerID(r), items, isDelivery)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeTransaction(e, tx) })
}

func (h *Handler) getCheckout(w http.ResponseWriter, r *http.Request) {
	id, err := transactionID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	tx, err := h.Checkout.Get(customerID(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeTransaction(e, tx) })
}

// confirmCheckout pays for the transaction with the instrument in the body
// and returns the placed order.
func (h *Handler) confirmCheckout(w http.ResponseWriter, r *http.Request) {
	id, err := transactionID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in, err := decodeInstrument(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.Checkout.Confirm(r.Context(), customerID(r), id, in)
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "confirm checkout"))
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) cancelCheckout(w http.ResponseWriter, r *http.Request) {
	id, err := transactionID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Checkout.Cancel(r.Context(), customerID(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
