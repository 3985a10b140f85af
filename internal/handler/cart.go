package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
)

// getCatalog lists vegetables grouped by kind and the premade boxes.
func (h *Handler) getCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("vegetables", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					for _, kind := range []cart.Kind{cart.KindWeight, cart.KindUnit, cart.KindPack} {
						e.Field(string(kind), func(e *jx.Encoder) {
							e.Arr(func(e *jx.Encoder) {
								for _, v := range h.Catalog.ByKind(kind) {
									encodeVegetable(e, v)
								}
							})
						})
					}
				})
			})
			e.Field("boxes", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, b := range h.Catalog.Boxes() {
						encodeBox(e, b)
					}
				})
			})
		})
	})
}

// getCart returns the cart items and, when the cart is not empty, a priced
// summary for pickup or, with ?delivery=true, delivery.
func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	isDelivery, err := queryBool(r, "delivery")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items := h.Carts.For(customerID(r)).Snapshot()

	var encodeSum func(e *jx.Encoder)
	if len(items) > 0 {
		cust, err := h.Customers.Get(r.Context(), customerID(r))
		if err != nil {
			h.fail(w, r, errors.Wrap(err, "get customer"))
			return
		}
		sum, err := h.Pricing.Compute(items, cust, isDelivery)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		encodeSum = func(e *jx.Encoder) { encodeSummary(e, sum) }
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("items", func(e *jx.Encoder) { encodeLineItems(e, items) })
			if encodeSum != nil {
				e.Field("summary", encodeSum)
			}
		})
	})
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	sel, err := decodeSelection(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.Catalog.AddTo(h.Carts.For(customerID(r)), sel)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	zctx.From(r.Context()).Debug("Cart item added",
		zap.String("customer", customerID(r)),
		zap.String("item", item.Describe()),
	)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeLineItem(e, item) })
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.Carts.For(customerID(r)).Clear()
	w.WriteHeader(http.StatusNoContent)
}
