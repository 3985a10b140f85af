package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
)

// listOrders lists every order, optionally filtered by ?status=&customer=&from=&to=.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	f, err := orderFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f.CustomerID = r.URL.Query().Get("customer")
	orders, err := h.Orders.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrders(e, orders) })
}

func (h *Handler) fulfillOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Fulfill(r.Context(), r.PathValue("number"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Customers.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range customers {
				encodeCustomer(e, &customers[i])
			}
		})
	})
}

// salesReport totals sales between ?from= and ?to= (YYYY-MM-DD, inclusive).
func (h *Handler) salesReport(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "from")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	report, err := h.Orders.SalesReport(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			if !report.From.IsZero() {
				e.Field("from", func(e *jx.Encoder) { e.Str(report.From.Format(time.DateOnly)) })
			}
			if !report.To.IsZero() {
				e.Field("to", func(e *jx.Encoder) { e.Str(report.To.Format(time.DateOnly)) })
			}
			e.Field("total_sales", func(e *jx.Encoder) { encodeMoney(e, report.TotalSales) })
			e.Field("order_count", func(e *jx.Encoder) { e.Int(len(report.Orders)) })
			e.Field("orders", func(e *jx.Encoder) { encodeOrders(e, report.Orders) })
		})
	})
}

func (h *Handler) popularReport(w http.ResponseWriter, r *http.Request) {
	p, err := h.Orders.Popular(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("vegetables", func(e *jx.Encoder) { encodeProductSales(e, p.Vegetables) })
			e.Field("boxes", func(e *jx.Encoder) { encodeProductSales(e, p.Boxes) })
		})
	})
}
