package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/money"
)

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	encode(e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// encodeMoney writes d as a JSON number with two decimal places.
func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(money.Format(d)))
}

func encodeQuantity(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeStrings(e *jx.Encoder, ss []string) {
	e.Arr(func(e *jx.Encoder) {
		for _, s := range ss {
			e.Str(s)
		}
	})
}

func encodeLineItem(e *jx.Encoder, li cart.LineItem) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("kind", func(e *jx.Encoder) { e.Str(string(li.Kind)) })
		e.Field("name", func(e *jx.Encoder) { e.Str(li.Name) })
		e.Field("unit_price", func(e *jx.Encoder) { encodeMoney(e, li.UnitPrice) })
		e.Field("quantity", func(e *jx.Encoder) { encodeQuantity(e, li.Quantity) })
		if len(li.Contents) > 0 {
			e.Field("contents", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, c := range li.Contents {
						e.Obj(func(e *jx.Encoder) {
							e.Field("name", func(e *jx.Encoder) { e.Str(c.Name) })
							e.Field("quantity", func(e *jx.Encoder) { encodeQuantity(e, c.Quantity) })
						})
					}
				})
			})
		}
		e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, li.Subtotal) })
		e.Field("description", func(e *jx.Encoder) { e.Str(li.Describe()) })
	})
}

func encodeLineItems(e *jx.Encoder, items []cart.LineItem) {
	e.Arr(func(e *jx.Encoder) {
		for _, li := range items {
			encodeLineItem(e, li)
		}
	})
}

func encodeSummary(e *jx.Encoder, s pricing.Summary) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, s.Subtotal) })
		e.Field("discount", func(e *jx.Encoder) { encodeMoney(e, s.Discount) })
		e.Field("delivery_fee", func(e *jx.Encoder) { encodeMoney(e, s.DeliveryFee) })
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, s.Total) })
		e.Field("is_delivery", func(e *jx.Encoder) { e.Bool(s.IsDelivery) })
	})
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("number", func(e *jx.Encoder) { e.Str(o.Number) })
		e.Field("customer_id", func(e *jx.Encoder) { e.Str(o.CustomerID) })
		e.Field("customer_name", func(e *jx.Encoder) { e.Str(o.CustomerName) })
		e.Field("items", func(e *jx.Encoder) { encodeLineItems(e, o.Items) })
		e.Field("summary", func(e *jx.Encoder) { encodeSummary(e, o.Summary) })
		e.Field("delivery_method", func(e *jx.Encoder) { e.Str(string(o.DeliveryMethod)) })
		e.Field("payment_id", func(e *jx.Encoder) { e.Str(o.PaymentID) })
		e.Field("payment_method", func(e *jx.Encoder) { e.Str(o.PaymentMethod) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, o.CreatedAt) })
	})
}

func encodeOrders(e *jx.Encoder, orders []order.Order) {
	e.Arr(func(e *jx.Encoder) {
		for i := range orders {
			encodeOrder(e, &orders[i])
		}
	})
}

func encodeTransaction(e *jx.Encoder, tx checkout.Transaction) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(tx.ID.String()) })
		e.Field("state", func(e *jx.Encoder) { e.Str(tx.State.String()) })
		e.Field("items", func(e *jx.Encoder) { encodeLineItems(e, tx.Items) })
		e.Field("summary", func(e *jx.Encoder) { encodeSummary(e, tx.Summary) })
		if tx.Instrument != nil {
			e.Field("method", func(e *jx.Encoder) { e.Str(string(tx.Instrument.Method)) })
		}
		if tx.Order != nil {
			e.Field("order_number", func(e *jx.Encoder) { e.Str(tx.Order.Number) })
		}
		e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, tx.CreatedAt) })
	})
}

func encodeCustomer(e *jx.Encoder, c *customer.Customer) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(c.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(c.FullName()) })
		e.Field("username", func(e *jx.Encoder) { e.Str(c.Username) })
		e.Field("address", func(e *jx.Encoder) { e.Str(c.Address) })
		if c.DistanceKM >= 0 {
			e.Field("distance_km", func(e *jx.Encoder) { e.Int(c.DistanceKM) })
		}
		e.Field("kind", func(e *jx.Encoder) { e.Str(string(c.Kind)) })
		e.Field("discount_rate", func(e *jx.Encoder) { e.Num(jx.Num(c.Rate().String())) })
		e.Field("balance", func(e *jx.Encoder) { encodeMoney(e, c.Balance) })
		e.Field("owing", func(e *jx.Encoder) { encodeMoney(e, c.Owing()) })
		e.Field("max_owing", func(e *jx.Encoder) { encodeMoney(e, c.Limit()) })
	})
}

func encodeRecord(e *jx.Encoder, r payment.Record) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(r.ID) })
		e.Field("purpose", func(e *jx.Encoder) { e.Str(string(r.Purpose)) })
		e.Field("method", func(e *jx.Encoder) { e.Str(string(r.Method)) })
		e.Field("amount", func(e *jx.Encoder) { encodeMoney(e, r.Amount) })
		if r.CardType != "" {
			e.Field("card_type", func(e *jx.Encoder) { e.Str(r.CardType) })
		}
		if r.CardLast4 != "" {
			e.Field("card_last4", func(e *jx.Encoder) { e.Str(r.CardLast4) })
		}
		if r.BankName != "" {
			e.Field("bank_name", func(e *jx.Encoder) { e.Str(r.BankName) })
		}
		if r.OrderNumber != "" {
			e.Field("order_number", func(e *jx.Encoder) { e.Str(r.OrderNumber) })
		}
		e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, r.CreatedAt) })
	})
}

func encodeVegetable(e *jx.Encoder, v catalog.Vegetable) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("kind", func(e *jx.Encoder) { e.Str(string(v.Kind)) })
		e.Field("name", func(e *jx.Encoder) { e.Str(v.Name) })
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, v.Price) })
	})
}

func encodeBox(e *jx.Encoder, b catalog.Box) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("size", func(e *jx.Encoder) { e.Str(b.Size) })
		e.Field("name", func(e *jx.Encoder) { e.Str(b.Name) })
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, b.Price) })
		e.Field("contents", func(e *jx.Encoder) { encodeStrings(e, b.Contents) })
	})
}

func encodeProductSales(e *jx.Encoder, ps []order.ProductSales) {
	e.Arr(func(e *jx.Encoder) {
		for _, p := range ps {
			e.Obj(func(e *jx.Encoder) {
				e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
				e.Field("quantity", func(e *jx.Encoder) { encodeQuantity(e, p.Quantity) })
			})
		}
	})
}
