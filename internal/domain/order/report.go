package order

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/money"
)

// SalesReport summarises orders placed within a date range.
type SalesReport struct {
	From       time.Time
	To         time.Time
	TotalSales decimal.Decimal
	Orders     []Order
}

// BuildSalesReport totals the sales amount (subtotal less discount,
// delivery fees excluded) over the given orders.
func BuildSalesReport(from, to time.Time, orders []Order) SalesReport {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.Summary.SalesAmount())
	}
	return SalesReport{
		From:       from,
		To:         to,
		TotalSales: money.Round(total),
		Orders:     orders,
	}
}

// ProductSales is the quantity sold of one product.
type ProductSales struct {
	Name     string
	Quantity decimal.Decimal
}

// Popularity ranks vegetables and boxes by quantity sold.
type Popularity struct {
	Vegetables []ProductSales
	Boxes      []ProductSales
}

// BuildPopularity counts vegetables (including those inside boxes) and
// boxes across orders. Each list is sorted by quantity descending, then
// by name.
func BuildPopularity(orders []Order) Popularity {
	veg := make(map[string]decimal.Decimal)
	boxes := make(map[string]decimal.Decimal)

	for _, o := range orders {
		for _, item := range o.Items {
			switch {
			case item.Kind == cart.KindBox:
				boxes[item.Name] = boxes[item.Name].Add(item.Quantity)
				for _, c := range item.Contents {
					veg[c.Name] = veg[c.Name].Add(c.Quantity.Mul(item.Quantity))
				}
			case item.Kind.IsVegetable():
				veg[item.Name] = veg[item.Name].Add(item.Quantity)
			}
		}
	}

	return Popularity{
		Vegetables: rank(veg),
		Boxes:      rank(boxes),
	}
}

func rank(m map[string]decimal.Decimal) []ProductSales {
	out := make([]ProductSales, 0, len(m))
	for name, qty := range m {
		out = append(out, ProductSales{Name: name, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Quantity.Cmp(out[j].Quantity); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}
