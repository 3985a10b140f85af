package cart

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/money"
)

// Kind enumerates the pricing basis of a line item.
type Kind string

const (
	// KindWeight is a vegetable priced per kilogram.
	KindWeight Kind = "weight"
	// KindUnit is a vegetable priced per unit.
	KindUnit Kind = "unit"
	// KindPack is a vegetable priced per pack.
	KindPack Kind = "pack"
	// KindBox is a premade box.
	KindBox Kind = "box"
)

// Valid reports whether k is a known line item kind.
func (k Kind) Valid() bool {
	switch k {
	case KindWeight, KindUnit, KindPack, KindBox:
		return true
	default:
		return false
	}
}

// Integral reports whether quantities of this kind must be whole numbers.
func (k Kind) Integral() bool {
	return k != KindWeight
}

// IsVegetable reports whether k is one of the vegetable kinds.
func (k Kind) IsVegetable() bool {
	return k == KindWeight || k == KindUnit || k == KindPack
}

// BoxContent is one vegetable inside a premade box.
type BoxContent struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
}

// LineItem is a single cart entry. Subtotal is always
// round_half_up(UnitPrice * Quantity, 2).
type LineItem struct {
	Kind      Kind            `json:"kind"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Contents  []BoxContent    `json:"contents,omitempty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Describe renders the item the way order listings show it,
// e.g. "Carrot x 2" or "Small Box x 1 (Carrot, Potato)".
func (li LineItem) Describe() string {
	s := fmt.Sprintf("%s x %s", li.Name, li.Quantity.String())
	if len(li.Contents) == 0 {
		return s
	}
	names := make([]string, len(li.Contents))
	for i, c := range li.Contents {
		names[i] = c.Name
	}
	return s + " (" + strings.Join(names, ", ") + ")"
}

// Quantity bounds: up to 9999 of anything, weights to the gram.
const (
	maxQuantityDigits = 4
	maxQuantityScale  = 3
)

// InvalidQuantityError indicates a non-positive or oversized quantity, or a
// fractional quantity for a kind sold in whole units.
type InvalidQuantityError struct {
	Name     string
	Quantity decimal.Decimal
}

func (e *InvalidQuantityError) Error() string {
	if !money.Within(e.Quantity, maxQuantityDigits, maxQuantityScale) {
		return fmt.Sprintf("quantity out of range for %s", e.Name)
	}
	return fmt.Sprintf("invalid quantity %s for %s", e.Quantity.String(), e.Name)
}

// InvalidPriceError indicates a negative unit price.
type InvalidPriceError struct {
	Name  string
	Price decimal.Decimal
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("invalid price %s for %s", e.Price.String(), e.Name)
}

// UnknownKindError indicates an unsupported line item kind.
type UnknownKindError struct {
	Kind Kind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown item kind %q", e.Kind)
}

// NewLineItem builds a priced line item, validating quantity and price.
func NewLineItem(kind Kind, name string, unitPrice, quantity decimal.Decimal, contents []BoxContent) (LineItem, error) {
	if !kind.Valid() {
		return LineItem{}, &UnknownKindError{Kind: kind}
	}
	// Bounds first: IsInteger and Mul rescale the coefficient.
	if !money.Within(quantity, maxQuantityDigits, maxQuantityScale) ||
		!quantity.IsPositive() || (kind.Integral() && !quantity.IsInteger()) {
		return LineItem{}, &InvalidQuantityError{Name: name, Quantity: quantity}
	}
	if unitPrice.IsNegative() {
		return LineItem{}, &InvalidPriceError{Name: name, Price: unitPrice}
	}

	var box []BoxContent
	if len(contents) > 0 {
		box = make([]BoxContent, len(contents))
		copy(box, contents)
	}

	return LineItem{
		Kind:      kind,
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  quantity,
		Contents:  box,
		Subtotal:  money.Mul(unitPrice, quantity),
	}, nil
}

// Cart is an ordered, append-only collection of line items. It is safe for
// concurrent use.
type Cart struct {
	mu    sync.Mutex
	items []LineItem
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add prices and appends a line item.
func (c *Cart) Add(kind Kind, name string, unitPrice, quantity decimal.Decimal, contents []BoxContent) (LineItem, error) {
	item, err := NewLineItem(kind, name, unitPrice, quantity, contents)
	if err != nil {
		return LineItem{}, err
	}

	c.mu.Lock()
	c.items = append(c.items, item)
	c.mu.Unlock()

	return item, nil
}

// Clear empties the cart. Clearing an empty cart is a no-op.
func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// Len returns the number of line items.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Snapshot returns a copy of the current items. Mutating the result does
// not affect the cart.
func (c *Cart) Snapshot() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]LineItem, len(c.items))
	for i, item := range c.items {
		out[i] = item
		if len(item.Contents) > 0 {
			out[i].Contents = append([]BoxContent(nil), item.Contents...)
		}
	}
	return out
}
