package customer

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested customer does not exist.
var ErrNotFound = errors.New("customer not found")

// Kind distinguishes private from corporate customers.
type Kind string

const (
	// KindPrivate customers pay list price.
	KindPrivate Kind = "private"
	// KindCorporate customers receive DiscountRate off the subtotal.
	KindCorporate Kind = "corporate"
)

// Customer is a storefront account holder.
//
// Balance is conventionally zero or negative and records the amount owed.
// MaxOwing is the credit limit, expressed as a negative amount.
type Customer struct {
	ID        string
	FirstName string
	LastName  string
	Username  string
	Address   string
	// DistanceKM is the registered distance from the depot. A negative
	// value means the distance is unknown.
	DistanceKM   int
	Kind         Kind
	DiscountRate decimal.Decimal
	Balance      decimal.Decimal
	MaxOwing     decimal.Decimal
}

// FullName returns the customer's display name.
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Rate returns the discount rate applied to this customer's orders:
// zero for private customers, DiscountRate for corporate ones.
func (c *Customer) Rate() decimal.Decimal {
	switch c.Kind {
	case KindCorporate:
		if c.DiscountRate.IsNegative() {
			return decimal.Zero
		}
		return c.DiscountRate
	default:
		return decimal.Zero
	}
}

// Limit returns the credit limit as a non-positive amount regardless of the
// sign MaxOwing was recorded with.
func (c *Customer) Limit() decimal.Decimal {
	return c.MaxOwing.Abs().Neg()
}

// Owing returns the outstanding debt as a non-negative amount.
func (c *Customer) Owing() decimal.Decimal {
	if c.Balance.IsPositive() {
		return decimal.Zero
	}
	return c.Balance.Abs()
}

// CanDeliver reports whether the customer lives within radiusKM of the depot.
func (c *Customer) CanDeliver(radiusKM int) bool {
	return c.DistanceKM >= 0 && c.DistanceKM <= radiusKM
}

// DistanceFromAddress extracts the distance encoded in an address by
// concatenating its digits ("12 km north" -> 12). It returns -1 when the
// address holds no digits.
func DistanceFromAddress(address string) int {
	var b strings.Builder
	for _, r := range address {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return -1
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return -1
	}
	return n
}

// Repository provides read access to customer accounts. Balance mutations
// go through the payment ledger.
type Repository interface {
	Get(ctx context.Context, id string) (*Customer, error)
	List(ctx context.Context) ([]Customer, error)
}
