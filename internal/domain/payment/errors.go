package payment

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrAuthorization is the generic authorization failure. Every
	// authorization error matches it via errors.Is.
	ErrAuthorization = errors.New("payment not authorized")
	// ErrNothingOwing is returned for balance payments on accounts that owe
	// nothing.
	ErrNothingOwing = errors.New("account balance has nothing owing")
)

// CreditLimitExceededError rejects an account charge that would push the
// balance past the customer's owing limit.
type CreditLimitExceededError struct {
	CurrentBalance decimal.Decimal
	OrderAmount    decimal.Decimal
	WouldBeBalance decimal.Decimal
	MaxOwing       decimal.Decimal
}

func (e *CreditLimitExceededError) Error() string {
	return fmt.Sprintf("credit limit exceeded: balance %s minus %s would be %s, limit is %s",
		e.CurrentBalance.StringFixed(2),
		e.OrderAmount.StringFixed(2),
		e.WouldBeBalance.StringFixed(2),
		e.MaxOwing.StringFixed(2),
	)
}

// Is makes CreditLimitExceededError an authorization error.
func (e *CreditLimitExceededError) Is(target error) bool {
	return target == ErrAuthorization
}

// CommitError wraps an unexpected failure while committing a payment.
// Nothing is persisted when it is returned.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string {
	return "commit payment: " + e.Err.Error()
}

func (e *CommitError) Unwrap() error {
	return e.Err
}
