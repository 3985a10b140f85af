package payment

import (
	"fmt"
	"strings"
)

const (
	cardNumberDigits = 16
	cvvDigits        = 3
)

// ValidationError reports a structurally invalid payment field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Validate checks the instrument's fields structurally: required fields are
// present, card numbers have exactly 16 digits, CVVs exactly 3, and the
// expiry is a real month. No card network is contacted.
func Validate(in Instrument) error {
	switch in.Method {
	case MethodAccount:
		return nil
	case MethodCredit:
		if in.Credit == nil {
			return invalid("credit", "required")
		}
		return validateCredit(in.Credit)
	case MethodDebit:
		if in.Debit == nil {
			return invalid("debit", "required")
		}
		return validateDebit(in.Debit)
	case "":
		return invalid("method", "required")
	default:
		return invalid("method", fmt.Sprintf("unsupported payment method %q", in.Method))
	}
}

func validateCredit(c *Credit) error {
	if strings.TrimSpace(c.CardType) == "" {
		return invalid("card_type", "required")
	}
	if err := checkDigits("card_number", c.CardNumber, cardNumberDigits); err != nil {
		return err
	}
	if c.ExpiryMonth < 1 || c.ExpiryMonth > 12 {
		return invalid("expiry_month", "must be between 1 and 12")
	}
	if c.ExpiryYear < 1000 || c.ExpiryYear > 9999 {
		return invalid("expiry_year", "must be a four digit year")
	}
	if err := checkDigits("cvv", c.CVV, cvvDigits); err != nil {
		return err
	}
	if strings.TrimSpace(c.HolderName) == "" {
		return invalid("holder_name", "required")
	}
	return nil
}

func validateDebit(d *Debit) error {
	if strings.TrimSpace(d.BankName) == "" {
		return invalid("bank_name", "required")
	}
	return checkDigits("card_number", d.CardNumber, cardNumberDigits)
}

// checkDigits requires s to consist of exactly n ASCII digits.
func checkDigits(field, s string, n int) error {
	if s == "" {
		return invalid(field, "required")
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return invalid(field, "must contain digits only")
		}
	}
	if len(s) != n {
		return invalid(field, fmt.Sprintf("must be exactly %d digits", n))
	}
	return nil
}
