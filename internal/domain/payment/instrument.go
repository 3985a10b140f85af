package payment

// Method selects the payment instrument variant.
type Method string

const (
	// MethodAccount charges the order to the customer's account balance.
	MethodAccount Method = "account"
	// MethodCredit pays by credit card.
	MethodCredit Method = "credit"
	// MethodDebit pays by debit card.
	MethodDebit Method = "debit"
)

// Credit holds the details entered for a credit card payment.
type Credit struct {
	CardNumber  string
	CardType    string
	ExpiryMonth int
	ExpiryYear  int
	CVV         string
	HolderName  string
}

// Debit holds the details entered for a debit card payment.
type Debit struct {
	BankName   string
	CardNumber string
}

// Instrument is a tagged payment variant: Credit is set for MethodCredit,
// Debit for MethodDebit, neither for MethodAccount.
type Instrument struct {
	Method Method
	Credit *Credit
	Debit  *Debit
}

// Account returns the account-balance instrument.
func Account() Instrument {
	return Instrument{Method: MethodAccount}
}

// CreditCard returns a credit card instrument.
func CreditCard(c Credit) Instrument {
	return Instrument{Method: MethodCredit, Credit: &c}
}

// DebitCard returns a debit card instrument.
func DebitCard(d Debit) Instrument {
	return Instrument{Method: MethodDebit, Debit: &d}
}

// IsCard reports whether the instrument is charged externally.
func (in Instrument) IsCard() bool {
	return in.Method == MethodCredit || in.Method == MethodDebit
}

// cardNumber returns the card number for card instruments.
func (in Instrument) cardNumber() string {
	switch {
	case in.Method == MethodCredit && in.Credit != nil:
		return in.Credit.CardNumber
	case in.Method == MethodDebit && in.Debit != nil:
		return in.Debit.CardNumber
	default:
		return ""
	}
}

// record fills the non-sensitive instrument fields of a payment record.
// Only the last four card digits are kept.
func (in Instrument) record(r *Record) {
	r.Method = in.Method
	if n := in.cardNumber(); len(n) >= 4 {
		r.CardLast4 = n[len(n)-4:]
	}
	switch in.Method {
	case MethodCredit:
		if in.Credit != nil {
			r.CardType = in.Credit.CardType
		}
	case MethodDebit:
		if in.Debit != nil {
			r.BankName = in.Debit.BankName
		}
	}
}
