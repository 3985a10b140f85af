package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/money"
)

// DefaultMinPayment is the smallest accepted balance payment.
var DefaultMinPayment = decimal.RequireFromString("1.00")

// Processor validates, authorizes and commits payments. It holds no
// per-attempt state; callers drive the State machine.
type Processor struct {
	ledger     Ledger
	minPayment decimal.Decimal
	now        func() time.Time
	lg         *zap.Logger
}

// NewProcessor creates a Processor that commits through ledger.
func NewProcessor(ledger Ledger, minPayment decimal.Decimal, lg *zap.Logger) *Processor {
	return &Processor{
		ledger:     ledger,
		minPayment: minPayment,
		now:        time.Now,
		lg:         lg,
	}
}

// Validate checks the instrument structurally.
func (p *Processor) Validate(in Instrument) error {
	return Validate(in)
}

// Authorize decides whether amount may be charged with the instrument.
// Account charges must keep the balance within the owing limit; card
// payments are always authorized once validated.
func (p *Processor) Authorize(in Instrument, amount decimal.Decimal, cust *customer.Customer) error {
	switch in.Method {
	case MethodAccount:
		return checkCreditLimit(cust, amount)
	case MethodCredit, MethodDebit:
		return nil
	default:
		return errors.Wrapf(ErrAuthorization, "unsupported method %q", in.Method)
	}
}

func checkCreditLimit(cust *customer.Customer, amount decimal.Decimal) error {
	would := money.Round(cust.Balance.Sub(amount))
	if would.LessThan(cust.Limit()) {
		return &CreditLimitExceededError{
			CurrentBalance: cust.Balance,
			OrderAmount:    amount,
			WouldBeBalance: would,
			MaxOwing:       cust.Limit(),
		}
	}
	return nil
}

// Commit records the payment for an authorized checkout and places o.
// Account payments subtract the order total from the balance; card payments
// leave it unchanged. The credit limit is checked again against the locked
// account, so concurrent commits cannot overdraw it.
func (p *Processor) Commit(ctx context.Context, cust *customer.Customer, summary pricing.Summary, in Instrument, o *order.Order) (*Receipt, error) {
	now := p.now()
	o.PaymentMethod = string(in.Method)
	o.Status = order.StatusPending
	o.DeliveryMethod = order.MethodFor(summary)
	o.Summary = summary
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}

	e := Entry{
		Record: Record{
			CustomerID: cust.ID,
			Purpose:    PurposeOrder,
			Amount:     summary.Total,
			CreatedAt:  now,
		},
		Order: o,
	}
	in.record(&e.Record)

	plan := func(acct *customer.Customer, e *Entry) error {
		if in.Method != MethodAccount {
			e.BalanceDelta = decimal.Zero
			return nil
		}
		if err := checkCreditLimit(acct, summary.Total); err != nil {
			return err
		}
		e.BalanceDelta = summary.Total.Neg()
		return nil
	}

	r, err := p.ledger.Commit(ctx, cust.ID, plan, e)
	if err != nil {
		return nil, commitErr(err)
	}

	p.lg.Info("Payment committed",
		zap.String("customer", cust.ID),
		zap.String("payment", r.Payment.ID),
		zap.String("order", r.Payment.OrderNumber),
		zap.String("method", string(in.Method)),
		zap.Stringer("amount", r.Payment.Amount),
		zap.Stringer("balance", r.Balance),
	)
	return r, nil
}

// BalancePayment is the outcome of a standalone balance payment.
type BalancePayment struct {
	Requested decimal.Decimal
	Applied   decimal.Decimal
	Receipt   *Receipt
}

// Clamped reports whether the requested amount was reduced to the balance.
func (b *BalancePayment) Clamped() bool {
	return b.Applied.LessThan(b.Requested)
}

// AuthorizeBalancePayment validates a balance payment amount and returns
// the amount that will be applied: at least the minimum payment, and
// clamped down to what is owed rather than rejected.
func (p *Processor) AuthorizeBalancePayment(cust *customer.Customer, amount decimal.Decimal) (decimal.Decimal, error) {
	amount = money.Round(amount)
	if amount.LessThan(p.minPayment) {
		return decimal.Zero, invalid("amount", "must be at least "+money.Format(p.minPayment))
	}
	owing := cust.Owing()
	if !owing.IsPositive() {
		return decimal.Zero, ErrNothingOwing
	}
	return decimal.Min(amount, owing), nil
}

// PayBalance pays down the customer's balance with a card. The amount is
// clamped to the balance owed at commit time.
func (p *Processor) PayBalance(ctx context.Context, cust *customer.Customer, amount decimal.Decimal, in Instrument) (*BalancePayment, error) {
	if !in.IsCard() {
		return nil, invalid("method", "balance payments require a credit or debit card")
	}
	if err := Validate(in); err != nil {
		return nil, err
	}
	requested := money.Round(amount)
	if _, err := p.AuthorizeBalancePayment(cust, requested); err != nil {
		return nil, err
	}

	e := Entry{
		Record: Record{
			CustomerID: cust.ID,
			Purpose:    PurposeBalance,
			CreatedAt:  p.now(),
		},
	}
	in.record(&e.Record)

	plan := func(acct *customer.Customer, e *Entry) error {
		applied, err := p.AuthorizeBalancePayment(acct, requested)
		if err != nil {
			return err
		}
		e.Record.Amount = applied
		e.BalanceDelta = applied
		return nil
	}

	r, err := p.ledger.Commit(ctx, cust.ID, plan, e)
	if err != nil {
		return nil, commitErr(err)
	}

	p.lg.Info("Balance payment committed",
		zap.String("customer", cust.ID),
		zap.String("payment", r.Payment.ID),
		zap.Stringer("requested", requested),
		zap.Stringer("applied", r.Payment.Amount),
		zap.Stringer("balance", r.Balance),
	)
	return &BalancePayment{
		Requested: requested,
		Applied:   r.Payment.Amount,
		Receipt:   r,
	}, nil
}

// commitErr passes business rejections through and wraps everything else
// as a CommitError.
func commitErr(err error) error {
	var vErr *ValidationError
	switch {
	case errors.Is(err, ErrAuthorization),
		errors.Is(err, ErrNothingOwing),
		errors.As(err, &vErr):
		return err
	default:
		return &CommitError{Err: err}
	}
}
