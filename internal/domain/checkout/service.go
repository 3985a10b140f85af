// Package checkout drives a checkout attempt from a cart snapshot to a
// committed, paid order.
package checkout

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/domain/pricing"
)

const instrumentationName = "github.com/xenking/storefront/internal/domain/checkout"

// Option configures a Service.
type Option func(*Service)

// WithObserver registers an observer notified after every commit.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observers = append(s.observers, o) }
}

// WithMeterProvider sets the meter provider for checkout counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider for checkout spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// Service runs checkout transactions. Transactions live in memory for the
// duration of one attempt.
type Service struct {
	customers customer.Repository
	calc      *pricing.Calculator
	payments  *payment.Processor
	observers []Observer
	now       func() time.Time
	lg        *zap.Logger

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	committed      metric.Int64Counter
	rejected       metric.Int64Counter

	mu  sync.Mutex
	txs map[uuid.UUID]*Transaction
}

// NewService creates a checkout Service.
func NewService(
	customers customer.Repository,
	calc *pricing.Calculator,
	payments *payment.Processor,
	lg *zap.Logger,
	opts ...Option,
) (*Service, error) {
	s := &Service{
		customers:      customers,
		calc:           calc,
		payments:       payments,
		now:            time.Now,
		lg:             lg,
		meterProvider:  metricnoop.NewMeterProvider(),
		tracerProvider: tracenoop.NewTracerProvider(),
		txs:            make(map[uuid.UUID]*Transaction),
	}
	for _, opt := range opts {
		opt(s)
	}

	meter := s.meterProvider.Meter(instrumentationName)
	var err error
	if s.committed, err = meter.Int64Counter("storefront.checkout.committed",
		metric.WithDescription("Checkouts committed"),
	); err != nil {
		return nil, errors.Wrap(err, "committed counter")
	}
	if s.rejected, err = meter.Int64Counter("storefront.checkout.rejected",
		metric.WithDescription("Checkout confirmations rejected"),
	); err != nil {
		return nil, errors.Wrap(err, "rejected counter")
	}
	s.tracer = s.tracerProvider.Tracer(instrumentationName)
	return s, nil
}

// Begin snapshots items into a new transaction for the customer. Nothing is
// mutated when pricing fails.
func (s *Service) Begin(ctx context.Context, customerID string, items []cart.LineItem, isDelivery bool) (Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Begin")
	defer span.End()

	cust, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return Transaction{}, errors.Wrap(err, "get customer")
	}
	summary, err := s.calc.Compute(items, cust, isDelivery)
	if err != nil {
		span.RecordError(err)
		return Transaction{}, err
	}

	tx := &Transaction{
		ID:        uuid.New(),
		Customer:  *cust,
		Items:     slices.Clone(items),
		Summary:   summary,
		State:     payment.StateIdle,
		CreatedAt: s.now(),
	}
	s.mu.Lock()
	s.txs[tx.ID] = tx
	s.mu.Unlock()

	span.SetAttributes(attribute.String("checkout.transaction", tx.ID.String()))
	s.lg.Debug("Checkout started",
		zap.Stringer("transaction", tx.ID),
		zap.String("customer", customerID),
		zap.Stringer("total", summary.Total),
		zap.Bool("delivery", isDelivery),
	)
	return tx.clone(), nil
}

// Get returns a copy of the customer's transaction.
func (s *Service) Get(customerID string, id uuid.UUID) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.lookup(customerID, id)
	if err != nil {
		return Transaction{}, err
	}
	return tx.clone(), nil
}

// lookup must be called with s.mu held.
func (s *Service) lookup(customerID string, id uuid.UUID) (*Transaction, error) {
	tx, ok := s.txs[id]
	if !ok || tx.Customer.ID != customerID {
		return nil, &TransactionError{ID: id, Err: ErrTransactionNotFound}
	}
	return tx, nil
}

// acquire marks the transaction busy and moves it to Validating.
func (s *Service) acquire(customerID string, id uuid.UUID, in payment.Instrument) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.lookup(customerID, id)
	if err != nil {
		return nil, err
	}
	switch {
	case tx.State.IsTerminal():
		return nil, &TransactionError{ID: id, Err: ErrTransactionClosed}
	case tx.busy:
		return nil, &TransactionError{ID: id, Err: ErrTransactionBusy}
	}
	if !tx.transition(payment.StateMethodSelected) || !tx.transition(payment.StateValidating) {
		return nil, errors.Errorf("transaction %s: cannot confirm from state %s", id, tx.State)
	}
	tx.busy = true
	tx.Instrument = &in
	return tx, nil
}

// release settles the transaction in state and clears the busy flag.
func (s *Service) release(tx *Transaction, state payment.State, o *order.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !tx.transition(state) {
		s.lg.Error("Invalid checkout transition",
			zap.Stringer("transaction", tx.ID),
			zap.Stringer("from", tx.State),
			zap.Stringer("to", state),
		)
		tx.State = state
	}
	tx.Order = o
	tx.busy = false
}

// Confirm validates and authorizes the instrument, then commits the order.
// It stops at the first failure, leaving the cart and balance untouched and
// the transaction Rejected so it can be retried. On success the order is
// returned and observers are notified.
func (s *Service) Confirm(ctx context.Context, customerID string, id uuid.UUID, in payment.Instrument) (*order.Order, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Confirm",
		trace.WithAttributes(
			attribute.String("checkout.transaction", id.String()),
			attribute.String("payment.method", string(in.Method)),
		),
	)
	defer span.End()

	tx, err := s.acquire(customerID, id, in)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	o, err := s.confirm(ctx, tx, in)
	if err != nil {
		s.release(tx, payment.StateRejected, nil)
		s.rejected.Add(ctx, 1, metric.WithAttributes(
			attribute.String("method", string(in.Method)),
			attribute.String("reason", rejectReason(err)),
		))
		span.RecordError(err)
		span.SetStatus(codes.Error, rejectReason(err))
		s.lg.Info("Checkout rejected",
			zap.Stringer("transaction", id),
			zap.String("customer", customerID),
			zap.String("method", string(in.Method)),
			zap.Error(err),
		)
		return nil, err
	}

	s.release(tx, payment.StateCommitted, o)
	s.committed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", string(in.Method)),
		attribute.String("delivery", string(o.DeliveryMethod)),
	))
	span.SetAttributes(attribute.String("order.number", o.Number))

	for _, obs := range s.observers {
		obs.OnCheckoutCommitted(ctx, o)
		obs.OnCartCleared(ctx, customerID)
	}
	return o, nil
}

func (s *Service) confirm(ctx context.Context, tx *Transaction, in payment.Instrument) (*order.Order, error) {
	if err := s.payments.Validate(in); err != nil {
		return nil, err
	}

	// Authorize against the current account state, not the one captured at
	// Begin.
	cust, err := s.customers.Get(ctx, tx.Customer.ID)
	if err != nil {
		return nil, &payment.CommitError{Err: errors.Wrap(err, "get customer")}
	}
	if err := s.payments.Authorize(in, tx.Summary.Total, cust); err != nil {
		return nil, err
	}

	s.mu.Lock()
	authorized := tx.transition(payment.StateAuthorized)
	s.mu.Unlock()
	if !authorized {
		return nil, errors.Errorf("transaction %s: cannot authorize from state %s", tx.ID, tx.State)
	}

	o := &order.Order{
		CustomerID:   cust.ID,
		CustomerName: cust.FullName(),
		Items:        tx.clone().Items,
		CreatedAt:    s.now(),
	}
	r, err := s.payments.Commit(ctx, cust, tx.Summary, in, o)
	if err != nil {
		return nil, err
	}
	return r.Order, nil
}

// Cancel discards the transaction. The cart and balance are unaffected.
func (s *Service) Cancel(_ context.Context, customerID string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.lookup(customerID, id)
	if err != nil {
		return err
	}
	switch {
	case tx.State.IsTerminal():
		return &TransactionError{ID: id, Err: ErrTransactionClosed}
	case tx.busy:
		return &TransactionError{ID: id, Err: ErrTransactionBusy}
	}
	if !tx.transition(payment.StateCanceled) {
		return errors.Errorf("transaction %s: cannot cancel from state %s", id, tx.State)
	}
	s.lg.Info("Checkout canceled",
		zap.Stringer("transaction", id),
		zap.String("customer", customerID),
	)
	return nil
}

// Expire drops transactions created before cutoff and returns how many were
// removed. In-flight confirmations are kept.
func (s *Service) Expire(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for id, tx := range s.txs {
		if tx.busy || !tx.CreatedAt.Before(cutoff) {
			continue
		}
		delete(s.txs, id)
		n++
	}
	return n
}

func rejectReason(err error) string {
	var (
		vErr      *payment.ValidationError
		commitErr *payment.CommitError
	)
	switch {
	case errors.As(err, &vErr):
		return "validation"
	case errors.Is(err, payment.ErrAuthorization):
		return "authorization"
	case errors.As(err, &commitErr):
		return "commit"
	default:
		return "internal"
	}
}
