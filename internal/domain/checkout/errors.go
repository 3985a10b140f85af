package checkout

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var (
	// ErrTransactionNotFound is returned for unknown transaction ids and for
	// transactions owned by another customer.
	ErrTransactionNotFound = errors.New("checkout transaction not found")
	// ErrTransactionClosed is returned when confirming or cancelling a
	// transaction that was already committed or canceled.
	ErrTransactionClosed = errors.New("checkout transaction is closed")
	// ErrTransactionBusy is returned while another confirm for the same
	// transaction is in flight.
	ErrTransactionBusy = errors.New("checkout transaction is being confirmed")
)

// TransactionError attaches the transaction id to a registry error.
type TransactionError struct {
	ID  uuid.UUID
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s: %v", e.ID, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}
