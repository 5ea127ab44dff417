// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
)

// ErrInsufficientTokens is returned when a property no longer has enough
// available tokens to satisfy a purchase.
var ErrInsufficientTokens = errors.New("insufficient tokens available")

// ValidationError means the request failed a precondition before any record
// was created. User-fixable; no side effects.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NotFoundError means the referenced user or property does not exist. No side
// effects.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// PaymentError is terminal for a saga run: the transaction is marked failed,
// no tokens are owed, and the charge is never retried automatically. A
// policy-driven retry must start a new saga run.
type PaymentError struct {
	Reason string
	Err    error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment failed: %s", e.Reason)
}

func (e *PaymentError) Unwrap() error { return e.Err }

// LedgerTransferError means money has been collected but the token transfer
// did not complete. When Retryable, the purchase is parked in
// pending_ledger_transfer and recovered via RetryLedgerTransfer with the same
// idempotency key.
type LedgerTransferError struct {
	TransactionID string
	Retryable     bool
	Err           error
}

func (e *LedgerTransferError) Error() string {
	return fmt.Sprintf("ledger transfer failed for transaction %s: %v", e.TransactionID, e.Err)
}

func (e *LedgerTransferError) Unwrap() error { return e.Err }

// ConcurrencyConflictError means the purchase lost the race on a property's
// remaining supply after payment was already charged. The saga issues a
// compensating refund before surfacing this to the caller.
type ConcurrencyConflictError struct {
	PropertyID string
	Requested  int64
	Refunded   bool
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("insufficient tokens for property %s: requested %d", e.PropertyID, e.Requested)
}

// InvalidStateError is returned when an operation is invoked against a
// transaction that is not in an eligible state, e.g. retrying a transfer for
// a transaction that never collected payment.
type InvalidStateError struct {
	TransactionID string
	State         string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("transaction %s is not eligible in state %q", e.TransactionID, e.State)
}
