package ledger

import "errors"

// Operation failures are recoverable and local: the portfolio is never left
// partially mutated. Callers translate these into user-facing messaging.
var (
	// ErrInsufficientFunds - cash balance cannot cover the requested buy,
	// withdrawal, or transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientHoldings - sell quantity exceeds the held quantity, or
	// the asset is not held at all.
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrInsufficientCFDFunds - CFD balance cannot cover the transfer back
	// to cash.
	ErrInsufficientCFDFunds = errors.New("insufficient CFD funds")

	// ErrInvalidAmount - non-positive quantity, price, or amount. The ledger
	// is the single source of truth for this check; UI-side validation is a
	// pre-flight hint only.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrPersistence - the state change applied but could not be written to
	// storage; it may not survive a reload.
	ErrPersistence = errors.New("portfolio persistence failed")
)
