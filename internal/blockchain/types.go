// internal/blockchain/types.go
package blockchain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUserRejected means the account holder declined the signature request.
	ErrUserRejected = errors.New("user rejected the transaction")

	// ErrWallet covers signing and submission failures other than rejection.
	ErrWallet = errors.New("wallet error")

	// ErrTransactionFailed means the ledger executed the transaction with an error.
	ErrTransactionFailed = errors.New("transaction failed on chain")

	ErrUnknownFunction = errors.New("unknown read function")
	ErrUnknownContract = errors.New("unknown contract")
	ErrMissingArgument = errors.New("missing read argument")
)

// TxHandle identifies a submitted transaction.
type TxHandle struct {
	Signature   string
	SubmittedAt time.Time
}

// Error carries the failing operation alongside the cause.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err for op. A nil err stays nil.
func NewError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
