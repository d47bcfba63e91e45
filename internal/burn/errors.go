package burn

import (
	"errors"
	"fmt"
)

var (
	ErrZeroAmount   = errors.New("burn amount must be greater than zero")
	ErrBusy         = errors.New("a burn is already in progress")
	ErrNotConnected = errors.New("no connected account")
	ErrNoRequest    = errors.New("no burn awaiting confirmation")
	ErrAboveLimit   = errors.New("burn amount exceeds the largest transferable amount")
)

// FailedError is returned by Confirm when the request ends in Failed.
type FailedError struct {
	Reason Reason
	Err    error
}

func (e *FailedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("burn failed: %s", e.Reason)
	}
	return fmt.Sprintf("burn failed: %s: %v", e.Reason, e.Err)
}

func (e *FailedError) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the failure reason from err, NoReason if err is not a FailedError.
func ReasonOf(err error) Reason {
	var fe *FailedError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return NoReason
}
