// internal/burn/state.go
package burn

import (
	"time"

	"github.com/rovshanmuradov/burn-portal/internal/amount"
)

// State is a burn lifecycle state.
type State int

const (
	Idle State = iota
	AwaitingConfirmation
	AwaitingSignature
	Submitted
	Settled
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingConfirmation:
		return "awaiting_confirmation"
	case AwaitingSignature:
		return "awaiting_signature"
	case Submitted:
		return "submitted"
	case Settled:
		return "settled"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Reason explains a Failed state.
type Reason int

const (
	NoReason Reason = iota
	InsufficientBalance
	TransactionRejected
	TransactionError
)

func (r Reason) String() string {
	switch r {
	case NoReason:
		return ""
	case InsufficientBalance:
		return "insufficient_balance"
	case TransactionRejected:
		return "transaction_rejected"
	case TransactionError:
		return "transaction_error"
	default:
		return "unknown"
	}
}

// Request is one burn attempt. It is immutable once created.
type Request struct {
	ID          string
	Amount      amount.TokenAmount
	Sender      string
	Destination string
	// Large marks amounts at or above the large-burn threshold. It is advisory only.
	Large     bool
	CreatedAt time.Time
}

// StepStatus is the progress of one confirmation step.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepActive
	StepCompleted
)

func (s StepStatus) String() string {
	switch s {
	case StepActive:
		return "active"
	case StepCompleted:
		return "completed"
	default:
		return "pending"
	}
}

// Step labels shown in the confirmation view.
const (
	StepConfirm = "Confirm Transaction"
	StepSign    = "Sign Transaction"
	StepProcess = "Transaction Processing"
)

type Step struct {
	Label  string
	Status StepStatus
}

// Snapshot is an immutable view of the machine.
type Snapshot struct {
	State  State
	Reason Reason
	// Request is nil while Idle.
	Request *Request
	// Signature is set once the transaction has been submitted.
	Signature string
	// DialogOpen reports whether the confirmation view should be shown.
	DialogOpen bool
	Err        error
}

// IsPending reports whether a signature or settlement is outstanding. The
// initiating action is disabled while pending.
func (s Snapshot) IsPending() bool {
	return s.State == AwaitingSignature || s.State == Submitted
}

// Steps returns the three confirmation steps with their progress.
func (s Snapshot) Steps() []Step {
	statuses := [3]StepStatus{}
	switch s.State {
	case AwaitingConfirmation:
		statuses = [3]StepStatus{StepActive, StepPending, StepPending}
	case AwaitingSignature:
		statuses = [3]StepStatus{StepCompleted, StepActive, StepPending}
	case Submitted:
		statuses = [3]StepStatus{StepCompleted, StepCompleted, StepActive}
	case Settled:
		statuses = [3]StepStatus{StepCompleted, StepCompleted, StepCompleted}
	}
	return []Step{
		{Label: StepConfirm, Status: statuses[0]},
		{Label: StepSign, Status: statuses[1]},
		{Label: StepProcess, Status: statuses[2]},
	}
}
