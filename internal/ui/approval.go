package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/burn-portal/internal/blockchain/solbc"
)

// ApprovalMsg asks the user to approve a signature request.
type ApprovalMsg struct {
	Request solbc.SignRequest
	reply   chan<- bool
}

// Answer resolves the request. Only the first answer counts.
func (m ApprovalMsg) Answer(ok bool) {
	select {
	case m.reply <- ok:
	default:
	}
}

// Approvals routes wallet signature prompts through the program.
type Approvals struct {
	requests chan ApprovalMsg
}

func NewApprovals() *Approvals {
	return &Approvals{requests: make(chan ApprovalMsg)}
}

// Approve blocks until the user answers or ctx ends. It satisfies solbc.Approver.
func (a *Approvals) Approve(ctx context.Context, req solbc.SignRequest) (bool, error) {
	reply := make(chan bool, 1)
	select {
	case a.requests <- ApprovalMsg{Request: req, reply: reply}:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Listen returns a tea.Cmd that waits for the next prompt.
func (a *Approvals) Listen() tea.Cmd {
	return func() tea.Msg {
		return <-a.requests
	}
}
