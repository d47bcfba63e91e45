// internal/burn/machine.go
package burn

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/blockchain"
	"github.com/rovshanmuradov/burn-portal/internal/live"
	"github.com/rovshanmuradov/burn-portal/internal/storage/models"
	"go.uber.org/zap"
)

// User-visible outcome messages.
const (
	MsgInsufficientBalance = "Amount exceeds balance"
	MsgBurnSucceeded       = "Tokens burned successfully!"
	MsgBurnFailed          = "Failed to burn tokens. Please try again."
)

const (
	DefaultSettleTimeout  = 90 * time.Second
	DefaultRefreshTimeout = 10 * time.Second

	// LargeBurnWholeTokens is the advisory threshold in whole tokens.
	LargeBurnWholeTokens uint64 = 1_000_000_000_000
)

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notifier surfaces outcomes to the user.
type Notifier interface {
	Notify(kind Kind, message string)
}

type NotifierFunc func(kind Kind, message string)

func (f NotifierFunc) Notify(kind Kind, message string) { f(kind, message) }

// BalanceSource is the last known balance of the connected account.
type BalanceSource interface {
	Value() amount.TokenAmount
}

// Refresher forces a read of a live value.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Recorder stores settled burns.
type Recorder interface {
	Record(ctx context.Context, b *models.Burn) error
}

// Config wires a Machine to its collaborators. Wallet, Settler, Balance and
// Destination are required.
type Config struct {
	Wallet      blockchain.Wallet
	Settler     blockchain.Settler
	Balance     BalanceSource
	Destination string

	// LargeBurnThreshold is in base units. Zero means LargeBurnWholeTokens at Decimals.
	LargeBurnThreshold amount.TokenAmount
	Decimals           uint8
	// MaxAmount is the largest amount the wallet can transfer; zero means no limit.
	MaxAmount amount.TokenAmount

	// ClearAmount resets the amount field on settlement.
	ClearAmount func()
	// Refreshers are forced after settlement, typically balance and stats.
	Refreshers []Refresher
	Recorder   Recorder
	Notifier   Notifier

	// SignTimeout bounds the wallet step; zero waits for the holder indefinitely.
	SignTimeout time.Duration
	// SettleTimeout bounds settlement; zero means DefaultSettleTimeout, negative is unbounded.
	SettleTimeout time.Duration

	Now    func() time.Time
	Logger *zap.Logger
}

// Machine drives one account's burn requests through confirmation, signature,
// submission and settlement. At most one request is in flight.
//
// Observers receive every snapshot synchronously and in transition order.
// They must not call back into the machine.
type Machine struct {
	cfg    Config
	logger *zap.Logger
	cell   *live.Cell[Snapshot]
}

func NewMachine(cfg Config) *Machine {
	if cfg.LargeBurnThreshold.IsZero() {
		cfg.LargeBurnThreshold = amount.Whole(LargeBurnWholeTokens, cfg.Decimals)
	}
	if cfg.SettleTimeout == 0 {
		cfg.SettleTimeout = DefaultSettleTimeout
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NotifierFunc(func(Kind, string) {})
	}
	if cfg.ClearAmount == nil {
		cfg.ClearAmount = func() {}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Machine{
		cfg:    cfg,
		logger: cfg.Logger.Named("burn"),
		cell:   live.NewCell(Snapshot{State: Idle}),
	}
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	return m.cell.Get()
}

// Subscribe registers fn for every transition.
func (m *Machine) Subscribe(fn func(Snapshot)) live.Subscription {
	return m.cell.Subscribe(fn)
}

// IsLarge reports whether a carries the large-burn advisory.
func (m *Machine) IsLarge(a amount.TokenAmount) bool {
	return a.Cmp(m.cfg.LargeBurnThreshold) >= 0
}

// Request opens the confirmation view for a.
func (m *Machine) Request(a amount.TokenAmount) (Request, error) {
	if a.IsZero() {
		return Request{}, ErrZeroAmount
	}
	if !m.cfg.MaxAmount.IsZero() && a.GreaterThan(m.cfg.MaxAmount) {
		return Request{}, ErrAboveLimit
	}
	sender, ok := m.cfg.Wallet.ConnectedAddress()
	if !ok {
		return Request{}, ErrNotConnected
	}

	req := Request{
		ID:          uuid.New().String(),
		Amount:      a,
		Sender:      sender,
		Destination: m.cfg.Destination,
		Large:       m.IsLarge(a),
		CreatedAt:   m.cfg.Now(),
	}

	var err error
	m.cell.Update(func(old Snapshot) (Snapshot, bool) {
		if old.State != Idle {
			err = ErrBusy
			return old, false
		}
		return Snapshot{State: AwaitingConfirmation, Request: &req, DialogOpen: true}, true
	})
	if err != nil {
		return Request{}, err
	}

	m.requestLogger(&req).Info("Burn requested",
		zap.String("amount", req.Amount.String()),
		zap.Bool("large", req.Large))
	return req, nil
}

// Cancel dismisses a request awaiting confirmation. It has no other side effects.
func (m *Machine) Cancel() error {
	var req *Request
	ok := m.cell.Update(func(old Snapshot) (Snapshot, bool) {
		if old.State != AwaitingConfirmation {
			return old, false
		}
		req = old.Request
		return Snapshot{State: Cancelled, Request: old.Request}, true
	})
	if !ok {
		return ErrNoRequest
	}
	m.requestLogger(req).Info("Burn cancelled")
	m.toIdle()
	return nil
}

// Confirm runs the confirmed request to completion. It blocks through the
// signature and settlement steps and returns nil once the burn settled, or a
// *FailedError.
func (m *Machine) Confirm(ctx context.Context) error {
	var (
		req          *Request
		insufficient bool
		balance      amount.TokenAmount
	)
	ok := m.cell.Update(func(old Snapshot) (Snapshot, bool) {
		if old.State != AwaitingConfirmation {
			return old, false
		}
		req = old.Request
		balance = m.cfg.Balance.Value()
		if req.Amount.GreaterThan(balance) {
			insufficient = true
			return Snapshot{State: Failed, Reason: InsufficientBalance, Request: req, DialogOpen: true}, true
		}
		return Snapshot{State: AwaitingSignature, Request: req, DialogOpen: true}, true
	})
	if !ok {
		return ErrNoRequest
	}
	logger := m.requestLogger(req)

	if insufficient {
		logger.Warn("Burn amount exceeds balance",
			zap.String("amount", req.Amount.String()),
			zap.String("balance", balance.String()))
		m.cfg.Notifier.Notify(KindError, MsgInsufficientBalance)
		m.toIdle()
		return &FailedError{Reason: InsufficientBalance}
	}

	tx, err := m.sign(ctx, req)
	if err != nil {
		reason := TransactionError
		if errors.Is(err, blockchain.ErrUserRejected) {
			reason = TransactionRejected
		}
		return m.fail(logger, req, reason, err)
	}

	m.cell.Set(Snapshot{State: Submitted, Request: req, Signature: tx.Signature, DialogOpen: true})
	logger = logger.With(zap.String("signature", tx.Signature))
	logger.Info("Burn submitted")

	if err := m.settle(ctx, tx); err != nil {
		return m.fail(logger, req, TransactionError, err)
	}

	m.onSettled(ctx, logger, req, tx)
	return nil
}

func (m *Machine) sign(ctx context.Context, req *Request) (blockchain.TxHandle, error) {
	if m.cfg.SignTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.SignTimeout)
		defer cancel()
	}
	return m.cfg.Wallet.SignAndSend(ctx, req.Destination, req.Amount)
}

func (m *Machine) settle(ctx context.Context, tx blockchain.TxHandle) error {
	if m.cfg.SettleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.SettleTimeout)
		defer cancel()
	}
	return m.cfg.Settler.AwaitSettlement(ctx, tx)
}

// onSettled is the single settlement side-effect bundle.
func (m *Machine) onSettled(ctx context.Context, logger *zap.Logger, req *Request, tx blockchain.TxHandle) {
	m.cell.Set(Snapshot{State: Settled, Request: req, Signature: tx.Signature, DialogOpen: true})
	logger.Info("Burn settled", zap.String("amount", req.Amount.String()))

	m.cfg.ClearAmount()

	// Side effects outlive a caller that gave up after settlement.
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultRefreshTimeout)
	defer cancel()

	if m.cfg.Recorder != nil {
		entry := &models.Burn{
			ID:        req.ID,
			Signature: tx.Signature,
			Account:   req.Sender,
			Amount:    req.Amount,
			BurnedAt:  m.cfg.Now(),
		}
		if err := m.cfg.Recorder.Record(bg, entry); err != nil {
			logger.Warn("Failed to record burn", zap.Error(err))
		}
	}
	for _, r := range m.cfg.Refreshers {
		if err := r.Refresh(bg); err != nil {
			logger.Warn("Refresh after settlement failed", zap.Error(err))
		}
	}

	m.cfg.Notifier.Notify(KindSuccess, MsgBurnSucceeded)
	m.toIdle()
}

func (m *Machine) fail(logger *zap.Logger, req *Request, reason Reason, err error) error {
	m.cell.Set(Snapshot{State: Failed, Reason: reason, Request: req, DialogOpen: true, Err: err})
	logger.Warn("Burn failed", zap.Stringer("reason", reason), zap.Error(err))

	m.cfg.Notifier.Notify(KindError, MsgBurnFailed)
	m.toIdle()
	return &FailedError{Reason: reason, Err: err}
}

func (m *Machine) toIdle() {
	m.cell.Set(Snapshot{State: Idle})
}

func (m *Machine) requestLogger(req *Request) *zap.Logger {
	if req == nil {
		return m.logger
	}
	return m.logger.With(zap.String("request_id", req.ID))
}
