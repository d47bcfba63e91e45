// internal/portal/session.go
package portal

import (
	"context"
	"fmt"
	"sync"

	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/blockchain"
	"github.com/rovshanmuradov/burn-portal/internal/burn"
	"github.com/rovshanmuradov/burn-portal/internal/events"
	"github.com/rovshanmuradov/burn-portal/internal/live"
	"github.com/rovshanmuradov/burn-portal/internal/onchain"
	"github.com/rovshanmuradov/burn-portal/internal/price"
	"github.com/rovshanmuradov/burn-portal/internal/valuation"
	"go.uber.org/zap"
)

// DefaultPresets are the quick-select burn amounts in whole tokens.
var DefaultPresets = []uint64{
	1_000_000_000,
	5_000_000_000,
	10_000_000_000,
	50_000_000_000,
	100_000_000_000,
	250_000_000_000,
	500_000_000_000,
	1_000_000_000_000,
}

// Preset is one quick-select amount.
type Preset struct {
	Label  string
	Amount amount.TokenAmount
}

// Config wires a Session.
type Config struct {
	Decimals    uint8
	Symbol      string
	TokenMint   string
	TotalSupply amount.TokenAmount
	// Presets are whole-token amounts; nil means DefaultPresets.
	Presets []uint64

	Wallet  blockchain.Wallet
	Feed    *price.Feed
	Balance *onchain.BalanceReader
	Stats   *onchain.StatsAggregator
	Bus     *events.Bus

	// Machine carries the settlement collaborators. Wallet, Balance,
	// Decimals, ClearAmount, Refreshers and Notifier are filled by the Session.
	// Its MaxAmount also bounds the amount field and the presets.
	Machine burn.Config

	Logger *zap.Logger
}

// Session is the presentation-facing state of one connected account: the
// amount field, the live values and the burn machine.
type Session struct {
	cfg       Config
	normalize *amount.Normalizer
	convert   *valuation.Converter
	presets   []Preset
	machine   *burn.Machine
	amount    *live.Cell[amount.TokenAmount]
	logger    *zap.Logger

	mu   sync.Mutex
	subs []live.Subscription
}

func NewSession(cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Presets == nil {
		cfg.Presets = DefaultPresets
	}
	s := &Session{
		cfg:       cfg,
		normalize: amount.NewNormalizer(cfg.Decimals).WithLimit(cfg.Machine.MaxAmount),
		convert:   valuation.NewConverter(cfg.Decimals),
		amount:    live.NewCell(amount.Zero()),
		logger:    cfg.Logger.Named("portal"),
	}
	limit := cfg.Machine.MaxAmount
	for _, n := range cfg.Presets {
		a := amount.Whole(n, cfg.Decimals)
		if !limit.IsZero() && a.GreaterThan(limit) {
			s.logger.Warn("Preset exceeds the transfer limit, skipping",
				zap.Uint64("preset", n),
				zap.String("limit", limit.String()))
			continue
		}
		s.presets = append(s.presets, Preset{
			Label:  valuation.CompactLabel(n),
			Amount: a,
		})
	}

	mc := cfg.Machine
	mc.Wallet = cfg.Wallet
	mc.Balance = cfg.Balance
	mc.Decimals = cfg.Decimals
	mc.ClearAmount = func() { s.setAmount(amount.Zero()) }
	mc.Refreshers = append(mc.Refreshers, cfg.Balance, cfg.Stats)
	mc.Notifier = burn.NotifierFunc(s.notify)
	if mc.Logger == nil {
		mc.Logger = cfg.Logger
	}
	s.machine = burn.NewMachine(mc)
	return s
}

// Start subscribes to every live value, which starts their polling, and
// forwards changes to the bus.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) > 0 {
		return
	}

	s.subs = append(s.subs,
		s.cfg.Feed.Subscribe(func(p price.Price) {
			s.publish(&events.PriceUpdatedEvent{
				BaseEvent: events.NewBase(events.PriceUpdated),
				TokenMint: s.cfg.TokenMint,
				PriceUSD:  p.Value.String(),
				FetchedAt: p.FetchedAt,
			})
		}),
		s.cfg.Balance.Subscribe(func(v amount.TokenAmount) {
			addr, _ := s.cfg.Wallet.ConnectedAddress()
			s.publish(&events.BalanceChangedEvent{
				BaseEvent:     events.NewBase(events.BalanceChanged),
				WalletAddress: addr,
				TokenMint:     s.cfg.TokenMint,
				NewBalance:    v.String(),
			})
		}),
		s.cfg.Stats.Subscribe(func(st onchain.Stats) {
			s.publish(&events.StatsUpdatedEvent{
				BaseEvent:      events.NewBase(events.StatsUpdated),
				TotalBurned:    st.TotalBurned.String(),
				BurnedLast24h:  st.BurnedLast24h.String(),
				LifetimeBurned: st.LifetimeBurned.String(),
			})
		}),
		s.machine.Subscribe(func(snap burn.Snapshot) {
			ev := &events.BurnStateEvent{
				BaseEvent: events.NewBase(events.BurnStateChanged),
				State:     snap.State.String(),
				Reason:    snap.Reason.String(),
				Pending:   snap.IsPending(),
			}
			if snap.Request != nil {
				ev.RequestID = snap.Request.ID
				ev.Amount = snap.Request.Amount.String()
			}
			s.publish(ev)
		}),
		s.amount.Subscribe(func(v amount.TokenAmount) {
			s.publish(&events.AmountChangedEvent{
				BaseEvent: events.NewBase(events.AmountChanged),
				Amount:    v.String(),
				Display:   s.normalize.Display(v),
			})
		}),
	)
	s.logger.Debug("Session started")
}

// Close stops forwarding and polling.
func (s *Session) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	s.cfg.Feed.Close()
	s.cfg.Balance.Close()
	s.cfg.Stats.Close()
}

// Machine exposes the burn machine for observers.
func (s *Session) Machine() *burn.Machine {
	return s.machine
}

// Amount returns the current burn amount.
func (s *Session) Amount() amount.TokenAmount {
	return s.amount.Get()
}

// AmountDisplay returns the amount field as grouped digits.
func (s *Session) AmountDisplay() string {
	return s.normalize.Display(s.amount.Get())
}

// SetAmountInput parses user input into the amount field. Invalid input is
// rejected and leaves the field unchanged.
func (s *Session) SetAmountInput(input string) error {
	a, err := s.normalize.Normalize(input)
	if err != nil {
		return err
	}
	s.setAmount(a)
	return nil
}

func (s *Session) Presets() []Preset {
	return append([]Preset(nil), s.presets...)
}

// SelectPreset copies preset i into the amount field.
func (s *Session) SelectPreset(i int) error {
	if i < 0 || i >= len(s.presets) {
		return fmt.Errorf("preset %d out of range", i)
	}
	s.setAmount(s.presets[i].Amount)
	return nil
}

// SetMax copies the current balance into the amount field.
func (s *Session) SetMax() {
	s.setAmount(s.normalize.MaxOf(s.cfg.Balance.Value()))
}

// setAmount notifies only on an actual change.
func (s *Session) setAmount(a amount.TokenAmount) {
	s.amount.Update(func(old amount.TokenAmount) (amount.TokenAmount, bool) {
		return a, !old.Equal(a)
	})
}

// RequestBurn opens the confirmation view for the current amount.
func (s *Session) RequestBurn() (burn.Request, error) {
	return s.machine.Request(s.amount.Get())
}

// Confirm runs the pending request to completion.
func (s *Session) Confirm(ctx context.Context) error {
	return s.machine.Confirm(ctx)
}

// Cancel dismisses the confirmation view.
func (s *Session) Cancel() error {
	return s.machine.Cancel()
}

// Refresh forces a read of the balance and stats.
func (s *Session) Refresh(ctx context.Context) error {
	if err := s.cfg.Balance.Refresh(ctx); err != nil {
		return err
	}
	return s.cfg.Stats.Refresh(ctx)
}

func (s *Session) notify(kind burn.Kind, message string) {
	s.publish(&events.NotificationEvent{
		BaseEvent: events.NewBase(events.NotificationPosted),
		Kind:      string(kind),
		Message:   message,
	})
}

func (s *Session) publish(e events.Event) {
	if s.cfg.Bus == nil {
		return
	}
	if err := s.cfg.Bus.Publish(e); err != nil {
		s.logger.Debug("Event not published", zap.String("event_type", string(e.Type())), zap.Error(err))
	}
}
