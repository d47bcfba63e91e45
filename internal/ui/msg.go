package ui

import (
	"context"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/burn-portal/internal/events"
	"go.uber.org/zap"
)

// EventMsg delivers a bus event to the program.
type EventMsg struct {
	Event events.Event
}

// burnDoneMsg reports the end of a Confirm run.
type burnDoneMsg struct {
	err error
}

// refreshDoneMsg reports the end of a manual refresh.
type refreshDoneMsg struct {
	err error
}

type tickMsg time.Time

// uiEventTypes are the bus events the program renders.
var uiEventTypes = []events.EventType{
	events.BurnStateChanged,
	events.NotificationPosted,
	events.PriceUpdated,
	events.BalanceChanged,
	events.StatsUpdated,
	events.AmountChanged,
}

// Bridge forwards bus events into a channel the program listens on. Events
// are dropped when the program falls behind.
type Bridge struct {
	ch      chan tea.Msg
	subs    []events.Subscription
	dropped atomic.Uint64
	logger  *zap.Logger
}

func NewBridge(bus *events.Bus, logger *zap.Logger) *Bridge {
	b := &Bridge{
		ch:     make(chan tea.Msg, 256),
		logger: logger.Named("ui_bridge"),
	}
	for _, t := range uiEventTypes {
		b.subs = append(b.subs, bus.SubscribeFunc(t, b.forward))
	}
	return b
}

func (b *Bridge) forward(_ context.Context, e events.Event) error {
	select {
	case b.ch <- EventMsg{Event: e}:
	default:
		if b.dropped.Add(1)%100 == 1 {
			b.logger.Debug("UI event dropped", zap.String("event_type", string(e.Type())))
		}
	}
	return nil
}

// Listen returns a tea.Cmd that waits for the next event.
func (b *Bridge) Listen() tea.Cmd {
	return func() tea.Msg {
		return <-b.ch
	}
}

// Dropped returns the number of events the program missed.
func (b *Bridge) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Bridge) Close() {
	for _, s := range b.subs {
		s.Unsubscribe()
	}
	b.subs = nil
}

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
