// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Burn flow events
	BurnStateChanged   EventType = "burn.state_changed"
	NotificationPosted EventType = "notification.posted"

	// Live value events
	PriceUpdated   EventType = "price.updated"
	BalanceChanged EventType = "balance.changed"
	StatsUpdated   EventType = "stats.updated"
	AmountChanged  EventType = "amount.changed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// NewBase stamps an event of type t with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// NotificationEvent is a user-visible message.
type NotificationEvent struct {
	BaseEvent
	Kind    string // "success", "error" or "info"
	Message string
}

// BurnStateEvent is emitted on every burn state transition.
type BurnStateEvent struct {
	BaseEvent
	RequestID string
	State     string
	Reason    string
	Amount    string // base units
	Pending   bool
}

// PriceUpdatedEvent is emitted when a new token price is fetched.
type PriceUpdatedEvent struct {
	BaseEvent
	TokenMint string
	PriceUSD  string
	FetchedAt time.Time
}

// BalanceChangedEvent is emitted when the connected account's balance changes.
type BalanceChangedEvent struct {
	BaseEvent
	WalletAddress string
	TokenMint     string
	OldBalance    string
	NewBalance    string
}

// StatsUpdatedEvent carries the burn counters in base units.
type StatsUpdatedEvent struct {
	BaseEvent
	TotalBurned    string
	BurnedLast24h  string
	LifetimeBurned string
}

// AmountChangedEvent is emitted when the burn amount field changes.
type AmountChangedEvent struct {
	BaseEvent
	Amount  string // base units
	Display string
}
