// internal/live/cell.go
package live

import (
	"sync"

	"github.com/google/uuid"
)

// Subscription represents a registered listener.
type Subscription interface {
	// Unsubscribe removes the listener. Calling it more than once is safe.
	Unsubscribe()
}

// SubscriptionFunc adapts a plain function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Unsubscribe() { f() }

// Cell holds the latest value of something that changes over time and
// notifies listeners synchronously, in write order, on every change.
//
// Listeners must not write to the cell that is notifying them.
type Cell[T any] struct {
	mu        sync.RWMutex
	value     T
	listeners map[string]func(T)
	order     []string

	// notifyMu serializes write+notify so listeners never observe values out of order.
	notifyMu sync.Mutex
}

func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{
		value:     initial,
		listeners: make(map[string]func(T)),
	}
}

// Get returns the current value without blocking on writers' listeners.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set stores v and notifies every listener.
func (c *Cell[T]) Set(v T) {
	c.Update(func(T) (T, bool) { return v, true })
}

// Update applies fn to the current value. When fn reports a change the new
// value is stored and listeners are notified; otherwise nothing happens.
func (c *Cell[T]) Update(fn func(old T) (T, bool)) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	next, changed := fn(c.value)
	if !changed {
		c.mu.Unlock()
		return false
	}
	c.value = next
	listeners := c.snapshotLocked()
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return true
}

// Subscribe registers fn for future changes. It does not replay the current value.
func (c *Cell[T]) Subscribe(fn func(T)) Subscription {
	id := uuid.New().String()

	c.mu.Lock()
	c.listeners[id] = fn
	c.order = append(c.order, id)
	c.mu.Unlock()

	var once sync.Once
	return SubscriptionFunc(func() {
		once.Do(func() { c.remove(id) })
	})
}

// Listeners reports how many listeners are registered.
func (c *Cell[T]) Listeners() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.listeners)
}

func (c *Cell[T]) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.listeners, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cell[T]) snapshotLocked() []func(T) {
	out := make([]func(T), 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.listeners[id])
	}
	return out
}
