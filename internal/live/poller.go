// internal/live/poller.go
package live

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TickFunc performs one poll. It owns its own error handling.
type TickFunc func(ctx context.Context)

// Poller runs a TickFunc on a fixed interval while at least one holder has
// acquired it. The first Acquire starts the loop and the last release stops it.
type Poller struct {
	name     string
	interval time.Duration
	tick     TickFunc
	logger   *zap.Logger

	mu     sync.Mutex
	refs   int
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(name string, interval time.Duration, tick TickFunc, logger *zap.Logger) *Poller {
	return &Poller{
		name:     name,
		interval: interval,
		tick:     tick,
		logger:   logger.Named("poller").With(zap.String("poller", name)),
	}
}

// Acquire registers a holder and returns its release function.
func (p *Poller) Acquire() func() {
	p.mu.Lock()
	p.refs++
	if p.refs == 1 {
		p.startLocked()
	}
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(p.release)
	}
}

// Running reports whether the polling loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Wait blocks until the most recently started loop has exited or ctx is done.
func (p *Poller) Wait(ctx context.Context) error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the loop regardless of outstanding holders.
func (p *Poller) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refs = 0
	p.stopLocked()
}

func (p *Poller) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refs == 0 {
		return
	}
	p.refs--
	if p.refs == 0 {
		p.stopLocked()
	}
}

func (p *Poller) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	p.logger.Debug("Starting poller", zap.Duration("interval", p.interval))
	go p.run(ctx, done)
}

func (p *Poller) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	p.logger.Debug("Poller stopped")
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	// First poll happens immediately.
	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			p.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}
