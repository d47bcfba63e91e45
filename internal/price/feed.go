// internal/price/feed.go
package price

import (
	"context"
	"errors"
	"time"

	"github.com/rovshanmuradov/burn-portal/internal/live"
	"go.uber.org/zap"
)

const (
	DefaultInterval     = 5 * time.Second
	DefaultFetchTimeout = 10 * time.Second
)

// Feed polls a Source for one token and keeps the last good Price. Polling
// runs only while the feed has subscribers.
type Feed struct {
	token   string
	source  Source
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger

	cell   *live.Cell[Price]
	poller *live.Poller
}

// FeedOption configures a Feed.
type FeedOption func(*Feed)

func WithFetchTimeout(d time.Duration) FeedOption {
	return func(f *Feed) {
		if d > 0 {
			f.timeout = d
		}
	}
}

func WithClock(now func() time.Time) FeedOption {
	return func(f *Feed) { f.now = now }
}

func NewFeed(source Source, token string, interval time.Duration, logger *zap.Logger, opts ...FeedOption) *Feed {
	if interval <= 0 {
		interval = DefaultInterval
	}
	f := &Feed{
		token:   token,
		source:  source,
		timeout: DefaultFetchTimeout,
		now:     time.Now,
		logger:  logger.Named("price_feed").With(zap.String("token", token)),
		cell:    live.NewCell(Price{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.poller = live.NewPoller("price:"+token, interval, f.tick, f.logger)
	return f
}

// Current returns the last known price, the zero Price before the first
// successful fetch. It never waits for a fetch.
func (f *Feed) Current() Price {
	return f.cell.Get()
}

// Subscribe registers fn for price changes. The first subscriber starts
// polling and the last Unsubscribe stops it.
func (f *Feed) Subscribe(fn func(Price)) live.Subscription {
	return live.Watch(f.cell, f.poller, fn)
}

// Polling reports whether the poll loop is active.
func (f *Feed) Polling() bool {
	return f.poller.Running()
}

// Close stops polling regardless of subscribers.
func (f *Feed) Close() {
	f.poller.Close()
}

func (f *Feed) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	value, err := f.source.FetchPrice(ctx, f.token)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		f.logger.Warn("Price fetch failed, keeping last known price", zap.Error(err))
		return
	}

	next := Price{Value: value, FetchedAt: f.now()}
	f.cell.Update(func(old Price) (Price, bool) {
		if !next.FetchedAt.After(old.FetchedAt) {
			f.logger.Debug("Dropping out-of-order price",
				zap.Time("fetched_at", next.FetchedAt),
				zap.Time("last_fetched_at", old.FetchedAt))
			return old, false
		}
		return next, true
	})
}
