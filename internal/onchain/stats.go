// internal/onchain/stats.go
package onchain

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/blockchain"
	"github.com/rovshanmuradov/burn-portal/internal/live"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Stats are the aggregate burn counters, in base units.
type Stats struct {
	TotalBurned    amount.TokenAmount
	BurnedLast24h  amount.TokenAmount
	LifetimeBurned amount.TokenAmount
}

func (s Stats) Equal(o Stats) bool {
	return s.TotalBurned.Equal(o.TotalBurned) &&
		s.BurnedLast24h.Equal(o.BurnedLast24h) &&
		s.LifetimeBurned.Equal(o.LifetimeBurned)
}

// counterResult is one counter read; ok is false when the read failed.
type counterResult struct {
	value amount.TokenAmount
	ok    bool
}

// StatsAggregator reads the burn counters concurrently and keeps the last
// good value of each one.
type StatsAggregator struct {
	reader   blockchain.Reader
	contract string
	timeout  time.Duration
	logger   *zap.Logger

	seq     atomic.Uint64
	lastSeq uint64 // guarded by the cell's write lock
	cell    *live.Cell[Stats]
	poller  *live.Poller
}

func NewStatsAggregator(reader blockchain.Reader, contract string, interval time.Duration, logger *zap.Logger) *StatsAggregator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &StatsAggregator{
		reader:   reader,
		contract: contract,
		timeout:  DefaultReadTimeout,
		logger:   logger.Named("stats_aggregator"),
		cell:     live.NewCell(Stats{}),
	}
	s.poller = live.NewPoller("stats", interval, s.tick, s.logger)
	return s
}

func (s *StatsAggregator) Value() Stats {
	return s.cell.Get()
}

// Subscribe registers fn for counter changes and keeps polling alive while subscribed.
func (s *StatsAggregator) Subscribe(fn func(Stats)) live.Subscription {
	return live.Watch(s.cell, s.poller, fn)
}

// Refresh reads every counter. Counters that fail keep their previous value;
// the returned error names each failed counter.
func (s *StatsAggregator) Refresh(ctx context.Context) error {
	seq := s.seq.Add(1)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	functions := []string{
		blockchain.FuncTotalBurned,
		blockchain.FuncBurnedLast24Hours,
		blockchain.FuncLifetimeBurned,
	}
	results := make([]counterResult, len(functions))
	errs := make([]error, len(functions))

	// Plain group: one failing counter must not cancel the others.
	var g errgroup.Group
	for i, fn := range functions {
		g.Go(func() error {
			v, err := s.reader.ReadUint(ctx, s.contract, fn)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", fn, err)
				return nil
			}
			results[i] = counterResult{value: v, ok: true}
			return nil
		})
	}
	_ = g.Wait()

	s.cell.Update(func(old Stats) (Stats, bool) {
		if seq <= s.lastSeq {
			return old, false
		}
		s.lastSeq = seq

		next := old
		if r := results[0]; r.ok {
			next.TotalBurned = r.value
		}
		if r := results[1]; r.ok {
			next.BurnedLast24h = r.value
		}
		if r := results[2]; r.ok {
			next.LifetimeBurned = r.value
		}
		return next, !next.Equal(old)
	})

	return errors.Join(errs...)
}

// Close stops polling regardless of subscribers.
func (s *StatsAggregator) Close() {
	s.poller.Close()
}

func (s *StatsAggregator) tick(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("Stats read failed, keeping last known counters", zap.Error(err))
	}
}
