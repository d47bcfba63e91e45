// internal/onchain/balance.go
package onchain

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/blockchain"
	"github.com/rovshanmuradov/burn-portal/internal/live"
	"go.uber.org/zap"
)

const (
	DefaultInterval    = 5 * time.Second
	DefaultReadTimeout = 10 * time.Second
)

// BalanceReader keeps the connected account's token balance fresh. It has no
// local mutation path: the value changes only through reads.
type BalanceReader struct {
	reader   blockchain.Reader
	account  blockchain.Account
	contract string
	timeout  time.Duration
	logger   *zap.Logger

	seq     atomic.Uint64
	lastSeq uint64 // guarded by the cell's write lock
	cell    *live.Cell[amount.TokenAmount]
	poller  *live.Poller
}

func NewBalanceReader(reader blockchain.Reader, account blockchain.Account, contract string, interval time.Duration, logger *zap.Logger) *BalanceReader {
	if interval <= 0 {
		interval = DefaultInterval
	}
	b := &BalanceReader{
		reader:   reader,
		account:  account,
		contract: contract,
		timeout:  DefaultReadTimeout,
		logger:   logger.Named("balance_reader"),
		cell:     live.NewCell(amount.Zero()),
	}
	b.poller = live.NewPoller("balance", interval, b.tick, b.logger)
	return b
}

// Value returns the last read balance, zero before the first read or while no
// account is connected.
func (b *BalanceReader) Value() amount.TokenAmount {
	return b.cell.Get()
}

// Subscribe registers fn for balance changes and keeps polling alive while subscribed.
func (b *BalanceReader) Subscribe(fn func(amount.TokenAmount)) live.Subscription {
	return live.Watch(b.cell, b.poller, fn)
}

// Refresh reads the balance now. Without a connected account the balance
// becomes zero and nothing is read.
func (b *BalanceReader) Refresh(ctx context.Context) error {
	seq := b.seq.Add(1)

	owner, ok := b.account.ConnectedAddress()
	if !ok {
		b.apply(seq, amount.Zero())
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	v, err := b.reader.ReadUint(ctx, b.contract, blockchain.FuncBalanceOf, owner)
	if err != nil {
		return err
	}
	b.apply(seq, v)
	return nil
}

// Close stops polling regardless of subscribers.
func (b *BalanceReader) Close() {
	b.poller.Close()
}

// apply stores v unless a later read already landed.
func (b *BalanceReader) apply(seq uint64, v amount.TokenAmount) {
	b.cell.Update(func(old amount.TokenAmount) (amount.TokenAmount, bool) {
		if seq <= b.lastSeq {
			return old, false
		}
		b.lastSeq = seq
		return v, !old.Equal(v)
	})
}

func (b *BalanceReader) tick(ctx context.Context) {
	if err := b.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Warn("Balance read failed, keeping last known balance", zap.Error(err))
	}
}
