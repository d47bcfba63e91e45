package onchain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/blockchain"
	"github.com/rovshanmuradov/burn-portal/internal/price"
	"github.com/rovshanmuradov/burn-portal/internal/valuation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testContract = "KitaMint1111111111111111111111111111111111"

type fakeReader struct {
	mu     sync.Mutex
	values map[string]amount.TokenAmount
	errs   map[string]error
	calls  map[string]int
	owners []string
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		values: map[string]amount.TokenAmount{},
		errs:   map[string]error{},
		calls:  map[string]int{},
	}
}

func (f *fakeReader) set(function string, v amount.TokenAmount, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[function] = v
	f.errs[function] = err
}

func (f *fakeReader) ReadUint(_ context.Context, contract, function string, args ...string) (amount.TokenAmount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[function]++
	if function == blockchain.FuncBalanceOf {
		f.owners = append(f.owners, args...)
	}
	if contract != testContract {
		return amount.Zero(), blockchain.ErrUnknownContract
	}
	if err := f.errs[function]; err != nil {
		return amount.Zero(), err
	}
	return f.values[function], nil
}

type fakeAccount struct {
	mu   sync.Mutex
	addr string
}

func (a *fakeAccount) ConnectedAddress() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr, a.addr != ""
}

func TestBalanceReaderRefresh(t *testing.T) {
	r := newFakeReader()
	r.set(blockchain.FuncBalanceOf, amount.Whole(5_000_000_000, 9), nil)
	acct := &fakeAccount{addr: "owner"}
	b := NewBalanceReader(r, acct, testContract, time.Hour, zaptest.NewLogger(t))
	defer b.Close()

	assert.True(t, b.Value().IsZero())

	var seen []amount.TokenAmount
	sub := b.cell.Subscribe(func(v amount.TokenAmount) { seen = append(seen, v) })
	defer sub.Unsubscribe()

	require.NoError(t, b.Refresh(context.Background()))
	assert.True(t, b.Value().Equal(amount.Whole(5_000_000_000, 9)))
	assert.Equal(t, []string{"owner"}, r.owners)

	require.NoError(t, b.Refresh(context.Background()))
	assert.Len(t, seen, 1, "unchanged balance does not notify")
}

func TestBalanceReaderKeepsValueOnFailure(t *testing.T) {
	r := newFakeReader()
	r.set(blockchain.FuncBalanceOf, amount.FromUint64(42), nil)
	b := NewBalanceReader(r, &fakeAccount{addr: "owner"}, testContract, time.Hour, zaptest.NewLogger(t))
	defer b.Close()

	require.NoError(t, b.Refresh(context.Background()))
	r.set(blockchain.FuncBalanceOf, amount.Zero(), errors.New("rpc down"))

	b.tick(context.Background())
	assert.Equal(t, "42", b.Value().String())
}

func TestBalanceReaderWithoutAccount(t *testing.T) {
	r := newFakeReader()
	acct := &fakeAccount{addr: "owner"}
	r.set(blockchain.FuncBalanceOf, amount.FromUint64(7), nil)
	b := NewBalanceReader(r, acct, testContract, time.Hour, zaptest.NewLogger(t))
	defer b.Close()

	require.NoError(t, b.Refresh(context.Background()))
	assert.Equal(t, "7", b.Value().String())

	acct.mu.Lock()
	acct.addr = ""
	acct.mu.Unlock()

	require.NoError(t, b.Refresh(context.Background()))
	assert.True(t, b.Value().IsZero())
	assert.Equal(t, 1, r.calls[blockchain.FuncBalanceOf], "no read while disconnected")
}

func TestBalanceReaderPollsWhileSubscribed(t *testing.T) {
	r := newFakeReader()
	r.set(blockchain.FuncBalanceOf, amount.FromUint64(9), nil)
	b := NewBalanceReader(r, &fakeAccount{addr: "owner"}, testContract, time.Hour, zaptest.NewLogger(t))
	defer b.Close()

	got := make(chan amount.TokenAmount, 1)
	sub := b.Subscribe(func(v amount.TokenAmount) { got <- v })

	select {
	case v := <-got:
		assert.Equal(t, "9", v.String())
	case <-time.After(time.Second):
		t.Fatal("expected an immediate read")
	}
	sub.Unsubscribe()
	assert.False(t, b.poller.Running())
}

func TestStatsAggregatorKeepsFailedCounters(t *testing.T) {
	r := newFakeReader()
	r.set(blockchain.FuncTotalBurned, amount.FromUint64(100), nil)
	r.set(blockchain.FuncBurnedLast24Hours, amount.FromUint64(10), nil)
	r.set(blockchain.FuncLifetimeBurned, amount.FromUint64(1_000), nil)
	s := NewStatsAggregator(r, testContract, time.Hour, zaptest.NewLogger(t))
	defer s.Close()

	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, "100", s.Value().TotalBurned.String())

	r.set(blockchain.FuncTotalBurned, amount.FromUint64(200), nil)
	r.set(blockchain.FuncBurnedLast24Hours, amount.Zero(), errors.New("timeout"))
	r.set(blockchain.FuncLifetimeBurned, amount.FromUint64(1_100), nil)

	err := s.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), blockchain.FuncBurnedLast24Hours)

	got := s.Value()
	assert.Equal(t, "200", got.TotalBurned.String())
	assert.Equal(t, "10", got.BurnedLast24h.String(), "failed counter keeps its value")
	assert.Equal(t, "1100", got.LifetimeBurned.String())
}

func TestDeriveMarket(t *testing.T) {
	total := amount.Whole(1_000_000_000_000_000, 9)
	stats := Stats{LifetimeBurned: amount.Whole(250_000_000_000_000, 9)}
	p := price.Price{Value: decimal.RequireFromString("0.000001"), FetchedAt: time.Now()}

	m := DeriveMarket(stats, p, total, valuation.NewConverter(9))
	assert.True(t, m.RemainingSupply.Equal(amount.Whole(750_000_000_000_000, 9)))
	assert.Equal(t, "750000000", m.MarketCap.String())

	over := DeriveMarket(Stats{LifetimeBurned: amount.Whole(2, 9)}, p, amount.Whole(1, 9), valuation.NewConverter(9))
	assert.True(t, over.RemainingSupply.IsZero())
}
