package portal

import (
	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/burn"
	"github.com/rovshanmuradov/burn-portal/internal/onchain"
	"github.com/rovshanmuradov/burn-portal/internal/price"
	"github.com/rovshanmuradov/burn-portal/internal/valuation"
)

// Counter is a token count with its display forms.
type Counter struct {
	Amount  amount.TokenAmount
	Compact string
	Fiat    string
}

// View is everything the presentation layer renders, as display strings.
type View struct {
	Symbol    string
	Address   string
	Connected bool

	Balance     string
	BalanceFiat string

	Amount     string
	AmountFiat string
	// LargeBurn is the advisory for the current amount field.
	LargeBurn bool

	Price       string
	PriceSet    bool
	MarketCap   string
	Remaining   string
	TotalBurned Counter
	Burned24h   Counter
	Lifetime    Counter

	// RequestAmount and RequestFiat describe the request in the dialog. They
	// stay fixed while the amount field changes.
	RequestAmount string
	RequestFiat   string

	Burn  burn.Snapshot
	Steps []burn.Step
}

// View computes the current display strings. Fiat values are recomputed on
// every call and never stored.
func (s *Session) View() View {
	addr, connected := s.cfg.Wallet.ConnectedAddress()
	p := s.cfg.Feed.Current()
	balance := s.cfg.Balance.Value()
	amt := s.amount.Get()
	stats := s.cfg.Stats.Value()
	market := onchain.DeriveMarket(stats, p, s.cfg.TotalSupply, s.convert)
	snap := s.machine.Snapshot()

	v := View{
		Symbol:      s.cfg.Symbol,
		Address:     addr,
		Connected:   connected,
		Balance:     s.normalize.Display(balance),
		BalanceFiat: s.convert.ToFiat(balance, p),
		Amount:      s.normalize.Display(amt),
		AmountFiat:  s.convert.ToFiat(amt, p),
		LargeBurn:   s.machine.IsLarge(amt),
		Price:       valuation.FormatPrice(p),
		PriceSet:    p.IsSet(),
		MarketCap:   valuation.FormatUSD(market.MarketCap),
		Remaining:   valuation.Grouped(s.convert.WholeTokens(market.RemainingSupply)),
		TotalBurned: s.counter(stats.TotalBurned, p),
		Burned24h:   s.counter(stats.BurnedLast24h, p),
		Lifetime:    s.counter(stats.LifetimeBurned, p),
		Burn:        snap,
		Steps:       snap.Steps(),
	}
	if req := snap.Request; req != nil {
		v.RequestAmount = s.normalize.Display(req.Amount)
		v.RequestFiat = s.convert.ToFiat(req.Amount, p)
	}
	return v
}

func (s *Session) counter(a amount.TokenAmount, p price.Price) Counter {
	return Counter{
		Amount:  a,
		Compact: valuation.CompactMagnitude(s.convert.WholeTokens(a)),
		Fiat:    s.convert.ToFiat(a, p),
	}
}
