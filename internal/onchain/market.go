package onchain

import (
	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/price"
	"github.com/rovshanmuradov/burn-portal/internal/valuation"
	"github.com/shopspring/decimal"
)

// Market is derived from the counters and the current price.
type Market struct {
	Price           price.Price
	RemainingSupply amount.TokenAmount
	// MarketCap is the remaining supply valued at Price, in USD.
	MarketCap decimal.Decimal
}

// DeriveMarket computes remaining supply as total minus lifetime burned and
// values it at p.
func DeriveMarket(stats Stats, p price.Price, totalSupply amount.TokenAmount, conv *valuation.Converter) Market {
	remaining := totalSupply.SaturatingSub(stats.LifetimeBurned)
	return Market{
		Price:           p,
		RemainingSupply: remaining,
		MarketCap:       conv.WholeTokens(remaining).Mul(p.Value),
	}
}
