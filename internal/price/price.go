// internal/price/price.go
package price

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNoPrice is returned when the payload carries no usable price field.
	ErrNoPrice = errors.New("price not present in response")

	// ErrMalformedPayload is returned when the response cannot be decoded.
	ErrMalformedPayload = errors.New("malformed price payload")
)

// Price is a USD quote for one whole token. The zero value means "unset".
type Price struct {
	Value     decimal.Decimal
	FetchedAt time.Time
}

// IsSet reports whether at least one fetch has succeeded.
func (p Price) IsSet() bool {
	return !p.FetchedAt.IsZero()
}

// Age reports how long ago p was fetched.
func (p Price) Age(now time.Time) time.Duration {
	if !p.IsSet() {
		return 0
	}
	return now.Sub(p.FetchedAt)
}

// Stale reports whether p is older than one poll interval. Stale prices are
// still displayed.
func (p Price) Stale(now time.Time, interval time.Duration) bool {
	return p.IsSet() && p.Age(now) > interval
}

// Source fetches the current USD price of a token.
type Source interface {
	FetchPrice(ctx context.Context, tokenAddress string) (decimal.Decimal, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, tokenAddress string) (decimal.Decimal, error)

func (f SourceFunc) FetchPrice(ctx context.Context, tokenAddress string) (decimal.Decimal, error) {
	return f(ctx, tokenAddress)
}
