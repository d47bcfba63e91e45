// internal/valuation/valuation.go
package valuation

import (
	"math/big"
	"strings"

	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/price"
	"github.com/shopspring/decimal"
)

const (
	fiatDigits      = 2
	maxTinyDigits   = 10
	priceDigits     = 10
	compactDigits   = 1
	zeroFiatDisplay = "$0.00"
)

var magnitudes = []struct {
	threshold decimal.Decimal
	suffix    string
}{
	{decimal.New(1, 15), "Q"},
	{decimal.New(1, 12), "T"},
	{decimal.New(1, 9), "B"},
	{decimal.New(1, 6), "M"},
	{decimal.New(1, 3), "K"},
}

// Converter turns base-unit amounts into whole-token and fiat values for a
// token with fixed decimals.
type Converter struct {
	decimals uint8
}

func NewConverter(decimals uint8) *Converter {
	return &Converter{decimals: decimals}
}

// WholeTokens shifts a base-unit amount into whole-token units exactly.
func (c *Converter) WholeTokens(a amount.TokenAmount) decimal.Decimal {
	return decimal.NewFromBigInt(a.Big(), -int32(c.decimals))
}

// ToFiat values a at price p and formats it as "$1,234.56".
func (c *Converter) ToFiat(a amount.TokenAmount, p price.Price) string {
	if a.IsZero() || p.Value.IsZero() {
		return zeroFiatDisplay
	}
	return FormatUSD(c.WholeTokens(a).Mul(p.Value))
}

// FormatUSD renders v with two fractional digits. Positive values under a
// cent keep two significant digits, up to ten fractional digits.
func FormatUSD(v decimal.Decimal) string {
	if v.IsZero() {
		return zeroFiatDisplay
	}
	sign := ""
	if v.IsNegative() {
		sign, v = "-", v.Neg()
	}

	places := int32(fiatDigits)
	if v.LessThan(decimal.New(1, -fiatDigits)) {
		places = tinyPlaces(v)
	}
	return sign + "$" + groupFixed(v.StringFixed(places))
}

// FormatPrice renders a unit price with ten fractional digits.
func FormatPrice(p price.Price) string {
	return "$" + p.Value.StringFixed(priceDigits)
}

// CompactMagnitude renders n with a K/M/B/T/Q suffix and one decimal digit.
// Values below one thousand are shown as a grouped integer.
func CompactMagnitude(n decimal.Decimal) string {
	abs := n.Abs()
	for _, m := range magnitudes {
		if abs.GreaterThanOrEqual(m.threshold) {
			return n.Div(m.threshold).StringFixed(compactDigits) + m.suffix
		}
	}
	return Grouped(n)
}

// CompactLabel renders a whole-token count as a short preset label such as
// "5B" or "1T", dropping a zero fractional digit.
func CompactLabel(n uint64) string {
	out := CompactMagnitude(decimal.NewFromBigInt(new(big.Int).SetUint64(n), 0))
	for _, m := range magnitudes {
		if strings.HasSuffix(out, ".0"+m.suffix) {
			return strings.TrimSuffix(out, ".0"+m.suffix) + m.suffix
		}
	}
	return out
}

// Grouped renders n rounded to an integer with thousands separators.
func Grouped(n decimal.Decimal) string {
	return amount.Group(n.Round(0).String())
}

func tinyPlaces(v decimal.Decimal) int32 {
	for places := int32(fiatDigits + 1); places <= maxTinyDigits; places++ {
		if !v.Truncate(places).IsZero() {
			if places+1 > maxTinyDigits {
				return maxTinyDigits
			}
			return places + 1
		}
	}
	return maxTinyDigits
}

func groupFixed(s string) string {
	whole, frac, found := strings.Cut(s, ".")
	out := amount.Group(whole)
	if found {
		out += "." + frac
	}
	return out
}
