// internal/amount/amount.go
package amount

import (
	"fmt"
	"math"
	"math/big"

	"github.com/holiman/uint256"
)

// TokenAmount is an exact quantity in the token's base units.
// The zero value is a valid zero amount.
type TokenAmount struct {
	v uint256.Int
}

// Zero returns the zero amount.
func Zero() TokenAmount {
	return TokenAmount{}
}

// FromUint64 builds an amount from a base-unit integer.
func FromUint64(n uint64) TokenAmount {
	var a TokenAmount
	a.v.SetUint64(n)
	return a
}

// MaxUint64 is the largest amount a uint64 holds.
func MaxUint64() TokenAmount {
	return FromUint64(math.MaxUint64)
}

// FromBaseUnits parses a plain base-10 integer string as returned by RPC nodes
// and SQL aggregates.
func FromBaseUnits(s string) (TokenAmount, error) {
	var a TokenAmount
	if s == "" {
		return a, nil
	}
	if err := a.v.SetFromDecimal(s); err != nil {
		return TokenAmount{}, fmt.Errorf("parse base units %q: %w", s, err)
	}
	return a, nil
}

// FromBig converts a big.Int, failing on negative or oversized values.
func FromBig(b *big.Int) (TokenAmount, error) {
	if b.Sign() < 0 {
		return TokenAmount{}, ErrNegativeAmount
	}
	var a TokenAmount
	if overflow := a.v.SetFromBig(b); overflow {
		return TokenAmount{}, ErrAmountOverflow
	}
	return a, nil
}

// Whole returns n whole tokens expressed in base units.
func Whole(n uint64, decimals uint8) TokenAmount {
	scale := pow10(decimals)
	var a TokenAmount
	a.v.Mul(uint256.NewInt(n), &scale)
	return a
}

func (a TokenAmount) IsZero() bool {
	return a.v.IsZero()
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a TokenAmount) Cmp(b TokenAmount) int {
	return a.v.Cmp(&b.v)
}

func (a TokenAmount) Equal(b TokenAmount) bool {
	return a.v.Eq(&b.v)
}

func (a TokenAmount) GreaterThan(b TokenAmount) bool {
	return a.v.Gt(&b.v)
}

// Add returns a+b and whether the sum overflowed.
func (a TokenAmount) Add(b TokenAmount) (TokenAmount, bool) {
	var out TokenAmount
	_, overflow := out.v.AddOverflow(&a.v, &b.v)
	return out, overflow
}

// SaturatingSub returns a-b, or zero when b exceeds a.
func (a TokenAmount) SaturatingSub(b TokenAmount) TokenAmount {
	if b.v.Gt(&a.v) {
		return TokenAmount{}
	}
	var out TokenAmount
	out.v.Sub(&a.v, &b.v)
	return out
}

// Uint64 returns the amount as uint64 when it fits.
func (a TokenAmount) Uint64() (uint64, bool) {
	if !a.v.IsUint64() {
		return 0, false
	}
	return a.v.Uint64(), true
}

func (a TokenAmount) Big() *big.Int {
	return a.v.ToBig()
}

// String renders the raw base-unit integer.
func (a TokenAmount) String() string {
	return a.v.Dec()
}

func pow10(decimals uint8) uint256.Int {
	var scale uint256.Int
	scale.Exp(uint256.NewInt(10), uint256.NewInt(uint64(decimals)))
	return scale
}

// MarshalText encodes the base-unit integer, keeping JSON exports exact.
func (a TokenAmount) MarshalText() ([]byte, error) {
	return []byte(a.v.Dec()), nil
}

func (a *TokenAmount) UnmarshalText(b []byte) error {
	parsed, err := FromBaseUnits(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
