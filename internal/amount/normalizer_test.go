package amount

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer(9)

	tests := []struct {
		name  string
		input string
		want  string
		err   error
	}{
		{name: "plain integer", input: "1000", want: "1000000000000"},
		{name: "grouped integer", input: "10,000,000,000", want: "10000000000000000000"},
		{name: "underscores and spaces", input: " 1_000 000 ", want: "1000000000000"},
		{name: "fraction", input: "1.5", want: "1500000000"},
		{name: "leading dot", input: ".25", want: "250000000"},
		{name: "trailing dot", input: "7.", want: "7000000000"},
		{name: "smallest unit", input: "0.000000001", want: "1"},
		{name: "trailing zeros beyond precision", input: "2.5000000000000", want: "2500000000"},
		{name: "empty", input: "", want: "0"},
		{name: "letters", input: "abc", want: "0"},
		{name: "two dots", input: "1.2.3", want: "0"},
		{name: "lone dot", input: ".", want: "0"},
		{name: "negative zero", input: "-0", want: "0"},
		{name: "negative", input: "-5", err: ErrNegativeAmount},
		{name: "too precise", input: "0.0000000001", err: ErrPrecisionExceeded},
		{name: "one quadrillion", input: "1,000,000,000,000,000", want: "1000000000000000000000000"},
		{name: "beyond 256 bits", input: "1" + zeros(80), err: ErrAmountOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(tt.input)
			if tt.err != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.err)
				assert.ErrorIs(t, err, ErrInvalidAmount)
				assert.True(t, got.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestDisplay(t *testing.T) {
	n := NewNormalizer(9)

	tests := []struct {
		in   TokenAmount
		want string
	}{
		{Zero(), "0"},
		{Whole(999, 9), "999"},
		{Whole(1000, 9), "1,000"},
		{Whole(10_000_000_000, 9), "10,000,000,000"},
		{FromUint64(1_500_000_000), "1.5"},
		{FromUint64(1), "0.000000001"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, n.Display(tt.in))
	}
}

func TestNormalizeDisplayRoundTrip(t *testing.T) {
	n := NewNormalizer(9)
	inputs := []string{
		"0", "1", "999", "1000", "1,234,567", "5000000000", "1.5", "0.000000001",
		"123456789.987654321", "1,000,000,000,000", "1000000000000000",
	}
	for _, in := range inputs {
		first, err := n.Normalize(in)
		require.NoError(t, err, in)

		second, err := n.Normalize(n.Display(first))
		require.NoError(t, err, in)
		assert.True(t, first.Equal(second), "round trip of %q: %s != %s", in, first, second)
	}
}

func TestNormalizeWithLimit(t *testing.T) {
	n := NewNormalizer(4).WithLimit(MaxUint64())
	assert.Equal(t, MaxUint64(), n.Limit())

	got, err := n.Normalize("1,000,000,000,000")
	require.NoError(t, err)
	assert.Equal(t, "10000000000000000", got.String())

	// 1,844,674,407,370,955.1615 is the last base unit a u64 holds.
	got, err = n.Normalize("1,844,674,407,370,955.1615")
	require.NoError(t, err)
	assert.True(t, got.Equal(MaxUint64()))

	got, err = n.Normalize("1,844,674,407,370,955.1616")
	assert.ErrorIs(t, err, ErrAboveLimit)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.True(t, got.IsZero())

	unlimited, err := NewNormalizer(4).Normalize("1,844,674,407,370,955.1616")
	require.NoError(t, err)
	assert.Equal(t, "18446744073709551616", unlimited.String())
}

func TestMaxOfIsIdentity(t *testing.T) {
	n := NewNormalizer(9)
	balance := Whole(2_000_000_000_000, 9)

	first := n.MaxOf(balance)
	second := n.MaxOf(first)
	assert.True(t, first.Equal(balance))
	assert.True(t, second.Equal(balance))
}

func TestGroup(t *testing.T) {
	assert.Equal(t, "0", Group("0"))
	assert.Equal(t, "100", Group("100"))
	assert.Equal(t, "1,000", Group("1000"))
	assert.Equal(t, "100,000", Group("100000"))
	assert.Equal(t, "-1,000,000", Group("-1000000"))
}

func TestTokenAmountArithmetic(t *testing.T) {
	a := FromUint64(10)
	b := FromUint64(3)

	sum, overflow := a.Add(b)
	assert.False(t, overflow)
	assert.Equal(t, "13", sum.String())

	assert.Equal(t, "7", a.SaturatingSub(b).String())
	assert.True(t, b.SaturatingSub(a).IsZero())
	assert.True(t, a.GreaterThan(b))
	assert.Equal(t, -1, b.Cmp(a))

	v, ok := a.Uint64()
	assert.True(t, ok)
	assert.Equal(t, uint64(10), v)

	parsed, err := FromBaseUnits("1000000000000000000000000")
	require.NoError(t, err)
	_, ok = parsed.Uint64()
	assert.False(t, ok)

	_, err = FromBaseUnits("12x")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidAmount))
}

func zeros(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '0'
	}
	return string(b)
}

func TestTokenAmountText(t *testing.T) {
	a, err := FromBaseUnits("1000000000000000000000000")
	require.NoError(t, err)

	b, err := json.Marshal(struct {
		Amount TokenAmount `json:"amount"`
	}{a})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"1000000000000000000000000"}`, string(b))

	var back struct {
		Amount TokenAmount `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, a.Equal(back.Amount))
}
