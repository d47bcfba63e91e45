// internal/amount/normalizer.go
package amount

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidAmount is the parent of every input rejection.
	ErrInvalidAmount = errors.New("invalid amount")

	ErrNegativeAmount    = &amountError{msg: "amount must not be negative"}
	ErrPrecisionExceeded = &amountError{msg: "amount has more fractional digits than the token supports"}
	ErrAmountOverflow    = &amountError{msg: "amount is too large"}
	ErrAboveLimit        = &amountError{msg: "amount exceeds the largest transferable amount"}
)

type amountError struct {
	msg string
}

func (e *amountError) Error() string { return e.msg }

// Is lets errors.Is(err, ErrInvalidAmount) match every sub-kind.
func (e *amountError) Is(target error) bool { return target == ErrInvalidAmount }

// groupingReplacer removes every separator a user may type between digit groups.
var groupingReplacer = strings.NewReplacer(",", "", "_", "", " ", "", "\u00a0", "", "\t", "")

// Normalizer turns user input into base units for a token with fixed decimals.
type Normalizer struct {
	decimals uint8
	limit    TokenAmount
}

func NewNormalizer(decimals uint8) *Normalizer {
	return &Normalizer{decimals: decimals}
}

// WithLimit returns a copy that rejects amounts above limit with ErrAboveLimit.
// A zero limit removes the check.
func (n *Normalizer) WithLimit(limit TokenAmount) *Normalizer {
	return &Normalizer{decimals: n.decimals, limit: limit}
}

// Limit is the largest accepted amount, zero when unlimited.
func (n *Normalizer) Limit() TokenAmount {
	return n.limit
}

func (n *Normalizer) Decimals() uint8 {
	return n.decimals
}

// Normalize parses a decimal string with optional grouping separators.
// Empty or non-numeric input yields zero and no error.
func (n *Normalizer) Normalize(input string) (TokenAmount, error) {
	s := groupingReplacer.Replace(strings.TrimSpace(input))

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	intPart, fracPart, ok := splitDecimal(s)
	if !ok {
		return Zero(), nil
	}

	fracPart = strings.TrimRight(fracPart, "0")
	if len(fracPart) > int(n.decimals) {
		return Zero(), ErrPrecisionExceeded
	}

	digits := intPart + fracPart + strings.Repeat("0", int(n.decimals)-len(fracPart))
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return Zero(), nil
	}
	if negative {
		return Zero(), ErrNegativeAmount
	}

	var a TokenAmount
	// digits are validated above, so the only failure left is range.
	if err := a.v.SetFromDecimal(digits); err != nil {
		return Zero(), ErrAmountOverflow
	}
	if !n.limit.IsZero() && a.GreaterThan(n.limit) {
		return Zero(), ErrAboveLimit
	}
	return a, nil
}

// MaxOf is the amount the "max" action selects: the whole balance.
func (n *Normalizer) MaxOf(balance TokenAmount) TokenAmount {
	return balance
}

// Display renders grouped whole tokens. A fractional part is shown only when
// the amount is not a whole number of tokens.
func (n *Normalizer) Display(a TokenAmount) string {
	whole, frac := n.split(a)
	out := Group(whole)
	if frac != "" {
		out += "." + frac
	}
	return out
}

// WholeDigits returns the integer whole-token part without grouping.
func (n *Normalizer) WholeDigits(a TokenAmount) string {
	whole, _ := n.split(a)
	return whole
}

func (n *Normalizer) split(a TokenAmount) (string, string) {
	s := a.String()
	d := int(n.decimals)
	if d == 0 {
		return s, ""
	}
	if len(s) <= d {
		s = strings.Repeat("0", d-len(s)+1) + s
	}
	whole := s[:len(s)-d]
	frac := strings.TrimRight(s[len(s)-d:], "0")
	return whole, frac
}

// splitDecimal validates s as [digits][.digits] with at least one digit.
func splitDecimal(s string) (string, string, bool) {
	if s == "" {
		return "", "", false
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return "", "", false
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return "", "", false
	}
	return intPart, fracPart, true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Group inserts thousands separators into a run of digits with an optional
// leading minus sign.
func Group(digits string) string {
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	if len(digits) <= 3 {
		return sign + digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return sign + b.String()
}
