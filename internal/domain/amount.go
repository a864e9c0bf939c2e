package domain

import (
	"fmt"
	"math/big"
	"strings"
)

// TokenDecimals is the token's native decimal precision.
// One base unit is 10^-9 of a token; all money math happens in base units.
const TokenDecimals = 9

// baseUnitsPerToken = 10^TokenDecimals.
var baseUnitsPerToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(TokenDecimals), nil)

// Amount is a token amount in base units. The zero value is zero tokens.
// Amounts are immutable: arithmetic returns new values.
type Amount struct {
	v *big.Int
}

// NewAmount creates an Amount from a base-unit count.
func NewAmount(baseUnits int64) Amount {
	return Amount{v: big.NewInt(baseUnits)}
}

// NewAmountFromBig creates an Amount from a base-unit big.Int.
// The value is copied; the caller keeps ownership of v.
func NewAmountFromBig(v *big.Int) Amount {
	if v == nil {
		return Amount{}
	}
	return Amount{v: new(big.Int).Set(v)}
}

// NewAmountFromTokens creates an Amount from a whole-token count.
func NewAmountFromTokens(tokens int64) Amount {
	return Amount{v: new(big.Int).Mul(big.NewInt(tokens), baseUnitsPerToken)}
}

// ParseAmount parses a decimal token string (e.g. "2.8") into base units.
// At most TokenDecimals fractional digits are allowed.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("parse amount: empty string")
	}

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	whole, frac := s, ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		whole, frac = s[:idx], s[idx+1:]
	}
	if len(frac) > TokenDecimals {
		return Amount{}, fmt.Errorf("parse amount %q: more than %d fractional digits", s, TokenDecimals)
	}
	// Right-pad the fraction to base-unit precision.
	frac += strings.Repeat("0", TokenDecimals-len(frac))
	if whole == "" {
		whole = "0"
	}

	v, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return Amount{}, fmt.Errorf("parse amount %q: not a decimal number", s)
	}
	if neg {
		v.Neg(v)
	}
	return Amount{v: v}, nil
}

// MustParseAmount is ParseAmount that panics on error. For constants and tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// big returns the internal value, treating the zero Amount as zero.
func (a Amount) big() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

// BaseUnits returns a copy of the amount in base units.
func (a Amount) BaseUnits() *big.Int {
	return new(big.Int).Set(a.big())
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{v: new(big.Int).Add(a.big(), b.big())}
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return Amount{v: new(big.Int).Sub(a.big(), b.big())}
}

// Cmp compares a and b: -1 if a < b, 0 if equal, +1 if a > b.
func (a Amount) Cmp(b Amount) int {
	return a.big().Cmp(b.big())
}

// Sign returns -1, 0, or +1.
func (a Amount) Sign() int {
	return a.big().Sign()
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool {
	return a.big().Sign() == 0
}

// Rat returns the amount in base units as a rational number.
func (a Amount) Rat() *big.Rat {
	return new(big.Rat).SetInt(a.big())
}

// String renders the amount in whole-token units with full precision,
// e.g. 2800000000 base units -> "2.8".
func (a Amount) String() string {
	v := a.big()
	sign := ""
	abs := new(big.Int).Abs(v)
	if v.Sign() < 0 {
		sign = "-"
	}

	whole := new(big.Int)
	frac := new(big.Int)
	whole.QuoRem(abs, baseUnitsPerToken, frac)

	if frac.Sign() == 0 {
		return sign + whole.String()
	}
	fracStr := fmt.Sprintf("%0*s", TokenDecimals, frac.String())
	fracStr = strings.TrimRight(fracStr, "0")
	return sign + whole.String() + "." + fracStr
}
