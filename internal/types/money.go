// README: Money helpers over decimal amounts used across modules.
package types

import "github.com/shopspring/decimal"

// Currency is the only currency cards are loaded in.
const Currency = "ARS"

func Pesos(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// MustPesos parses a literal amount such as "1777.50"; it panics on bad input
// and is meant for constants and tests.
func MustPesos(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
