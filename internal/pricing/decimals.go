package pricing

import "github.com/shopspring/decimal"

// divisionPrecision is the number of decimal places carried by quotients.
// Matches the register width of the indexer this store is fed from.
const divisionPrecision = 34

var (
	zero = decimal.Zero
	one  = decimal.New(1, 0)
	two  = decimal.New(2, 0)
)

// ExponentToBigDecimal returns 10^decimals as a decimal scale factor.
func ExponentToBigDecimal(decimals uint8) decimal.Decimal {
	return decimal.New(1, int32(decimals))
}

// SafeDiv divides a by b, returning zero when b is zero. Every ratio in this
// package routes through it so price computation never has a failure path.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return zero
	}
	return a.DivRound(b, divisionPrecision)
}
