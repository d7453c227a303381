package unit

import "github.com/shopspring/decimal"

// MinorDigits is the number of fractional digits used for stored money amounts.
const MinorDigits = 2

// ToMinorUnits converts a monetary amount into integer minor units, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(MinorDigits).Round(0).IntPart()
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -MinorDigits)
}
