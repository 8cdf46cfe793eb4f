// Package money rounds monetary and metric values the way the backend
// stores them, through decimal arithmetic rather than float formatting.
package money

import "github.com/shopspring/decimal"

func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Price rounds to cents.
func Price(v float64) float64 {
	return Round(v, 2)
}

// LineTotal is unit × quantity, computed exactly and rounded to cents.
func LineTotal(unit float64, quantity int) decimal.Decimal {
	return decimal.NewFromFloat(unit).Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// Total sums the line totals and fees and rounds the result to cents.
func Total(lines []decimal.Decimal, fees ...float64) float64 {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l)
	}
	for _, f := range fees {
		sum = sum.Add(decimal.NewFromFloat(f))
	}
	return sum.Round(2).InexactFloat64()
}
