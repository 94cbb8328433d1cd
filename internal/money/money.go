// Package money provides exact decimal arithmetic for monetary amounts.
// All prices, totals and savings figures flow through shopspring decimals;
// float64 never touches a monetary column.
package money

import "github.com/shopspring/decimal"

// Money is an exact decimal amount in the organization's currency.
type Money = decimal.Decimal

// NullMoney is a nullable amount (unquoted thread, missing total).
type NullMoney = decimal.NullDecimal

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// FromCents builds an amount from an integer number of cents.
func FromCents(cents int64) Money {
	return decimal.New(cents, -2)
}

// FromInt builds a whole-unit amount (quantities, counters).
func FromInt(n int64) Money {
	return decimal.NewFromInt(n)
}

// FromFloat converts a float input (JSON payloads) to an amount rounded to cents.
func FromFloat(f float64) Money {
	return decimal.NewFromFloat(f).Round(2)
}

// Parse parses a decimal string ("420.50").
func Parse(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// Some returns a non-null NullMoney.
func Some(m Money) NullMoney {
	return decimal.NullDecimal{Decimal: m, Valid: true}
}

// None returns the null amount.
func None() NullMoney {
	return decimal.NullDecimal{}
}

// Cents rounds an amount to two decimal places.
func Cents(m Money) Money {
	return m.Round(2)
}

// SafeDivide returns a/b rounded to the given precision, or zero when b is zero.
func SafeDivide(a, b Money, places int32) Money {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, places)
}

// Percent returns part/whole*100 rounded to two decimals, guarded against a
// zero denominator.
func Percent(part, whole Money) Money {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(decimal.NewFromInt(100)).DivRound(whole, 2)
}

// Allocate splits total across weights proportionally, rounding each share to
// cents and assigning the remainder to the final entry so the shares always
// sum to exactly total. Weights must be non-negative; when all weights are
// zero the total is assigned entirely to the last entry.
func Allocate(total Money, weights []Money) []Money {
	shares := make([]Money, len(weights))
	if len(weights) == 0 {
		return shares
	}
	sum := decimal.Zero
	for _, w := range weights {
		sum = sum.Add(w)
	}
	if sum.IsZero() {
		for i := range shares {
			shares[i] = decimal.Zero
		}
		shares[len(shares)-1] = Cents(total)
		return shares
	}
	allocated := decimal.Zero
	last := len(weights) - 1
	for i, w := range weights {
		if i == last {
			break
		}
		share := total.Mul(w).DivRound(sum, 2)
		shares[i] = share
		allocated = allocated.Add(share)
	}
	shares[last] = Cents(total).Sub(allocated)
	return shares
}
