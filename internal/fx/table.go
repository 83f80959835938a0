// Package fx converts monetary amounts between currencies.
//
// A Table is always fetched with one currency as base; each entry holds how
// many units of the listed currency one unit of the base buys. Converting an
// amount into the base is therefore amount / rate, never amount * rate.
//
// Conversion fails open: a missing table, a missing entry or a zero rate
// returns the original amount unchanged. A pricing outage degrades to
// showing unconverted totals instead of hiding numbers.
package fx

import "scontrino/internal/core"

// Table maps currency codes to their rate against the table's base currency.
// Table[X] = units of X per 1 unit of base.
type Table map[core.Currency]float64

// Convert converts amount from one currency into the table's base currency.
// Identity when currencies match; unchanged when the rate is unknown or zero.
func Convert(amount float64, from core.Currency, table Table, to core.Currency) float64 {
	if from == to {
		return amount
	}
	if table == nil {
		return amount
	}
	rate, ok := table[from]
	if !ok || rate == 0 {
		return amount
	}
	return amount / rate
}

// Aggregate sums a per-currency breakdown into a single amount in the target
// currency. Duplicate currency entries sum; an empty breakdown yields 0.
func Aggregate(breakdown []core.CurrencyAmount, target core.Currency, table Table) float64 {
	var total float64
	for _, item := range breakdown {
		total += Convert(item.Amount, item.Currency, table, target)
	}
	return total
}
