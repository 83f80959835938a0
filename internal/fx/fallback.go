package fx

import "scontrino/internal/core"

// eurRates is the fixed fallback table, EUR base. Values are pinned, not
// live: when the rate service is down the product shows approximate totals
// rather than none. BAM is pegged to EUR at 1.95583.
var eurRates = Table{
	"EUR": 1,
	"USD": 1.09,
	"RSD": 117.2,
	"BAM": 1.95583,
}

// Fallback returns the fixed table rebased onto the given currency. An
// unknown base gets the identity-only table, so conversion falls open to
// returning original amounts.
func Fallback(base core.Currency) Table {
	baseRate, ok := eurRates[base]
	if !ok || baseRate == 0 {
		return Table{base: 1}
	}
	table := make(Table, len(eurRates))
	for code, rate := range eurRates {
		// Cross rate via EUR: units of code per 1 unit of base.
		table[code] = rate / baseRate
	}
	return table
}
