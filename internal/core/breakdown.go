package core

// CurrencyAmount is one bucket of a per-currency breakdown: the portion of
// an aggregate that was recorded in a single currency. Amount is in whole
// currency units because breakdowns exist to be converted and summed.
type CurrencyAmount struct {
	Currency Currency
	Amount   float64
}

// DailyBreakdown is the spend of one calendar day split by currency.
type DailyBreakdown struct {
	Year  int
	Month int // 1-12
	Day   int
	Spend []CurrencyAmount
}

// MonthlyBreakdown is the spend of one calendar month split by currency.
type MonthlyBreakdown struct {
	Year  int
	Month int // 1-12
	Spend []CurrencyAmount
}

// CategorySpend is one category's monthly spend split by currency, paired
// with the category's budget configuration when one exists.
type CategorySpend struct {
	Category Category
	Spend    []CurrencyAmount
}
