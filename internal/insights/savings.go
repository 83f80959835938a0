package insights

import (
	"scontrino/internal/core"
	"scontrino/internal/fx"
)

// SavingsOverview is the monthly savings picture in the display currency.
type SavingsOverview struct {
	Income      float64 `json:"income"`
	Spent       float64 `json:"spent"`
	Saved       float64 `json:"saved"`
	SavingsRate float64 `json:"savingsRate"`
}

// Savings derives saved amount and savings rate from configured income and
// the month's spend breakdown, both converted into the display currency.
// Saved may be negative. Returns nil when no income is configured: that is
// a "set up your income" state, not a zero-income calculation.
func Savings(income *core.MonthlyIncome, spend []core.CurrencyAmount, display core.Currency, table fx.Table) *SavingsOverview {
	if income == nil {
		return nil
	}

	incomeConverted := fx.Convert(income.Amount.Float(), income.Currency, table, display)
	spentConverted := fx.Aggregate(spend, display, table)

	saved := incomeConverted - spentConverted
	var rate float64
	if incomeConverted > 0 {
		rate = saved / incomeConverted * 100
	}

	return &SavingsOverview{
		Income:      incomeConverted,
		Spent:       spentConverted,
		Saved:       saved,
		SavingsRate: rate,
	}
}

// GoalProgress is a savings goal's completion in its own currency.
type GoalProgress struct {
	Name       string        `json:"name"`
	Target     float64       `json:"target"`
	Saved      float64       `json:"saved"`
	Currency   core.Currency `json:"currency"`
	Percentage float64       `json:"percentage"`
}

// Goals computes completion percentage per savings goal. A zero target
// yields 0% rather than a division by zero.
func Goals(goals []core.SavingsGoal) []GoalProgress {
	var out []GoalProgress
	for _, g := range goals {
		var pct float64
		if g.Target.Cents > 0 {
			pct = g.Saved.Float() / g.Target.Float() * 100
		}
		out = append(out, GoalProgress{
			Name:       g.Name,
			Target:     g.Target.Float(),
			Saved:      g.Saved.Float(),
			Currency:   g.Currency,
			Percentage: pct,
		})
	}
	return out
}
