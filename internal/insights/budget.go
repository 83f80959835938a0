package insights

import (
	"scontrino/internal/core"
	"scontrino/internal/fx"
)

const (
	BudgetOK       BudgetStatus = "ok"
	BudgetWarning  BudgetStatus = "warning"
	BudgetExceeded BudgetStatus = "exceeded"
)

type BudgetStatus string

// Fixed thresholds, deliberately not configurable per category.
const (
	warningThreshold  = 80
	exceededThreshold = 100
)

// BudgetProgress is one category's budget consumption for a month, in the
// budget's own currency.
type BudgetProgress struct {
	Category   string        `json:"category"`
	Spent      float64       `json:"spent"`
	Budget     float64       `json:"budget"`
	Currency   core.Currency `json:"currency"`
	Percentage float64       `json:"percentage"`
	Status     BudgetStatus  `json:"status"`
}

// Progress computes the consumed percentage and its status classification.
// A zero budget yields 0%/ok rather than a division by zero.
func Progress(spent, budget float64) (float64, BudgetStatus) {
	if budget <= 0 {
		return 0, BudgetOK
	}
	pct := spent / budget * 100
	switch {
	case pct >= exceededThreshold:
		return pct, BudgetExceeded
	case pct >= warningThreshold:
		return pct, BudgetWarning
	default:
		return pct, BudgetOK
	}
}

// BudgetReport evaluates every category that has a configured budget.
// Spend converts into each category's budget currency, not the display
// currency, so the table must be based on the budget currency. Categories
// without a budget are excluded.
func BudgetReport(spends []core.CategorySpend, tables func(base core.Currency) fx.Table) []BudgetProgress {
	var report []BudgetProgress
	for _, cs := range spends {
		budget := cs.Category.MonthlyBudget
		if budget == nil {
			continue
		}
		table := tables(cs.Category.BudgetCurrency)
		spent := fx.Aggregate(cs.Spend, cs.Category.BudgetCurrency, table)
		pct, status := Progress(spent, budget.Float())
		report = append(report, BudgetProgress{
			Category:   cs.Category.Name,
			Spent:      spent,
			Budget:     budget.Float(),
			Currency:   cs.Category.BudgetCurrency,
			Percentage: pct,
			Status:     status,
		})
	}
	return report
}
