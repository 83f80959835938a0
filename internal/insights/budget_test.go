package insights

import (
	"testing"

	"scontrino/internal/core"
	"scontrino/internal/fx"
)

func TestProgress(t *testing.T) {
	tests := []struct {
		name       string
		spent      float64
		budget     float64
		wantPct    float64
		wantStatus BudgetStatus
	}{
		{name: "under budget", spent: 50, budget: 100, wantPct: 50, wantStatus: BudgetOK},
		{name: "warning at 80", spent: 80, budget: 100, wantPct: 80, wantStatus: BudgetWarning},
		{name: "warning below 100", spent: 99.5, budget: 100, wantPct: 99.5, wantStatus: BudgetWarning},
		{name: "exceeded at exactly 100", spent: 100, budget: 100, wantPct: 100, wantStatus: BudgetExceeded},
		{name: "exceeded over", spent: 150, budget: 100, wantPct: 150, wantStatus: BudgetExceeded},
		{name: "just under warning", spent: 79.9, budget: 100, wantPct: 79.9, wantStatus: BudgetOK},
		{name: "zero budget guard", spent: 42, budget: 0, wantPct: 0, wantStatus: BudgetOK},
		{name: "negative budget guard", spent: 42, budget: -10, wantPct: 0, wantStatus: BudgetOK},
		{name: "zero spend", spent: 0, budget: 100, wantPct: 0, wantStatus: BudgetOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pct, status := Progress(tt.spent, tt.budget)
			if pct != tt.wantPct {
				t.Errorf("Progress() pct = %v, want %v", pct, tt.wantPct)
			}
			if status != tt.wantStatus {
				t.Errorf("Progress() status = %v, want %v", status, tt.wantStatus)
			}
		})
	}
}

func TestBudgetReport(t *testing.T) {
	budget := core.Money{Cents: 10000} // 100.00 EUR
	spends := []core.CategorySpend{
		{
			Category: core.Category{Name: "Groceries", MonthlyBudget: &budget, BudgetCurrency: "EUR"},
			Spend: []core.CurrencyAmount{
				{Currency: "EUR", Amount: 40},
				{Currency: "USD", Amount: 80}, // 40 EUR at rate 2
			},
		},
		{
			// No budget configured: excluded from the report.
			Category: core.Category{Name: "Misc"},
			Spend:    []core.CurrencyAmount{{Currency: "EUR", Amount: 500}},
		},
	}
	tables := func(base core.Currency) fx.Table {
		if base != "EUR" {
			t.Errorf("table requested for base %s, want the budget currency EUR", base)
		}
		return fx.Table{"USD": 2.0}
	}

	report := BudgetReport(spends, tables)
	if len(report) != 1 {
		t.Fatalf("report has %d entries, want 1 (budget-less categories excluded)", len(report))
	}
	got := report[0]
	if got.Category != "Groceries" {
		t.Errorf("Category = %s, want Groceries", got.Category)
	}
	if got.Spent != 80 {
		t.Errorf("Spent = %v, want 80", got.Spent)
	}
	if got.Percentage != 80 || got.Status != BudgetWarning {
		t.Errorf("got %v%% %s, want 80%% warning", got.Percentage, got.Status)
	}
}

func TestBudgetReport_ConvertsIntoBudgetCurrencyNotDisplay(t *testing.T) {
	budget := core.Money{Cents: 2000000} // 20000 RSD
	spends := []core.CategorySpend{{
		Category: core.Category{Name: "Transport", MonthlyBudget: &budget, BudgetCurrency: "RSD"},
		Spend:    []core.CurrencyAmount{{Currency: "EUR", Amount: 100}},
	}}

	var requested core.Currency
	tables := func(base core.Currency) fx.Table {
		requested = base
		// RSD-based table: 1 RSD buys 1/117.2 EUR.
		return fx.Table{"EUR": 1.0 / 117.2}
	}

	report := BudgetReport(spends, tables)
	if requested != "RSD" {
		t.Errorf("table base = %s, want RSD (the budget currency)", requested)
	}
	if len(report) != 1 {
		t.Fatalf("report has %d entries, want 1", len(report))
	}
	if got := report[0].Spent; got < 11719 || got > 11721 {
		t.Errorf("Spent = %v RSD, want ~11720", got)
	}
}
