package services

import (
	"context"
	"fmt"
	"time"

	"scontrino/internal/core"
	"scontrino/internal/fx"
	"scontrino/internal/insights"
	"scontrino/internal/storage"
)

// monthlyWindow is how many trailing months feed the forecast comparison.
const monthlyWindow = 2

// DashboardService assembles the dashboard figures: it pulls breakdowns
// from storage, rates from the provider and feeds both to the insights
// calculators.
type DashboardService struct {
	storage   *storage.SQLiteRepository
	rates     *fx.Provider
	recurring *RecurringService
}

func NewDashboardService(storage *storage.SQLiteRepository, rates *fx.Provider, recurring *RecurringService) *DashboardService {
	return &DashboardService{
		storage:   storage,
		rates:     rates,
		recurring: recurring,
	}
}

// displayTable resolves the user's display currency and its rate table.
func (s *DashboardService) displayTable(ctx context.Context, userID string) (core.Currency, fx.Table, error) {
	display, err := s.storage.DisplayCurrency(userID)
	if err != nil {
		return "", nil, fmt.Errorf("display currency: %w", err)
	}
	return display, s.rates.Rates(ctx, display), nil
}

// Forecast projects the month's spend in the user's display currency.
// Returns nil when the month has no recorded spend.
func (s *DashboardService) Forecast(ctx context.Context, userID string, year, month int, now time.Time) (*insights.MonthForecast, error) {
	display, table, err := s.displayTable(ctx, userID)
	if err != nil {
		return nil, err
	}

	daily, err := s.storage.DailySpend(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("daily spend: %w", err)
	}
	monthly, err := s.storage.MonthlySpend(ctx, year, month, monthlyWindow)
	if err != nil {
		return nil, fmt.Errorf("monthly spend: %w", err)
	}

	return insights.Forecast(daily, monthly, year, month, display, table, now), nil
}

// Budgets reports every budgeted category's progress for the month. Each
// budget is evaluated in its own currency.
func (s *DashboardService) Budgets(ctx context.Context, year, month int) ([]insights.BudgetProgress, error) {
	spends, err := s.storage.CategorySpend(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("category spend: %w", err)
	}
	return insights.BudgetReport(spends, func(base core.Currency) fx.Table {
		return s.rates.Rates(ctx, base)
	}), nil
}

// Savings reports the month's savings rate and goal progress. The overview
// is nil until the user configures an income.
func (s *DashboardService) Savings(ctx context.Context, userID string, year, month int) (*insights.SavingsOverview, []insights.GoalProgress, error) {
	display, table, err := s.displayTable(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	income, err := s.storage.GetIncome(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("income: %w", err)
	}

	monthly, err := s.storage.MonthlySpend(ctx, year, month, 1)
	if err != nil {
		return nil, nil, fmt.Errorf("monthly spend: %w", err)
	}
	var spend []core.CurrencyAmount
	for _, m := range monthly {
		if m.Year == year && m.Month == month {
			spend = m.Spend
			break
		}
	}

	goals, err := s.storage.ListSavingsGoals(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("savings goals: %w", err)
	}

	return insights.Savings(income, spend, display, table), insights.Goals(goals), nil
}

// UpcomingReport is the display form of pending recurring charges: each
// bucket truncated for rendering plus the grand total in display currency.
type UpcomingReport struct {
	Overdue  insights.TruncatedBucket `json:"overdue"`
	DueSoon  insights.TruncatedBucket `json:"dueSoon"`
	Upcoming insights.TruncatedBucket `json:"upcoming"`
	Total    float64                  `json:"total"`
	Currency core.Currency            `json:"currency"`
}

// Upcoming classifies pending recurring charges into due buckets and totals
// them in the user's display currency.
func (s *DashboardService) Upcoming(ctx context.Context, userID string, now time.Time) (*UpcomingReport, error) {
	display, table, err := s.displayTable(ctx, userID)
	if err != nil {
		return nil, err
	}

	pending, err := s.recurring.Upcoming(ctx, now)
	if err != nil {
		return nil, err
	}

	buckets := insights.ClassifyUpcoming(pending, now)
	return &UpcomingReport{
		Overdue:  insights.Truncate(buckets.Overdue),
		DueSoon:  insights.Truncate(buckets.DueSoon),
		Upcoming: insights.Truncate(buckets.Upcoming),
		Total:    buckets.Total(display, table),
		Currency: display,
	}, nil
}
