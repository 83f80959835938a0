package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"scontrino/internal/core"
	"scontrino/internal/insights"
	"scontrino/internal/storage"
)

// RecurringService manages recurring expense templates and derives their
// pending charges.
type RecurringService struct {
	storage *storage.SQLiteRepository
}

func NewRecurringService(storage *storage.SQLiteRepository) *RecurringService {
	return &RecurringService{storage: storage}
}

func (s *RecurringService) Create(ctx context.Context, re core.RecurringExpense) (int64, error) {
	if err := re.Validate(); err != nil {
		return 0, err
	}
	return s.storage.CreateRecurring(ctx, re)
}

func (s *RecurringService) Delete(ctx context.Context, id int64) error {
	return s.storage.DeleteRecurring(ctx, id)
}

// MarkPaid records a charge so the next due date advances.
func (s *RecurringService) MarkPaid(ctx context.Context, id int64, on time.Time) error {
	return s.storage.MarkRecurringPaid(ctx, id, on)
}

// Upcoming returns every active recurring expense with its next due date,
// ready for bucket classification. Expenses whose schedule ends before
// their next occurrence are skipped.
func (s *RecurringService) Upcoming(ctx context.Context, now time.Time) ([]insights.UpcomingExpense, error) {
	rows, err := s.storage.ActiveRecurring(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("load recurring expenses: %w", err)
	}

	var pending []insights.UpcomingExpense
	for _, row := range rows {
		computer, err := GetNextDueComputer(row.Expense.Every)
		if err != nil {
			slog.WarnContext(ctx, "Skipping recurring expense",
				"id", row.Expense.ID, "error", err)
			continue
		}
		due := computer.NextDue(row.Expense.StartDate, row.LastPaid)
		if !row.Expense.EndDate.IsZero() && due.After(row.Expense.EndDate.Time) {
			continue
		}
		pending = append(pending, insights.UpcomingExpense{
			ID:       row.Expense.ID,
			Name:     row.Expense.Name,
			Amount:   row.Expense.Amount.Float(),
			Currency: row.Expense.Currency,
			DueDate:  due,
		})
	}
	return pending, nil
}
