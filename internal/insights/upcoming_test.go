package insights

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"scontrino/internal/core"
	"scontrino/internal/fx"
)

func upcomingAt(id int64, name string, due core.Date) UpcomingExpense {
	return UpcomingExpense{ID: id, Name: name, Amount: 10, Currency: "EUR", DueDate: due}
}

func TestClassifyUpcoming(t *testing.T) {
	now := time.Date(2026, 6, 15, 14, 30, 0, 0, time.UTC)

	expenses := []UpcomingExpense{
		upcomingAt(1, "rent", core.NewDate(2026, 6, 10)),      // overdue
		upcomingAt(2, "power", core.NewDate(2026, 6, 14)),     // overdue
		upcomingAt(3, "netflix", core.NewDate(2026, 6, 15)),   // due today → due soon
		upcomingAt(4, "gym", core.NewDate(2026, 6, 22)),       // exactly 7 days → due soon
		upcomingAt(5, "insurance", core.NewDate(2026, 6, 23)), // 8 days → upcoming
		upcomingAt(6, "domain", core.NewDate(2026, 9, 1)),     // upcoming
	}

	b := ClassifyUpcoming(expenses, now)
	if len(b.Overdue) != 2 {
		t.Errorf("Overdue has %d items, want 2", len(b.Overdue))
	}
	if len(b.DueSoon) != 2 {
		t.Errorf("DueSoon has %d items, want 2", len(b.DueSoon))
	}
	if len(b.Upcoming) != 2 {
		t.Errorf("Upcoming has %d items, want 2", len(b.Upcoming))
	}

	total := len(b.Overdue) + len(b.DueSoon) + len(b.Upcoming)
	if total != len(expenses) {
		t.Errorf("buckets hold %d items total, want %d (exactly one bucket each)", total, len(expenses))
	}
}

func TestUpcomingExpense_DueDateWireFormat(t *testing.T) {
	e := upcomingAt(1, "Rent", core.NewDate(2026, 9, 1))

	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(b), `"dueDate":"2026-09-01"`) {
		t.Errorf("dueDate not serialized as plain date: %s", b)
	}
}

func TestUpcomingBuckets_Total(t *testing.T) {
	b := UpcomingBuckets{
		Overdue:  []UpcomingExpense{{Amount: 100, Currency: "EUR"}},
		DueSoon:  []UpcomingExpense{{Amount: 218, Currency: "USD"}}, // 200 EUR at 1.09
		Upcoming: []UpcomingExpense{{Amount: 50, Currency: "EUR"}},
	}
	table := fx.Table{"USD": 1.09}

	got := b.Total("EUR", table)
	if got < 349.99 || got > 350.01 {
		t.Errorf("Total() = %v, want 350", got)
	}
}

func TestUpcomingBuckets_TotalMissingRateFailsOpen(t *testing.T) {
	b := UpcomingBuckets{
		Upcoming: []UpcomingExpense{{Amount: 75, Currency: "GBP"}},
	}
	if got := b.Total("EUR", nil); got != 75 {
		t.Errorf("Total() = %v, want 75 unconverted", got)
	}
}

func TestTruncate(t *testing.T) {
	items := []UpcomingExpense{
		{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 5},
	}

	t.Run("long bucket truncates to three with overflow", func(t *testing.T) {
		got := Truncate(items)
		if len(got.Items) != 3 {
			t.Errorf("Items has %d entries, want 3", len(got.Items))
		}
		if got.Overflow != 2 {
			t.Errorf("Overflow = %d, want 2", got.Overflow)
		}
		if got.Items[0].ID != 1 || got.Items[2].ID != 3 {
			t.Error("Truncate must keep the first items in order")
		}
	})

	t.Run("short bucket passes through", func(t *testing.T) {
		got := Truncate(items[:2])
		if len(got.Items) != 2 || got.Overflow != 0 {
			t.Errorf("got %d items overflow %d, want 2/0", len(got.Items), got.Overflow)
		}
	})

	t.Run("empty bucket", func(t *testing.T) {
		got := Truncate(nil)
		if len(got.Items) != 0 || got.Overflow != 0 {
			t.Errorf("got %d items overflow %d, want 0/0", len(got.Items), got.Overflow)
		}
	})
}
