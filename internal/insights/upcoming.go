package insights

import (
	"time"

	"scontrino/internal/core"
	"scontrino/internal/fx"
)

// dueSoonWindow is how far ahead a due date counts as "due soon".
const dueSoonWindow = 7 * 24 * time.Hour

// bucketDisplayLimit caps how many items a bucket shows before overflowing
// into a counter.
const bucketDisplayLimit = 3

// UpcomingExpense is one pending recurring charge with its next due date.
type UpcomingExpense struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Amount   float64       `json:"amount"`
	Currency core.Currency `json:"currency"`
	DueDate  core.Date     `json:"dueDate"`
}

// UpcomingBuckets classifies pending charges relative to "now". Each expense
// lands in exactly one bucket.
type UpcomingBuckets struct {
	Overdue  []UpcomingExpense `json:"overdue"`
	DueSoon  []UpcomingExpense `json:"dueSoon"`
	Upcoming []UpcomingExpense `json:"upcoming"`
}

// ClassifyUpcoming buckets expenses by due date: before today is overdue,
// within the next seven days is due soon, the rest is upcoming. Due dates
// carry no time of day, so comparison happens at day granularity.
func ClassifyUpcoming(expenses []UpcomingExpense, now time.Time) UpcomingBuckets {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	soonCutoff := today.Add(dueSoonWindow)

	var b UpcomingBuckets
	for _, e := range expenses {
		due := e.DueDate.Time
		switch {
		case due.Before(today):
			b.Overdue = append(b.Overdue, e)
		case !due.After(soonCutoff):
			b.DueSoon = append(b.DueSoon, e)
		default:
			b.Upcoming = append(b.Upcoming, e)
		}
	}
	return b
}

// Total sums all three buckets' amounts converted into the display currency.
func (b UpcomingBuckets) Total(display core.Currency, table fx.Table) float64 {
	var total float64
	for _, bucket := range [][]UpcomingExpense{b.Overdue, b.DueSoon, b.Upcoming} {
		for _, e := range bucket {
			total += fx.Convert(e.Amount, e.Currency, table, display)
		}
	}
	return total
}

// TruncatedBucket is the display form of one bucket: at most three items
// plus a count of whatever was cut off.
type TruncatedBucket struct {
	Items    []UpcomingExpense `json:"items"`
	Overflow int               `json:"overflow"`
}

// Truncate cuts a bucket down to its first items for display.
func Truncate(items []UpcomingExpense) TruncatedBucket {
	if len(items) <= bucketDisplayLimit {
		return TruncatedBucket{Items: items}
	}
	return TruncatedBucket{
		Items:    items[:bucketDisplayLimit],
		Overflow: len(items) - bucketDisplayLimit,
	}
}
