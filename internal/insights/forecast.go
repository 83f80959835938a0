// Package insights derives dashboard figures from already-fetched spend
// breakdowns: month forecasts, budget progress, savings rate and upcoming
// recurring-expense totals.
//
// Every function here is pure and total. "Cannot compute" cases resolve to
// a nil result or a zero ratio, never an error: the dashboard prefers a
// best-effort number over a failure.
package insights

import (
	"math"
	"time"

	"scontrino/internal/core"
	"scontrino/internal/fx"
)

// MonthForecast projects a month's total spend from partial-month data.
type MonthForecast struct {
	SpentSoFar         float64 `json:"spentSoFar"`
	Projected          float64 `json:"projected"`
	DailyAvg           float64 `json:"dailyAvg"`
	DaysSoFar          int     `json:"daysSoFar"`
	TotalDaysInMonth   int     `json:"totalDaysInMonth"`
	LastMonthTotal     float64 `json:"lastMonthTotal"`
	VsLastMonthPercent float64 `json:"vsLastMonthPercent"`
}

// Forecast extrapolates the given month's spend from its daily breakdowns,
// converted into the target currency. A past month is final, not projected:
// its projection equals its actual spend. Returns nil when daily stats are
// not available so callers render a placeholder instead of a fabricated zero.
func Forecast(daily []core.DailyBreakdown, monthly []core.MonthlyBreakdown, year, month int, target core.Currency, table fx.Table, now time.Time) *MonthForecast {
	if len(daily) == 0 {
		return nil
	}

	totalDays := daysInMonth(year, month)
	isCurrentMonth := now.Year() == year && int(now.Month()) == month

	daysSoFar := totalDays
	if isCurrentMonth {
		daysSoFar = now.Day()
	}

	var spentSoFar float64
	for _, d := range daily {
		spentSoFar += fx.Aggregate(d.Spend, target, table)
	}

	var dailyAvg float64
	if daysSoFar > 0 {
		dailyAvg = spentSoFar / float64(daysSoFar)
	}

	projected := spentSoFar
	if isCurrentMonth {
		projected = dailyAvg * float64(totalDays)
	}

	prevYear, prevMonth := year, month-1
	if prevMonth < 1 {
		prevMonth = 12
		prevYear--
	}
	var lastMonthTotal float64
	for _, m := range monthly {
		if m.Year == prevYear && m.Month == prevMonth {
			lastMonthTotal = fx.Aggregate(m.Spend, target, table)
			break
		}
	}

	var vsLastMonth float64
	if lastMonthTotal > 0 {
		vsLastMonth = math.Round((projected - lastMonthTotal) / lastMonthTotal * 100)
	}

	return &MonthForecast{
		SpentSoFar:         spentSoFar,
		Projected:          projected,
		DailyAvg:           dailyAvg,
		DaysSoFar:          daysSoFar,
		TotalDaysInMonth:   totalDays,
		LastMonthTotal:     lastMonthTotal,
		VsLastMonthPercent: vsLastMonth,
	}
}

// daysInMonth returns the number of calendar days, leap years included.
func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
