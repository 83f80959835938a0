// Package services provides business logic and orchestration on top of
// storage, the rate provider and the message queue.
//
// This file implements the Strategy Pattern for computing when a recurring
// expense is next due. Each frequency type has its own strategy.
package services

import (
	"fmt"
	"time"

	"scontrino/internal/core"
)

// NextDueComputer is the strategy interface for computing the next due date
// of a recurring expense from its schedule and last recorded charge.
type NextDueComputer interface {
	// NextDue returns the first scheduled occurrence strictly after lastPaid.
	// A zero lastPaid means the expense was never charged, so the first
	// occurrence on or after the start date is due.
	NextDue(start, lastPaid core.Date) core.Date
}

// DailyComputer implements NextDueComputer for daily expenses.
type DailyComputer struct{}

func (DailyComputer) NextDue(start, lastPaid core.Date) core.Date {
	if lastPaid.IsZero() {
		return start
	}
	return core.Date{Time: lastPaid.AddDate(0, 0, 1)}
}

// WeeklyComputer implements NextDueComputer for weekly expenses.
type WeeklyComputer struct{}

func (WeeklyComputer) NextDue(start, lastPaid core.Date) core.Date {
	if lastPaid.IsZero() {
		return start
	}
	return core.Date{Time: lastPaid.AddDate(0, 0, 7)}
}

// MonthlyComputer implements NextDueComputer for monthly expenses. The due
// day is the start date's day of month, clamped to shorter months.
type MonthlyComputer struct{}

func (MonthlyComputer) NextDue(start, lastPaid core.Date) core.Date {
	if lastPaid.IsZero() {
		return start
	}
	year, month := lastPaid.Year(), lastPaid.Month()+1
	if month > 12 {
		month = 1
		year++
	}
	return onDayClamped(year, month, start.Day())
}

// YearlyComputer implements NextDueComputer for yearly expenses.
type YearlyComputer struct{}

func (YearlyComputer) NextDue(start, lastPaid core.Date) core.Date {
	if lastPaid.IsZero() {
		return start
	}
	return onDayClamped(lastPaid.Year()+1, start.Month(), start.Day())
}

// onDayClamped builds a date, clamping the day to the month's length so a
// charge anchored on the 31st still fires in February.
func onDayClamped(year, month, day int) core.Date {
	lastDay := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}
	return core.NewDate(year, month, day)
}

var nextDueStrategies = map[core.Frequency]NextDueComputer{
	core.Daily:   DailyComputer{},
	core.Weekly:  WeeklyComputer{},
	core.Monthly: MonthlyComputer{},
	core.Yearly:  YearlyComputer{},
}

// GetNextDueComputer returns the strategy for a frequency.
func GetNextDueComputer(frequency core.Frequency) (NextDueComputer, error) {
	computer, ok := nextDueStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return computer, nil
}
