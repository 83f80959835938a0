package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
	Weekly  Frequency = "weekly"
	Daily   Frequency = "daily"
)

type (
	Frequency string

	// Currency is an ISO 4217 code such as "EUR" or "RSD".
	Currency string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Receipt is a single scanned or manually entered purchase.
	Receipt struct {
		ID             int64
		Date           Date
		Merchant       string
		Amount         Money
		Currency       Currency
		Category       string
		WarrantyMonths int // 0 means no warranty tracked
	}

	// Category groups receipts; a monthly budget is optional and carries
	// its own currency, independent of the user's display currency.
	Category struct {
		Name           string
		MonthlyBudget  *Money
		BudgetCurrency Currency
	}

	// RecurringExpense is a subscription or other repeating charge.
	RecurringExpense struct {
		ID        int64
		Name      string
		Amount    Money
		Currency  Currency
		StartDate Date
		EndDate   Date // zero means open-ended
		Every     Frequency
	}

	// MonthlyIncome is the user's configured income for savings tracking.
	MonthlyIncome struct {
		Amount   Money
		Currency Currency
	}

	// SavingsGoal tracks progress toward a target amount in its own currency.
	SavingsGoal struct {
		ID       int64
		Name     string
		Target   Money
		Saved    Money
		Currency Currency
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCurrency = errors.New("invalid currency code")
	ErrEmptyMerchant   = errors.New("empty merchant")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyCategory   = errors.New("empty category")
)

// DateLayout is the wire and storage form of a Date.
const DateLayout = "2006-01-02"

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "2006-01-02" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// MarshalJSON emits the date form, shadowing the embedded time.Time's
// full timestamp.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month.
func (d Date) Day() int { return d.Time.Day() }

// Month returns the month as 1-12.
func (d Date) Month() int { return int(d.Time.Month()) }

// Year returns the calendar year.
func (d Date) Year() int { return d.Time.Year() }

func (c Currency) Validate() error {
	if len(c) != 3 {
		return ErrInvalidCurrency
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return ErrInvalidCurrency
		}
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (r Receipt) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(r.Merchant)) == 0 {
		return ErrEmptyMerchant
	}
	if len(r.Merchant) > 200 {
		return errors.New("merchant too long (max 200 characters)")
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if err := r.Currency.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if r.WarrantyMonths < 0 || r.WarrantyMonths > 120 {
		return errors.New("warranty months out of range")
	}
	return nil
}

func (re RecurringExpense) Validate() error {
	if err := re.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if !re.EndDate.IsZero() && re.EndDate.Before(re.StartDate.Time) {
		return errors.New("end date must not be before start date")
	}
	switch re.Every {
	case Daily, Weekly, Monthly, Yearly:
	default:
		return errors.New("invalid frequency")
	}
	if len(strings.TrimSpace(re.Name)) == 0 {
		return ErrEmptyName
	}
	if len(re.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := re.Amount.Validate(); err != nil {
		return err
	}
	return re.Currency.Validate()
}

func (i MonthlyIncome) Validate() error {
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	return i.Currency.Validate()
}

func (g SavingsGoal) Validate() error {
	if len(strings.TrimSpace(g.Name)) == 0 {
		return ErrEmptyName
	}
	if err := g.Target.Validate(); err != nil {
		return err
	}
	if g.Saved.Cents < 0 {
		return ErrInvalidAmount
	}
	return g.Currency.Validate()
}
