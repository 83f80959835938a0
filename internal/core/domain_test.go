package core

import (
	"encoding/json"
	"testing"
)

func TestDate_JSON(t *testing.T) {
	d := NewDate(2026, 9, 1)

	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	// plain ISO date, no time component
	if string(b) != `"2026-09-01"` {
		t.Errorf("Marshal() = %s, want \"2026-09-01\"", b)
	}

	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !back.Equal(d.Time) {
		t.Errorf("round trip = %v, want %v", back, d)
	}

	if err := json.Unmarshal([]byte(`"2026-09-01T00:00:00Z"`), &back); err == nil {
		t.Error("Unmarshal() should reject timestamps")
	}
}

func TestReceipt_Validate(t *testing.T) {
	valid := Receipt{
		Date:     NewDate(2026, 3, 14),
		Merchant: "Maxi",
		Amount:   Money{Cents: 1250},
		Currency: "RSD",
		Category: "Groceries",
	}

	tests := []struct {
		name    string
		mutate  func(r *Receipt)
		wantErr bool
	}{
		{name: "valid receipt", mutate: func(r *Receipt) {}, wantErr: false},
		{name: "zero date", mutate: func(r *Receipt) { r.Date = Date{} }, wantErr: true},
		{name: "empty merchant", mutate: func(r *Receipt) { r.Merchant = "  " }, wantErr: true},
		{name: "zero amount", mutate: func(r *Receipt) { r.Amount = Money{} }, wantErr: true},
		{name: "negative amount", mutate: func(r *Receipt) { r.Amount = Money{Cents: -5} }, wantErr: true},
		{name: "lowercase currency", mutate: func(r *Receipt) { r.Currency = "eur" }, wantErr: true},
		{name: "short currency", mutate: func(r *Receipt) { r.Currency = "EU" }, wantErr: true},
		{name: "empty category", mutate: func(r *Receipt) { r.Category = "" }, wantErr: true},
		{name: "negative warranty", mutate: func(r *Receipt) { r.WarrantyMonths = -1 }, wantErr: true},
		{name: "warranty too long", mutate: func(r *Receipt) { r.WarrantyMonths = 121 }, wantErr: true},
		{name: "warranty ok", mutate: func(r *Receipt) { r.WarrantyMonths = 24 }, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			err := r.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecurringExpense_Validate(t *testing.T) {
	valid := RecurringExpense{
		Name:      "Netflix",
		Amount:    Money{Cents: 1099},
		Currency:  "EUR",
		StartDate: NewDate(2026, 1, 15),
		Every:     Monthly,
	}

	tests := []struct {
		name    string
		mutate  func(re *RecurringExpense)
		wantErr bool
	}{
		{name: "valid monthly", mutate: func(re *RecurringExpense) {}, wantErr: false},
		{name: "open ended is valid", mutate: func(re *RecurringExpense) { re.EndDate = Date{} }, wantErr: false},
		{name: "end after start", mutate: func(re *RecurringExpense) { re.EndDate = NewDate(2026, 12, 15) }, wantErr: false},
		{name: "end before start", mutate: func(re *RecurringExpense) { re.EndDate = NewDate(2025, 12, 15) }, wantErr: true},
		{name: "unknown frequency", mutate: func(re *RecurringExpense) { re.Every = "fortnightly" }, wantErr: true},
		{name: "empty name", mutate: func(re *RecurringExpense) { re.Name = "" }, wantErr: true},
		{name: "zero amount", mutate: func(re *RecurringExpense) { re.Amount = Money{} }, wantErr: true},
		{name: "bad currency", mutate: func(re *RecurringExpense) { re.Currency = "EURO" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re := valid
			tt.mutate(&re)
			err := re.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCurrency_Validate(t *testing.T) {
	for _, c := range []Currency{"EUR", "USD", "RSD", "BAM"} {
		if err := c.Validate(); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", c, err)
		}
	}
	for _, c := range []Currency{"", "E", "EURX", "eur", "12D"} {
		if err := c.Validate(); err == nil {
			t.Errorf("Validate(%q) = nil, want error", c)
		}
	}
}

func TestMonthlyIncome_Validate(t *testing.T) {
	if err := (MonthlyIncome{Amount: Money{Cents: 250000}, Currency: "EUR"}).Validate(); err != nil {
		t.Errorf("valid income: %v", err)
	}
	if err := (MonthlyIncome{Amount: Money{Cents: 0}, Currency: "EUR"}).Validate(); err == nil {
		t.Error("zero income should be invalid")
	}
}
