package http

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseYearMonthDefaultsToClock(t *testing.T) {
	orig := timeNow
	timeNow = func() time.Time { return time.Date(2025, 11, 5, 10, 0, 0, 0, time.UTC) }
	defer func() { timeNow = orig }()

	r := httptest.NewRequest("GET", "/api/stats/daily", nil)
	year, month := parseYearMonth(r)
	if year != 2025 || month != 11 {
		t.Errorf("parseYearMonth() = %d-%d, want 2025-11", year, month)
	}

	r = httptest.NewRequest("GET", "/api/stats/daily?year=2024&month=2", nil)
	year, month = parseYearMonth(r)
	if year != 2024 || month != 2 {
		t.Errorf("parseYearMonth() explicit = %d-%d, want 2024-2", year, month)
	}

	// out-of-range month falls back to the clock
	r = httptest.NewRequest("GET", "/api/stats/daily?month=13", nil)
	if _, month = parseYearMonth(r); month != 11 {
		t.Errorf("parseYearMonth() bad month = %d, want 11", month)
	}
}
