package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"scontrino/internal/core"
)

// timeNow is swappable in tests.
var timeNow = time.Now

// parseYearMonth extracts year and month query parameters, defaulting to
// the current calendar month.
func parseYearMonth(r *http.Request) (year, month int) {
	now := timeNow()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}
	return year, month
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// parseDate parses a YYYY-MM-DD date string.
func parseDate(dateStr string) (core.Date, error) {
	return core.ParseDate(dateStr)
}

// sanitizeInput trims whitespace and strips control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
