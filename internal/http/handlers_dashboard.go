package http

import (
	"errors"
	"log/slog"
	"net/http"

	"scontrino/internal/core"
	"scontrino/internal/insights"
	"scontrino/internal/storage"
)

// --- per-currency stats ---

type currencyAmountResponse struct {
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
}

func toSpendResponse(spend []core.CurrencyAmount) []currencyAmountResponse {
	out := make([]currencyAmountResponse, 0, len(spend))
	for _, s := range spend {
		out = append(out, currencyAmountResponse{Currency: string(s.Currency), Amount: s.Amount})
	}
	return out
}

func (s *Server) handleDailyStats(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)

	daily, err := s.storage.DailySpend(r.Context(), year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Daily stats failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not load daily stats")
		return
	}

	type dailyResponse struct {
		Year  int                      `json:"year"`
		Month int                      `json:"month"`
		Day   int                      `json:"day"`
		Spend []currencyAmountResponse `json:"spend"`
	}
	out := make([]dailyResponse, 0, len(daily))
	for _, d := range daily {
		out = append(out, dailyResponse{Year: d.Year, Month: d.Month, Day: d.Day, Spend: toSpendResponse(d.Spend)})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleMonthlyStats(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	months := 12
	monthly, err := s.storage.MonthlySpend(r.Context(), year, month, months)
	if err != nil {
		slog.ErrorContext(r.Context(), "Monthly stats failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not load monthly stats")
		return
	}

	type monthlyResponse struct {
		Year  int                      `json:"year"`
		Month int                      `json:"month"`
		Spend []currencyAmountResponse `json:"spend"`
	}
	out := make([]monthlyResponse, 0, len(monthly))
	for _, m := range monthly {
		out = append(out, monthlyResponse{Year: m.Year, Month: m.Month, Spend: toSpendResponse(m.Spend)})
	}
	respondJSON(w, http.StatusOK, out)
}

// --- dashboard figures ---

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)

	forecast, err := s.dashboard.Forecast(r.Context(), requestUser(r), year, month, timeNow())
	if err != nil {
		slog.ErrorContext(r.Context(), "Forecast failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not compute forecast")
		return
	}
	// nil means "no data yet"; clients render a placeholder
	respondJSON(w, http.StatusOK, forecast)
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)

	report, err := s.dashboard.Budgets(r.Context(), year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Budget report failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not compute budget report")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)

	overview, goals, err := s.dashboard.Savings(r.Context(), requestUser(r), year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Savings overview failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not compute savings overview")
		return
	}
	respondJSON(w, http.StatusOK, struct {
		Overview any `json:"overview"` // null until income is configured
		Goals    any `json:"goals"`
	}{Overview: overview, Goals: goals})
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	report, err := s.dashboard.Upcoming(r.Context(), requestUser(r), timeNow())
	if err != nil {
		slog.ErrorContext(r.Context(), "Upcoming report failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not compute upcoming expenses")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// --- recurring expenses ---

type recurringRequest struct {
	Name      string `json:"name"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate,omitempty"`
	Every     string `json:"every"`
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid start date, expected YYYY-MM-DD")
		return
	}
	var end core.Date
	if req.EndDate != "" {
		end, err = parseDate(req.EndDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid end date, expected YYYY-MM-DD")
			return
		}
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	re := core.RecurringExpense{
		Name:      sanitizeInput(req.Name),
		Amount:    core.Money{Cents: cents},
		Currency:  core.Currency(sanitizeInput(req.Currency)),
		StartDate: start,
		EndDate:   end,
		Every:     core.Frequency(sanitizeInput(req.Every)),
	}

	id, err := s.recurring.Create(r.Context(), re)
	if err != nil {
		if re.Validate() != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Create recurring failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not create recurring expense")
		return
	}

	respondJSON(w, http.StatusCreated, struct {
		ID int64 `json:"id"`
	}{ID: id})
}

// handleListRecurring returns every active template with its next due date.
func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	pending, err := s.recurring.Upcoming(r.Context(), timeNow())
	if err != nil {
		slog.ErrorContext(r.Context(), "List recurring failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not list recurring expenses")
		return
	}
	if pending == nil {
		pending = []insights.UpcomingExpense{}
	}
	respondJSON(w, http.StatusOK, pending)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid recurring expense id")
		return
	}
	err = s.recurring.Delete(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "recurring expense not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete recurring failed", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "could not delete recurring expense")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleMarkRecurringPaid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid recurring expense id")
		return
	}
	if err := s.recurring.MarkPaid(r.Context(), id, timeNow()); err != nil {
		slog.ErrorContext(r.Context(), "Mark recurring paid failed", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "could not record payment")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
