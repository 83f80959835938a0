package http

import (
	"errors"
	"log/slog"
	"net/http"

	"scontrino/internal/core"
	"scontrino/internal/storage"
)

// --- categories ---

type categoryResponse struct {
	Name           string   `json:"name"`
	MonthlyBudget  *float64 `json:"monthlyBudget,omitempty"`
	BudgetCurrency string   `json:"budgetCurrency,omitempty"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.storage.ListCategories(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List categories failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not list categories")
		return
	}

	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		resp := categoryResponse{Name: c.Name}
		if c.MonthlyBudget != nil {
			budget := c.MonthlyBudget.Float()
			resp.MonthlyBudget = &budget
			resp.BudgetCurrency = string(c.BudgetCurrency)
		}
		out = append(out, resp)
	}
	respondJSON(w, http.StatusOK, out)
}

type budgetRequest struct {
	Amount   string `json:"amount"` // decimal string; empty clears the budget
	Currency string `json:"currency"`
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	name := sanitizeInput(r.PathValue("name"))

	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var budget *core.Money
	currency := core.Currency(sanitizeInput(req.Currency))
	if req.Amount != "" {
		cents, err := core.ParseDecimalToCents(req.Amount)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := currency.Validate(); err != nil {
			respondError(w, http.StatusBadRequest, "invalid budget currency")
			return
		}
		budget = &core.Money{Cents: cents}
	}

	err := s.storage.SetCategoryBudget(r.Context(), name, budget, currency)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "category not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Set budget failed", "category", name, "error", err)
		respondError(w, http.StatusInternalServerError, "could not update budget")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// --- income ---

type incomeRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type incomeResponse struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

func (s *Server) handleGetIncome(w http.ResponseWriter, r *http.Request) {
	income, err := s.storage.GetIncome(r.Context(), requestUser(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "Get income failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not load income")
		return
	}
	if income == nil {
		// not configured yet: distinct from zero income
		respondJSON(w, http.StatusOK, nil)
		return
	}
	respondJSON(w, http.StatusOK, incomeResponse{
		Amount:   income.Amount.Float(),
		Currency: string(income.Currency),
	})
}

func (s *Server) handleSetIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	income := core.MonthlyIncome{
		Amount:   core.Money{Cents: cents},
		Currency: core.Currency(sanitizeInput(req.Currency)),
	}
	if err := income.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.storage.SetIncome(r.Context(), requestUser(r), income); err != nil {
		slog.ErrorContext(r.Context(), "Set income failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not save income")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// --- savings goals ---

type goalRequest struct {
	Name     string `json:"name"`
	Target   string `json:"target"`
	Currency string `json:"currency"`
}

type goalResponse struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Target   float64 `json:"target"`
	Saved    float64 `json:"saved"`
	Currency string  `json:"currency"`
}

func toGoalResponse(g core.SavingsGoal) goalResponse {
	return goalResponse{
		ID:       g.ID,
		Name:     g.Name,
		Target:   g.Target.Float(),
		Saved:    g.Saved.Float(),
		Currency: string(g.Currency),
	}
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.storage.ListSavingsGoals(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List goals failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not list savings goals")
		return
	}
	out := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalResponse(g))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Target)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	goal := core.SavingsGoal{
		Name:     sanitizeInput(req.Name),
		Target:   core.Money{Cents: cents},
		Currency: core.Currency(sanitizeInput(req.Currency)),
	}
	if err := goal.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.storage.CreateSavingsGoal(r.Context(), goal)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create goal failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not create savings goal")
		return
	}
	goal.ID = id
	respondJSON(w, http.StatusCreated, toGoalResponse(goal))
}

type savedRequest struct {
	Saved string `json:"saved"`
}

func (s *Server) handleUpdateGoalSaved(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid goal id")
		return
	}

	var req savedRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cents, err := core.ParseDecimalToCents(req.Saved)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = s.storage.UpdateSavedAmount(r.Context(), id, core.Money{Cents: cents})
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "savings goal not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Update goal failed", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "could not update savings goal")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// --- display currency ---

type currencyResponse struct {
	Currency string `json:"currency"`
}

func (s *Server) handleGetDisplayCurrency(w http.ResponseWriter, r *http.Request) {
	currency, err := s.settings.DisplayCurrency(requestUser(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "Get display currency failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not load settings")
		return
	}
	respondJSON(w, http.StatusOK, currencyResponse{Currency: string(currency)})
}

func (s *Server) handleSetDisplayCurrency(w http.ResponseWriter, r *http.Request) {
	var req currencyResponse
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	currency := core.Currency(sanitizeInput(req.Currency))
	if err := currency.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid currency code")
		return
	}

	if err := s.settings.SetDisplayCurrency(requestUser(r), currency); err != nil {
		slog.ErrorContext(r.Context(), "Set display currency failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not save settings")
		return
	}

	// Changing display currency changes the base every dashboard number is
	// quoted in; drop rendered responses and force a fresh table for the
	// new base.
	s.dashCache.Purge()
	s.rates.Invalidate(currency)
	respondJSON(w, http.StatusNoContent, nil)
}

// --- rates ---

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	base := core.Currency(sanitizeInput(r.URL.Query().Get("base")))
	if base == "" {
		stored, err := s.settings.DisplayCurrency(requestUser(r))
		if err != nil {
			slog.ErrorContext(r.Context(), "Get display currency failed", "error", err)
			respondError(w, http.StatusInternalServerError, "could not resolve base currency")
			return
		}
		base = stored
	}
	if err := base.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid base currency")
		return
	}

	table := s.rates.Rates(r.Context(), base)
	respondJSON(w, http.StatusOK, struct {
		Base  string             `json:"base"`
		Rates map[string]float64 `json:"rates"`
	}{
		Base:  string(base),
		Rates: tableToMap(table),
	})
}

func tableToMap(table map[core.Currency]float64) map[string]float64 {
	out := make(map[string]float64, len(table))
	for code, rate := range table {
		out[string(code)] = rate
	}
	return out
}
