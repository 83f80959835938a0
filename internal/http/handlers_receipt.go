package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"scontrino/internal/core"
	"scontrino/internal/storage"
)

type receiptRequest struct {
	Date           string `json:"date"` // YYYY-MM-DD
	Merchant       string `json:"merchant"`
	Amount         string `json:"amount"` // decimal string, e.g. "12.34"
	Currency       string `json:"currency"`
	Category       string `json:"category"`
	WarrantyMonths int    `json:"warrantyMonths"`
}

type receiptResponse struct {
	ID             int64   `json:"id"`
	Date           string  `json:"date"`
	Merchant       string  `json:"merchant"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	Category       string  `json:"category"`
	WarrantyMonths int     `json:"warrantyMonths,omitempty"`
}

func toReceiptResponse(rec core.Receipt) receiptResponse {
	return receiptResponse{
		ID:             rec.ID,
		Date:           rec.Date.Format(core.DateLayout),
		Merchant:       rec.Merchant,
		Amount:         rec.Amount.Float(),
		Currency:       string(rec.Currency),
		Category:       rec.Category,
		WarrantyMonths: rec.WarrantyMonths,
	}
}

func (s *Server) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	var req receiptRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec := core.Receipt{
		Date:           date,
		Merchant:       sanitizeInput(req.Merchant),
		Amount:         core.Money{Cents: cents},
		Currency:       core.Currency(sanitizeInput(req.Currency)),
		Category:       sanitizeInput(req.Category),
		WarrantyMonths: req.WarrantyMonths,
	}

	id, err := s.receipts.CreateReceipt(r.Context(), rec)
	if err != nil {
		if rec.Validate() != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Create receipt failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not save receipt")
		return
	}

	rec.ID = id
	respondJSON(w, http.StatusCreated, toReceiptResponse(rec))
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)

	receipts, err := s.receipts.ListReceipts(r.Context(), year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "List receipts failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not list receipts")
		return
	}

	out := make([]receiptResponse, 0, len(receipts))
	for _, rec := range receipts {
		out = append(out, toReceiptResponse(rec))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid receipt id")
		return
	}

	rec, err := s.receipts.GetReceipt(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "receipt not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Get receipt failed", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "could not load receipt")
		return
	}
	respondJSON(w, http.StatusOK, toReceiptResponse(rec))
}

func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid receipt id")
		return
	}

	err = s.receipts.DeleteReceipt(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "receipt not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete receipt failed", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "could not delete receipt")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleExpiringWarranties(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d < 1 || d > 365 {
			respondError(w, http.StatusBadRequest, "days must be between 1 and 365")
			return
		}
		days = d
	}

	expiring, err := s.storage.ExpiringWarranties(r.Context(), timeNow(), days)
	if err != nil {
		slog.ErrorContext(r.Context(), "Expiring warranties failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not load warranties")
		return
	}

	type warrantyResponse struct {
		Receipt   receiptResponse `json:"receipt"`
		ExpiresOn string          `json:"expiresOn"`
	}
	out := make([]warrantyResponse, 0, len(expiring))
	for _, e := range expiring {
		out = append(out, warrantyResponse{
			Receipt:   toReceiptResponse(e.Receipt),
			ExpiresOn: e.ExpiresOn.Format(core.DateLayout),
		})
	}
	respondJSON(w, http.StatusOK, out)
}
