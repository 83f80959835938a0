package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"scontrino/internal/fx"
	"scontrino/internal/services"
	"scontrino/internal/session"
	"scontrino/internal/storage"
)

func newTestServer(t *testing.T, sessions *session.Manager) *Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ratesSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"base":"EUR","rates":{"EUR":1,"USD":1.1,"RSD":117.2}}`))
	}))
	t.Cleanup(ratesSrv.Close)

	rates := fx.NewProvider(ratesSrv.URL)
	receipts := services.NewReceiptService(repo, nil)
	recurring := services.NewRecurringService(repo)
	dashboard := services.NewDashboardService(repo, rates, recurring)

	srv := NewServer(":0", receipts, recurring, dashboard, repo, rates, sessions)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv, http.MethodGet, path, nil, "")
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestReceiptLifecycleViaAPI(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/receipts", map[string]any{
		"date":     "2025-03-14",
		"merchant": "Maxi",
		"amount":   "25.50",
		"currency": "RSD",
		"category": "Groceries",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/receipts status = %d, body %s", rec.Code, rec.Body)
	}
	var created receiptResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Amount != 25.50 || created.Currency != "RSD" {
		t.Errorf("created = %+v", created)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/receipts?year=2025&month=3", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/receipts status = %d", rec.Code)
	}
	var list []receiptResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].Merchant != "Maxi" {
		t.Errorf("list = %+v, want one Maxi receipt", list)
	}

	rec = doJSON(t, srv, http.MethodDelete, "/api/receipts/1", nil, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodGet, "/api/receipts/1", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET after delete status = %d, want 404", rec.Code)
	}
}

func TestCreateReceiptValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"bad date", map[string]any{"date": "14/03/2025", "merchant": "a", "amount": "1.00", "currency": "EUR", "category": "Other"}},
		{"zero amount", map[string]any{"date": "2025-03-14", "merchant": "a", "amount": "0", "currency": "EUR", "category": "Other"}},
		{"bad currency", map[string]any{"date": "2025-03-14", "merchant": "a", "amount": "1.00", "currency": "eur!", "category": "Other"}},
		{"empty merchant", map[string]any{"date": "2025-03-14", "merchant": " ", "amount": "1.00", "currency": "EUR", "category": "Other"}},
		{"unknown field", map[string]any{"date": "2025-03-14", "merchant": "a", "amount": "1.00", "currency": "EUR", "category": "Other", "extra": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/receipts", tt.body, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", rec.Code, rec.Body)
			}
		})
	}
}

func TestAuthRequiredWhenSessionsEnabled(t *testing.T) {
	sessions := session.NewManager([]byte("0123456789abcdef0123456789abcdef"), 15*time.Minute)
	srv := newTestServer(t, sessions)

	rec := doJSON(t, srv, http.MethodGet, "/api/receipts", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/session/login", map[string]any{"user": "ana"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body)
	}
	var pair session.TokenPair
	if err := json.Unmarshal(rec.Body.Bytes(), &pair); err != nil {
		t.Fatalf("decode token pair: %v", err)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/receipts", nil, pair.AccessToken)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/receipts", nil, "not-a-token")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token status = %d, want 401", rec.Code)
	}
}

func TestSessionRefreshRotation(t *testing.T) {
	sessions := session.NewManager([]byte("0123456789abcdef0123456789abcdef"), 15*time.Minute)
	srv := newTestServer(t, sessions)

	rec := doJSON(t, srv, http.MethodPost, "/api/session/login", map[string]any{"user": "ana"}, "")
	var pair session.TokenPair
	if err := json.Unmarshal(rec.Body.Bytes(), &pair); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/session/refresh", map[string]any{"refreshToken": pair.RefreshToken}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d", rec.Code)
	}

	// the old refresh token was rotated out
	rec = doJSON(t, srv, http.MethodPost, "/api/session/refresh", map[string]any{"refreshToken": pair.RefreshToken}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("replayed refresh status = %d, want 401", rec.Code)
	}
}

func TestForecastEndpointCaches(t *testing.T) {
	srv := newTestServer(t, nil)

	doJSON(t, srv, http.MethodPost, "/api/receipts", map[string]any{
		"date": "2025-03-01", "merchant": "a", "amount": "20.00", "currency": "EUR", "category": "Groceries",
	}, "")

	path := "/api/dashboard/forecast?year=2025&month=3"
	rec := doJSON(t, srv, http.MethodGet, path, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("forecast status = %d", rec.Code)
	}
	if rec.Header().Get("X-Cache") == "hit" {
		t.Error("first request must not be a cache hit")
	}

	rec = doJSON(t, srv, http.MethodGet, path, nil, "")
	if rec.Header().Get("X-Cache") != "hit" {
		t.Error("second request should be served from cache")
	}
}

func TestCurrencyChangeDropsCachedDashboards(t *testing.T) {
	srv := newTestServer(t, nil)

	doJSON(t, srv, http.MethodPost, "/api/receipts", map[string]any{
		"date": "2025-03-01", "merchant": "a", "amount": "20.00", "currency": "EUR", "category": "Groceries",
	}, "")

	path := "/api/dashboard/forecast?year=2025&month=3"
	doJSON(t, srv, http.MethodGet, path, nil, "")
	rec := doJSON(t, srv, http.MethodGet, path, nil, "")
	if rec.Header().Get("X-Cache") != "hit" {
		t.Fatal("warm-up request should be served from cache")
	}

	rec = doJSON(t, srv, http.MethodPut, "/api/settings/currency", map[string]any{"currency": "USD"}, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("PUT settings status = %d, body %s", rec.Code, rec.Body)
	}

	// dashboards re-render in the new currency, never from the stale cache
	rec = doJSON(t, srv, http.MethodGet, path, nil, "")
	if rec.Header().Get("X-Cache") == "hit" {
		t.Error("request after currency change must not be a cache hit")
	}
}

func TestSettingsCurrencyRoundTrip(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPut, "/api/settings/currency", map[string]any{"currency": "RSD"}, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("PUT settings status = %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/settings/currency", nil, "")
	var got currencyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Currency != "RSD" {
		t.Errorf("currency = %q, want RSD", got.Currency)
	}

	rec = doJSON(t, srv, http.MethodPut, "/api/settings/currency", map[string]any{"currency": "x"}, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid currency status = %d, want 400", rec.Code)
	}
}
