package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"scontrino/internal/cache"
	"scontrino/internal/fx"
	"scontrino/internal/services"
	"scontrino/internal/session"
	"scontrino/internal/storage"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
)

// defaultUserID identifies the implicit account when sessions are disabled.
const defaultUserID = "default"

// Server is the JSON API over receipts, dashboard figures and settings.
type Server struct {
	http.Server

	receipts  *services.ReceiptService
	recurring *services.RecurringService
	dashboard *services.DashboardService
	storage   *storage.SQLiteRepository
	settings  session.Settings
	rates     *fx.Provider
	sessions  *session.Manager // nil disables auth

	rateLimiter *rateLimiter

	// Dashboard reads are cached as rendered JSON, keyed by user and query.
	dashCache *cache.LRUCache[[]byte]
	caches    *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
// A nil session manager leaves the API open under a single implicit user.
func NewServer(
	addr string,
	receipts *services.ReceiptService,
	recurring *services.RecurringService,
	dashboard *services.DashboardService,
	repo *storage.SQLiteRepository,
	rates *fx.Provider,
	sessions *session.Manager,
) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		receipts:    receipts,
		recurring:   recurring,
		dashboard:   dashboard,
		storage:     repo,
		settings:    repo,
		rates:       rates,
		sessions:    sessions,
		rateLimiter: newRateLimiter(),
		dashCache:   cache.NewLRUCache[[]byte](200, 2*time.Minute),
		caches:      cache.NewManager(),
	}
	s.caches.Register(s.dashCache)
	s.caches.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("POST /api/session/login", s.withCommon(s.handleLogin))
	mux.HandleFunc("POST /api/session/refresh", s.withCommon(s.handleRefresh))
	mux.HandleFunc("POST /api/session/logout", s.withCommon(s.handleLogout))

	mux.HandleFunc("GET /api/receipts", s.protected(s.handleListReceipts))
	mux.HandleFunc("POST /api/receipts", s.protected(s.handleCreateReceipt))
	mux.HandleFunc("GET /api/receipts/{id}", s.protected(s.handleGetReceipt))
	mux.HandleFunc("DELETE /api/receipts/{id}", s.protected(s.handleDeleteReceipt))

	mux.HandleFunc("GET /api/categories", s.protected(s.handleListCategories))
	mux.HandleFunc("PUT /api/categories/{name}/budget", s.protected(s.handleSetBudget))

	mux.HandleFunc("GET /api/income", s.protected(s.handleGetIncome))
	mux.HandleFunc("PUT /api/income", s.protected(s.handleSetIncome))

	mux.HandleFunc("GET /api/recurring", s.protected(s.handleListRecurring))
	mux.HandleFunc("POST /api/recurring", s.protected(s.handleCreateRecurring))
	mux.HandleFunc("DELETE /api/recurring/{id}", s.protected(s.handleDeleteRecurring))
	mux.HandleFunc("POST /api/recurring/{id}/paid", s.protected(s.handleMarkRecurringPaid))

	mux.HandleFunc("GET /api/savings-goals", s.protected(s.handleListGoals))
	mux.HandleFunc("POST /api/savings-goals", s.protected(s.handleCreateGoal))
	mux.HandleFunc("PUT /api/savings-goals/{id}/saved", s.protected(s.handleUpdateGoalSaved))

	mux.HandleFunc("GET /api/stats/daily", s.protected(s.handleDailyStats))
	mux.HandleFunc("GET /api/stats/monthly", s.protected(s.handleMonthlyStats))

	mux.HandleFunc("GET /api/dashboard/forecast", s.protected(s.cached(s.handleForecast)))
	mux.HandleFunc("GET /api/dashboard/budgets", s.protected(s.cached(s.handleBudgets)))
	mux.HandleFunc("GET /api/dashboard/savings", s.protected(s.cached(s.handleSavings)))
	mux.HandleFunc("GET /api/dashboard/upcoming", s.protected(s.cached(s.handleUpcoming)))

	mux.HandleFunc("GET /api/warranties/expiring", s.protected(s.handleExpiringWarranties))

	mux.HandleFunc("GET /api/settings/currency", s.protected(s.handleGetDisplayCurrency))
	mux.HandleFunc("PUT /api/settings/currency", s.protected(s.handleSetDisplayCurrency))

	mux.HandleFunc("GET /api/rates", s.protected(s.handleRates))

	return s
}

// Shutdown stops the background cleanups, then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withCommon adds security headers, rate limiting and request logging.
func (s *Server) withCommon(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := clientAddr(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		// Writes are rate limited per client.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

// protected verifies the bearer token and stores the user in the context.
// With sessions disabled every request acts as the default user.
func (s *Server) protected(next http.HandlerFunc) http.HandlerFunc {
	return s.withCommon(func(w http.ResponseWriter, r *http.Request) {
		userID := defaultUserID
		if s.sessions != nil {
			token := bearerToken(r)
			if token == "" {
				respondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			verified, err := s.sessions.VerifyAccess(token)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			userID = verified
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	})
}

// cached serves dashboard GETs from the response cache. Entries expire on
// their own TTL; receipt writes invalidate nothing because two minutes of
// staleness is acceptable on aggregate views.
func (s *Server) cached(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := requestUser(r) + "|" + r.URL.Path + "?" + r.URL.RawQuery
		if body, ok := s.dashCache.Get(key); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "hit")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
			return
		}

		rec := &recordingWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rec, r)
		if rec.statusCode == http.StatusOK {
			s.dashCache.Set(key, rec.body)
		}
	}
}

// requestUser returns the authenticated user stored by the middleware.
func requestUser(r *http.Request) string {
	if userID, ok := r.Context().Value(userIDKey).(string); ok {
		return userID
	}
	return defaultUserID
}

func clientAddr(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// recordingWriter additionally buffers the body for the response cache.
type recordingWriter struct {
	http.ResponseWriter
	statusCode int
	body       []byte
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(p []byte) (int, error) {
	rw.body = append(rw.body, p...)
	return rw.ResponseWriter.Write(p)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
