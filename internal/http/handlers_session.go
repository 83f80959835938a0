package http

import (
	"errors"
	"log/slog"
	"net/http"

	"scontrino/internal/session"
)

type loginRequest struct {
	User string `json:"user"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		respondError(w, http.StatusNotImplemented, "sessions are disabled")
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user := sanitizeInput(req.User)
	if user == "" {
		user = defaultUserID
	}

	pair, err := s.sessions.Login(user)
	if err != nil {
		slog.ErrorContext(r.Context(), "Login failed", "user", user, "error", err)
		respondError(w, http.StatusInternalServerError, "could not start session")
		return
	}
	respondJSON(w, http.StatusOK, pair)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		respondError(w, http.StatusNotImplemented, "sessions are disabled")
		return
	}

	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		respondError(w, http.StatusBadRequest, "missing refresh token")
		return
	}

	pair, err := s.sessions.Refresh(req.RefreshToken)
	switch {
	case errors.Is(err, session.ErrUnknownSession), errors.Is(err, session.ErrSessionRevoked):
		respondError(w, http.StatusUnauthorized, "session no longer valid")
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Refresh failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not refresh session")
		return
	}
	respondJSON(w, http.StatusOK, pair)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		respondError(w, http.StatusNotImplemented, "sessions are disabled")
		return
	}

	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		respondError(w, http.StatusBadRequest, "missing refresh token")
		return
	}

	if err := s.sessions.Logout(req.RefreshToken); err != nil && !errors.Is(err, session.ErrUnknownSession) {
		slog.ErrorContext(r.Context(), "Logout failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not end session")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
