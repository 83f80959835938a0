// Package session holds authentication and user-settings state as an
// explicit, injectable object instead of ambient globals. Login, refresh and
// logout are modeled as state transitions on a session value: active
// sessions can be refreshed (rotating the refresh token) or revoked; a
// revoked session never transitions back.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"scontrino/internal/core"
)

const (
	StateActive  State = "active"
	StateRevoked State = "revoked"
)

type State string

var (
	ErrUnknownSession = errors.New("unknown session")
	ErrSessionRevoked = errors.New("session revoked")
)

// TokenPair is what a login or refresh hands back to the client.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type record struct {
	userID      string
	state       State
	createdAt   time.Time
	refreshedAt time.Time
}

// Manager owns session lifecycle and token issuance. Sessions live in
// memory: a restart logs everyone out, which is acceptable for a personal
// product where refresh re-authenticates silently.
type Manager struct {
	secret    []byte
	accessTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*record // keyed by refresh token

	now func() time.Time
}

func NewManager(secret []byte, accessTTL time.Duration) *Manager {
	return &Manager{
		secret:    secret,
		accessTTL: accessTTL,
		sessions:  make(map[string]*record),
		now:       time.Now,
	}
}

// Login transitions a user into an active session and issues a token pair.
func (m *Manager) Login(userID string) (TokenPair, error) {
	now := m.now()
	access, err := signAccessToken(m.secret, userID, m.accessTTL, now)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := newRefreshToken()
	if err != nil {
		return TokenPair{}, err
	}

	m.mu.Lock()
	m.sessions[refresh] = &record{userID: userID, state: StateActive, createdAt: now, refreshedAt: now}
	m.mu.Unlock()

	slog.Info("Session started", "user", userID)
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh rotates a session: the presented refresh token is revoked and a
// new pair is issued. Refreshing a revoked or unknown session fails.
func (m *Manager) Refresh(refreshToken string) (TokenPair, error) {
	m.mu.Lock()
	rec, ok := m.sessions[refreshToken]
	if !ok {
		m.mu.Unlock()
		return TokenPair{}, ErrUnknownSession
	}
	if rec.state != StateActive {
		m.mu.Unlock()
		return TokenPair{}, ErrSessionRevoked
	}
	rec.state = StateRevoked
	userID := rec.userID
	m.mu.Unlock()

	now := m.now()
	access, err := signAccessToken(m.secret, userID, m.accessTTL, now)
	if err != nil {
		return TokenPair{}, err
	}
	newRefresh, err := newRefreshToken()
	if err != nil {
		return TokenPair{}, err
	}

	m.mu.Lock()
	m.sessions[newRefresh] = &record{userID: userID, state: StateActive, createdAt: now, refreshedAt: now}
	m.mu.Unlock()

	slog.Debug("Session refreshed", "user", userID)
	return TokenPair{AccessToken: access, RefreshToken: newRefresh}, nil
}

// Logout revokes a session. Revoking twice is a no-op, not an error.
func (m *Manager) Logout(refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[refreshToken]
	if !ok {
		return ErrUnknownSession
	}
	rec.state = StateRevoked
	return nil
}

// VerifyAccess validates an access token and returns its user ID.
func (m *Manager) VerifyAccess(accessToken string) (string, error) {
	return verifyAccessToken(m.secret, accessToken)
}

// SessionState reports the current state of a refresh token's session.
func (m *Manager) SessionState(refreshToken string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[refreshToken]
	if !ok {
		return "", ErrUnknownSession
	}
	return rec.state, nil
}

// Settings is the per-user preference store backed by persistent storage.
// The display currency read here drives which rate table the dashboard
// fetches.
type Settings interface {
	DisplayCurrency(userID string) (core.Currency, error)
	SetDisplayCurrency(userID string, c core.Currency) error
}
