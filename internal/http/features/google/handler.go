package google

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rishta-app/rishta/internal/auth"
	"github.com/rishta-app/rishta/internal/httputil"
)

// Handler handles Google OAuth endpoints.
type Handler struct {
	googleService  *auth.GoogleService
	sessionService *auth.SessionService
	logger         *slog.Logger
	stateStore     *StateStore
	cookieConfig   httputil.CookieConfig
}

// NewHandler creates a new Google handler.
func NewHandler(googleService *auth.GoogleService, sessionService *auth.SessionService, logger *slog.Logger) *Handler {
	return &Handler{
		googleService:  googleService,
		sessionService: sessionService,
		logger:         logger,
		stateStore:     NewStateStore(),
		cookieConfig:   httputil.DefaultCookieConfig(),
	}
}

// OAuthState carries the CSRF state of one in-flight handshake.
type OAuthState struct {
	State       string
	Nonce       string
	RedirectURI string
	ExpiresAt   time.Time
}

// StateStore stores OAuth state for CSRF protection.
// In production, use Redis or similar for distributed systems.
type StateStore struct {
	mu     sync.RWMutex
	states map[string]*OAuthState
	done   chan struct{}
	once   sync.Once
}

// NewStateStore creates a new state store and starts its expiry sweep.
func NewStateStore() *StateStore {
	s := &StateStore{
		states: make(map[string]*OAuthState),
		done:   make(chan struct{}),
	}
	go s.cleanup()
	return s
}

// Close stops the expiry sweep goroutine. The store itself stays
// usable. Safe to call more than once.
func (s *StateStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *StateStore) Set(state *OAuthState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.State] = state
}

func (s *StateStore) Get(state string) (*OAuthState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[state]
	return st, ok
}

func (s *StateStore) Delete(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, state)
}

func (s *StateStore) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweepExpired(time.Now())
		case <-s.done:
			return
		}
	}
}

func (s *StateStore) sweepExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, state := range s.states {
		if now.After(state.ExpiresAt) {
			delete(s.states, key)
		}
	}
}

// generateRandomString generates a cryptographically secure random string.
func generateRandomString(length int) string {
	b := make([]byte, length)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}

// Start initiates the Google OAuth flow.
// GET /v1/auth/google?redirect_uri=<app_return_uri>
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	redirectURI := r.URL.Query().Get("redirect_uri")
	if redirectURI == "" {
		redirectURI = "/dashboard"
	}

	// Generate state and nonce
	state := generateRandomString(32)
	nonce := generateRandomString(32)

	h.stateStore.Set(&OAuthState{
		State:       state,
		Nonce:       nonce,
		RedirectURI: redirectURI,
		ExpiresAt:   time.Now().Add(10 * time.Minute),
	})

	authURL := h.googleService.GenerateAuthURL(state, nonce)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback handles the Google OAuth callback.
// GET /v1/auth/google/callback?code=...&state=...
//
// A successful callback sets the session cookie and redirects into the
// app; any failure is surfaced rather than falling back to an anonymous
// session.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	errorParam := r.URL.Query().Get("error")

	// Check for OAuth error
	if errorParam != "" {
		httputil.Error(w, http.StatusBadRequest, errorParam)
		return
	}

	// Validate state
	oauthState, ok := h.stateStore.Get(state)
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "invalid or expired state")
		return
	}
	h.stateStore.Delete(state)

	if time.Now().After(oauthState.ExpiresAt) {
		httputil.Error(w, http.StatusBadRequest, "state expired")
		return
	}

	// Exchange code for tokens
	tokenResp, err := h.googleService.ExchangeCode(r.Context(), code)
	if err != nil {
		h.logger.Error("token exchange failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to exchange code")
		return
	}

	// Validate ID token
	claims, err := h.googleService.ValidateIDToken(tokenResp.IDToken)
	if err != nil {
		httputil.Error(w, http.StatusUnauthorized, "invalid ID token")
		return
	}

	// Find or create the local identity for the asserted email
	ident, err := h.googleService.Unify(r.Context(), claims)
	if err != nil {
		h.logger.Error("federated login failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	token, err := h.sessionService.IssueClaims(ident)
	if err != nil {
		h.logger.Error("failed to issue session", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to issue session")
		return
	}

	httputil.SetSessionCookie(w, token, h.sessionService.TTL(), h.cookieConfig)
	http.Redirect(w, r, oauthState.RedirectURI, http.StatusFound)
}
