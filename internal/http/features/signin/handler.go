package signin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rishta-app/rishta/internal/auth"
	"github.com/rishta-app/rishta/internal/domain"
	"github.com/rishta-app/rishta/internal/httputil"
)

// Handler handles credentialed sign-in and logout.
type Handler struct {
	logger       *slog.Logger
	credentials  *auth.CredentialService
	sessions     *auth.SessionService
	cookieConfig httputil.CookieConfig
}

// NewHandler creates a new sign-in handler.
func NewHandler(logger *slog.Logger, credentials *auth.CredentialService, sessions *auth.SessionService) *Handler {
	return &Handler{
		logger:       logger,
		credentials:  credentials,
		sessions:     sessions,
		cookieConfig: httputil.DefaultCookieConfig(),
	}
}

// SignInRequest represents a credentials sign-in request.
type SignInRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// SignInResponse carries the session token and redirect target.
type SignInResponse struct {
	Success  bool   `json:"success"`
	Token    string `json:"token"`
	Redirect string `json:"redirect"`
}

// SignIn handles credentials login.
// POST /v1/auth/signin
//
// Failure messages do not reveal which of handle/email/password was
// wrong.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Identifier == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "identifier and password are required")
		return
	}

	ident, err := h.credentials.Authorize(r.Context(), req.Identifier, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrIdentityNotFound), errors.Is(err, domain.ErrInvalidCredentials):
			httputil.Error(w, http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, domain.ErrUnverified):
			httputil.Error(w, http.StatusForbidden, "Verify the user first")
		case errors.Is(err, domain.ErrMissingPassword):
			httputil.Error(w, http.StatusBadRequest, "Password is missing.")
		default:
			h.logger.Error("sign-in failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	token, err := h.sessions.IssueClaims(ident)
	if err != nil {
		h.logger.Error("failed to issue session", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to issue session")
		return
	}

	httputil.SetSessionCookie(w, token, h.sessions.TTL(), h.cookieConfig)
	httputil.JSON(w, http.StatusOK, SignInResponse{
		Success:  true,
		Token:    token,
		Redirect: "/dashboard",
	})
}

// Logout clears the session cookie.
// POST /v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	httputil.ClearSessionCookie(w, h.cookieConfig)
	httputil.OK(w, http.StatusOK, "Logged out")
}
