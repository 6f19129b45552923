package signup

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rishta-app/rishta/internal/auth"
	"github.com/rishta-app/rishta/internal/domain"
	"github.com/rishta-app/rishta/internal/httputil"
)

// Handler handles registration.
type Handler struct {
	logger      *slog.Logger
	credentials *auth.CredentialService
}

// NewHandler creates a new signup handler.
func NewHandler(logger *slog.Logger, credentials *auth.CredentialService) *Handler {
	return &Handler{
		logger:      logger,
		credentials: credentials,
	}
}

// RegisterRequest represents a signup request.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles user registration.
// POST /v1/auth/signup
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "All fields are required")
		return
	}

	result, err := h.credentials.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrHandleTaken):
			httputil.Error(w, http.StatusConflict, "User already exists and verified!")
		case errors.Is(err, domain.ErrEmailTaken):
			httputil.Error(w, http.StatusConflict, "User already exists with this email")
		case errors.Is(err, domain.ErrInvalidHandle):
			httputil.Error(w, http.StatusBadRequest, "invalid username format: must be 3-30 characters, alphanumeric/underscore/hyphen, start with alphanumeric")
		case errors.Is(err, domain.ErrInvalidEmail):
			httputil.Error(w, http.StatusBadRequest, "invalid email address")
		default:
			h.logger.Error("registration failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "Error registering user")
		}
		return
	}

	// Delivery failure is soft: the code is persisted and valid for
	// resend, so the registration still succeeds.
	if result.DeliveryFailed {
		h.logger.Warn("verification email not delivered", "handle", result.Identity.Handle)
	}

	if result.Created {
		httputil.OK(w, http.StatusCreated, "User registered successfully. Please verify your account.")
		return
	}
	httputil.OK(w, http.StatusOK, "User updated. Please verify your account.")
}
