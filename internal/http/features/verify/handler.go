package verify

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rishta-app/rishta/internal/auth"
	"github.com/rishta-app/rishta/internal/domain"
	"github.com/rishta-app/rishta/internal/httputil"
)

// Handler handles verification code submission and resend.
type Handler struct {
	logger      *slog.Logger
	credentials *auth.CredentialService
}

// NewHandler creates a new verification handler.
func NewHandler(logger *slog.Logger, credentials *auth.CredentialService) *Handler {
	return &Handler{
		logger:      logger,
		credentials: credentials,
	}
}

// VerifyRequest represents a code submission.
type VerifyRequest struct {
	Username string `json:"username"`
	Code     string `json:"verificationCode"`
}

// Verify handles code submission.
// POST /v1/auth/verify
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Code == "" {
		httputil.Error(w, http.StatusBadRequest, "username and verification code are required")
		return
	}

	_, err := h.credentials.Verify(r.Context(), req.Username, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrIdentityNotFound):
			httputil.Error(w, http.StatusBadRequest, "User not found")
		case errors.Is(err, domain.ErrAlreadyVerified):
			httputil.Error(w, http.StatusBadRequest, "User already verified")
		case errors.Is(err, domain.ErrCodeInvalid), errors.Is(err, domain.ErrCodeExpired):
			httputil.Error(w, http.StatusBadRequest, "Verification code invalid or expired")
		default:
			h.logger.Error("verification failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "verification failed")
		}
		return
	}

	httputil.OK(w, http.StatusOK, "User verified successfully")
}

// ResendRequest represents a code resend request.
type ResendRequest struct {
	Username string `json:"username"`
}

// Resend reissues a verification code. The acknowledgment is generic:
// no code is returned and account existence is not revealed.
// POST /v1/auth/resend
func (h *Handler) Resend(w http.ResponseWriter, r *http.Request) {
	var req ResendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" {
		httputil.Error(w, http.StatusBadRequest, "username is required")
		return
	}

	if err := h.credentials.Resend(r.Context(), req.Username); err != nil {
		if !errors.Is(err, domain.ErrIdentityNotFound) &&
			!errors.Is(err, domain.ErrAlreadyVerified) &&
			!errors.Is(err, domain.ErrDeliveryFailed) {
			h.logger.Error("code resend failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "resend failed")
			return
		}
		// Unknown handles, already-verified accounts and delivery
		// failures all get the same generic acknowledgment.
	}

	httputil.OK(w, http.StatusOK, "If the account exists and is unverified, a new code has been sent")
}
