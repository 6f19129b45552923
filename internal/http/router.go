package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rishta-app/rishta/internal/auth"
	"github.com/rishta-app/rishta/internal/http/features/browse"
	"github.com/rishta-app/rishta/internal/http/features/google"
	"github.com/rishta-app/rishta/internal/http/features/messages"
	"github.com/rishta-app/rishta/internal/http/features/profile"
	"github.com/rishta-app/rishta/internal/http/features/signin"
	"github.com/rishta-app/rishta/internal/http/features/signup"
	"github.com/rishta-app/rishta/internal/http/features/verify"
	"github.com/rishta-app/rishta/internal/http/middleware"
	"github.com/rishta-app/rishta/internal/httputil"
	"github.com/rishta-app/rishta/internal/repository"
	"github.com/rishta-app/rishta/internal/storage"
)

// maxRequestBodySize caps JSON request bodies. Multipart profile
// updates parse with their own limit.
const maxRequestBodySize = 1 << 20

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger            *slog.Logger
	CredentialService *auth.CredentialService
	GoogleService     *auth.GoogleService
	SessionService    *auth.SessionService
	IdentitiesRepo    *repository.IdentitiesRepository
	MessagesRepo      *repository.MessagesRepository
	AvatarStore       *storage.AvatarStore
	ProtectedPrefixes []string

	RateLimitEnabled        bool
	AuthRequestsPerMinute   int
	VerifyRequestsPerMinute int
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Gate(cfg.SessionService, cfg.ProtectedPrefixes))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	authLimiter := middleware.NoRateLimit()
	verifyLimiter := middleware.NoRateLimit()
	if cfg.RateLimitEnabled {
		authLimiter = middleware.RateLimit(middleware.RateLimitConfig{
			Requests: cfg.AuthRequestsPerMinute,
			Window:   time.Minute,
			Logger:   cfg.Logger,
		})
		verifyLimiter = middleware.RateLimit(middleware.RateLimitConfig{
			Requests: cfg.VerifyRequestsPerMinute,
			Window:   time.Minute,
			Logger:   cfg.Logger,
		})
	}

	bodyLimit := middleware.RequestSizeLimit(maxRequestBodySize)

	// Registration and credentials sign-in
	signupHandler := signup.NewHandler(cfg.Logger, cfg.CredentialService)
	signinHandler := signin.NewHandler(cfg.Logger, cfg.CredentialService, cfg.SessionService)
	r.Group(func(r chi.Router) {
		r.Use(authLimiter, bodyLimit)
		r.Post("/v1/auth/signup", signupHandler.Register)
		r.Post("/v1/auth/signin", signinHandler.SignIn)
	})
	r.Post("/v1/auth/logout", signinHandler.Logout)

	// Verification code submission and resend
	verifyHandler := verify.NewHandler(cfg.Logger, cfg.CredentialService)
	r.Group(func(r chi.Router) {
		r.Use(verifyLimiter, bodyLimit)
		r.Post("/v1/auth/verify", verifyHandler.Verify)
		r.Post("/v1/auth/resend", verifyHandler.Resend)
	})

	// Google OAuth (if configured)
	if cfg.GoogleService != nil {
		googleHandler := google.NewHandler(cfg.GoogleService, cfg.SessionService, cfg.Logger)
		r.Get("/v1/auth/google", googleHandler.Start)
		r.Get("/v1/auth/google/callback", googleHandler.Callback)
	}

	// Owner profile and inbox
	profileHandler := profile.NewHandler(cfg.Logger, cfg.IdentitiesRepo, cfg.MessagesRepo, cfg.AvatarStore)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.SessionService))
		r.Get("/v1/me", profileHandler.GetMe)
		r.Patch("/v1/me", profileHandler.UpdateMe)
	})

	// Browsing and messaging require a verified session
	browseHandler := browse.NewHandler(cfg.Logger, cfg.IdentitiesRepo)
	messagesHandler := messages.NewHandler(cfg.Logger, cfg.IdentitiesRepo, cfg.MessagesRepo)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.SessionService))
		r.Use(middleware.RequireVerified())
		r.Get("/v1/profiles", browseHandler.List)
		r.Get("/v1/profiles/{handle}", browseHandler.ByHandle)
		r.Group(func(r chi.Router) {
			r.Use(bodyLimit)
			r.Post("/v1/messages", messagesHandler.Send)
			r.Post("/v1/messages/{id}/replies", messagesHandler.Reply)
			r.Post("/v1/messages/{id}/read", messagesHandler.MarkRead)
		})
	})

	return r
}
