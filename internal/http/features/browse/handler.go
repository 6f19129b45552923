package browse

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rishta-app/rishta/internal/domain"
	"github.com/rishta-app/rishta/internal/httputil"
	"github.com/rishta-app/rishta/internal/repository"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Handler handles the profile browsing endpoints.
type Handler struct {
	logger     *slog.Logger
	identities *repository.IdentitiesRepository
}

// NewHandler creates a new browse handler.
func NewHandler(logger *slog.Logger, identities *repository.IdentitiesRepository) *Handler {
	return &Handler{
		logger:     logger,
		identities: identities,
	}
}

// PublicProfile is the browse view of an identity. Email, credentials
// and verification state stay private.
type PublicProfile struct {
	Username    string    `json:"username"`
	Bio         *string   `json:"bio,omitempty"`
	Gender      *string   `json:"gender,omitempty"`
	Age         *int      `json:"age,omitempty"`
	Cast        *string   `json:"cast,omitempty"`
	Interests   []string  `json:"interests"`
	SocialLinks []string  `json:"socialLinks"`
	AvatarURL   *string   `json:"image,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ListResponse is a page of matching profiles.
type ListResponse struct {
	Success     bool            `json:"success"`
	Users       []PublicProfile `json:"users"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
}

func newPublicProfile(ident *domain.Identity) PublicProfile {
	profile := PublicProfile{
		Username:    ident.Handle,
		Bio:         ident.Bio,
		Age:         ident.Age,
		Cast:        ident.CastLabel,
		Interests:   ident.Interests,
		SocialLinks: ident.SocialLinks,
		AvatarURL:   ident.AvatarURL,
		CreatedAt:   ident.CreatedAt,
	}
	if ident.Gender != nil {
		g := string(*ident.Gender)
		profile.Gender = &g
	}
	if profile.Interests == nil {
		profile.Interests = []string{}
	}
	if profile.SocialLinks == nil {
		profile.SocialLinks = []string{}
	}
	return profile
}

// List returns profiles matching the query filters, newest first.
// GET /v1/profiles?gender=&ageMin=&ageMax=&interests=&page=&limit=
//
// Gender matches case-insensitively; interests match any overlap.
// Unparsable numeric filters are treated as absent.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repository.Filter{
		Gender: strings.TrimSpace(q.Get("gender")),
		AgeMin: intQuery(q.Get("ageMin")),
		AgeMax: intQuery(q.Get("ageMax")),
		Page:   intQuery(q.Get("page")),
		Limit:  intQuery(q.Get("limit")),
	}
	if raw := q.Get("interests"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				filter.Interests = append(filter.Interests, part)
			}
		}
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}

	idents, total, err := h.identities.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list profiles", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to list profiles")
		return
	}

	users := make([]PublicProfile, 0, len(idents))
	for _, ident := range idents {
		users = append(users, newPublicProfile(ident))
	}

	totalPages := (total + filter.Limit - 1) / filter.Limit
	httputil.JSON(w, http.StatusOK, ListResponse{
		Success:     true,
		Users:       users,
		TotalPages:  totalPages,
		CurrentPage: filter.Page,
	})
}

// ByHandle returns one profile by its handle, matched case-insensitively.
// GET /v1/profiles/{handle}
func (h *Handler) ByHandle(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")

	ident, err := h.identities.FindByHandleFold(r.Context(), handle)
	if err != nil {
		httputil.Error(w, http.StatusNotFound, "User not found")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    newPublicProfile(ident),
	})
}

func intQuery(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
