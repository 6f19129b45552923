package profile

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rishta-app/rishta/internal/auth"
	"github.com/rishta-app/rishta/internal/domain"
	"github.com/rishta-app/rishta/internal/http/middleware"
	"github.com/rishta-app/rishta/internal/httputil"
	"github.com/rishta-app/rishta/internal/repository"
	"github.com/rishta-app/rishta/internal/storage"
)

// maxAvatarBytes bounds the multipart body accepted on profile updates.
const maxAvatarBytes = 10 << 20

// Handler handles the authenticated profile endpoints.
type Handler struct {
	logger     *slog.Logger
	identities *repository.IdentitiesRepository
	messages   *repository.MessagesRepository
	avatars    *storage.AvatarStore
}

// NewHandler creates a new profile handler. avatars may be nil when no
// object storage backend is configured; image uploads are then rejected.
func NewHandler(logger *slog.Logger, identities *repository.IdentitiesRepository, messages *repository.MessagesRepository, avatars *storage.AvatarStore) *Handler {
	return &Handler{
		logger:     logger,
		identities: identities,
		messages:   messages,
		avatars:    avatars,
	}
}

// ProfileResponse is the owner's view of their identity. The password
// hash and pending verification code never appear here.
type ProfileResponse struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	Verified          bool      `json:"verified"`
	AcceptingMessages bool      `json:"isAcceptingMessages"`
	Bio               *string   `json:"bio,omitempty"`
	Gender            *string   `json:"gender,omitempty"`
	Age               *int      `json:"age,omitempty"`
	Cast              *string   `json:"cast,omitempty"`
	Interests         []string  `json:"interests"`
	SocialLinks       []string  `json:"socialLinks"`
	AvatarURL         *string   `json:"image,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// ReplyView is one reply in a message thread.
type ReplyView struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageView is one inbox entry with its resolved sender and replies.
type MessageView struct {
	ID        string      `json:"id"`
	Sender    string      `json:"sender"`
	Content   string      `json:"content"`
	IsRead    bool        `json:"isRead"`
	CreatedAt time.Time   `json:"createdAt"`
	Replies   []ReplyView `json:"replies"`
}

// MeResponse bundles the owner profile with their inbox.
type MeResponse struct {
	User     ProfileResponse `json:"user"`
	Messages []MessageView   `json:"messages"`
}

// NewProfileResponse maps an identity to its owner view.
func NewProfileResponse(ident *domain.Identity) ProfileResponse {
	resp := ProfileResponse{
		ID:                ident.ID.String(),
		Username:          ident.Handle,
		Email:             ident.Email,
		Verified:          ident.Verified,
		AcceptingMessages: ident.AcceptingMessages,
		Bio:               ident.Bio,
		Age:               ident.Age,
		Cast:              ident.CastLabel,
		Interests:         ident.Interests,
		SocialLinks:       ident.SocialLinks,
		AvatarURL:         ident.AvatarURL,
		CreatedAt:         ident.CreatedAt,
	}
	if ident.Gender != nil {
		g := string(*ident.Gender)
		resp.Gender = &g
	}
	if resp.Interests == nil {
		resp.Interests = []string{}
	}
	if resp.SocialLinks == nil {
		resp.SocialLinks = []string{}
	}
	return resp
}

// NewMessageViews maps inbox messages to their response views.
func NewMessageViews(messages []domain.Message) []MessageView {
	views := make([]MessageView, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		view := MessageView{
			ID:        msg.ID.String(),
			Sender:    msg.SenderName(),
			Content:   msg.Content,
			IsRead:    msg.IsRead,
			CreatedAt: msg.CreatedAt,
			Replies:   make([]ReplyView, 0, len(msg.Replies)),
		}
		for j := range msg.Replies {
			reply := &msg.Replies[j]
			view.Replies = append(view.Replies, ReplyView{
				ID:        reply.ID.String(),
				Sender:    reply.SenderName(),
				Content:   reply.Content,
				CreatedAt: reply.CreatedAt,
			})
		}
		views = append(views, view)
	}
	return views
}

// GetMe returns the current identity's profile and inbox.
// GET /v1/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	identityID, ok := middleware.GetIdentityID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ident, err := h.identities.FindByID(r.Context(), identityID)
	if err != nil {
		httputil.Error(w, http.StatusNotFound, "User not found")
		return
	}

	inbox, err := h.messages.ListInbox(r.Context(), identityID)
	if err != nil {
		h.logger.Error("failed to load inbox", "error", err, "identity_id", identityID)
		httputil.Error(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	httputil.JSON(w, http.StatusOK, MeResponse{
		User:     NewProfileResponse(ident),
		Messages: NewMessageViews(inbox),
	})
}

// UpdateMe updates the current identity's profile from a multipart form.
// PATCH /v1/me
//
// Absent or empty fields keep their stored values. An uploaded image
// replaces the avatar when an object storage backend is configured.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	identityID, ok := middleware.GetIdentityID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid form data")
		return
	}

	ident, err := h.identities.FindByID(r.Context(), identityID)
	if err != nil {
		httputil.Error(w, http.StatusNotFound, "User not found")
		return
	}

	if username := strings.TrimSpace(r.FormValue("username")); username != "" && username != ident.Handle {
		if err := auth.ValidateHandle(username); err != nil {
			httputil.Error(w, http.StatusBadRequest, "Invalid username")
			return
		}
		ident.Handle = username
	}

	if bio := strings.TrimSpace(r.FormValue("bio")); bio != "" {
		ident.Bio = &bio
	}

	if genderRaw := r.FormValue("gender"); genderRaw != "" {
		gender, err := domain.ParseGender(genderRaw)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "Invalid gender")
			return
		}
		ident.Gender = &gender
	}

	if cast := strings.TrimSpace(r.FormValue("cast")); cast != "" {
		ident.CastLabel = &cast
	}

	if ageRaw := r.FormValue("age"); ageRaw != "" {
		age, err := strconv.Atoi(ageRaw)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "Invalid age")
			return
		}
		if err := domain.ValidateAge(age); err != nil {
			httputil.Error(w, http.StatusBadRequest, "Invalid age")
			return
		}
		ident.Age = &age
	}

	if links := splitList(r.Form["socialLinks"]); len(links) > 0 {
		ident.SocialLinks = links
	}

	if interests := splitList(r.Form["interests"]); len(interests) > 0 {
		ident.Interests = interests
	}

	if accepting := r.FormValue("isAcceptingMessages"); accepting != "" {
		value, err := strconv.ParseBool(accepting)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "Invalid isAcceptingMessages")
			return
		}
		ident.AcceptingMessages = value
	}

	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		if h.avatars == nil {
			httputil.Error(w, http.StatusBadRequest, "image uploads are not enabled")
			return
		}
		url, err := h.avatars.Upload(r.Context(), ident.ID, file, header.Size, header.Header.Get("Content-Type"))
		if err != nil {
			h.logger.Error("avatar upload failed", "error", err, "identity_id", identityID)
			httputil.Error(w, http.StatusBadRequest, "failed to upload image")
			return
		}
		ident.AvatarURL = &url
	}

	ident.UpdatedAt = time.Now()
	if err := h.identities.Save(r.Context(), ident); err != nil {
		if domain.IsConflict(err) {
			httputil.Error(w, http.StatusConflict, "Username already taken")
			return
		}
		h.logger.Error("failed to update profile", "error", err, "identity_id", identityID)
		httputil.Error(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	httputil.JSON(w, http.StatusOK, NewProfileResponse(ident))
}

// splitList flattens repeated form values and comma-separated entries
// into a trimmed list.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
