package messages

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rishta-app/rishta/internal/domain"
	"github.com/rishta-app/rishta/internal/http/middleware"
	"github.com/rishta-app/rishta/internal/httputil"
	"github.com/rishta-app/rishta/internal/repository"
)

// maxContentLength bounds a single message or reply body.
const maxContentLength = 2000

// Handler handles the messaging endpoints.
type Handler struct {
	logger     *slog.Logger
	identities *repository.IdentitiesRepository
	messages   *repository.MessagesRepository
}

// NewHandler creates a new messages handler.
func NewHandler(logger *slog.Logger, identities *repository.IdentitiesRepository, messages *repository.MessagesRepository) *Handler {
	return &Handler{
		logger:     logger,
		identities: identities,
		messages:   messages,
	}
}

// ContentRequest carries a message or reply body.
type ContentRequest struct {
	Content string `json:"content"`
}

func decodeContent(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req ContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		httputil.Error(w, http.StatusBadRequest, "content is required")
		return "", false
	}
	if len(content) > maxContentLength {
		httputil.Error(w, http.StatusBadRequest, "content is too long")
		return "", false
	}
	return content, true
}

// Send delivers a message to the named recipient's inbox.
// POST /v1/messages?recipient={handle}
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	senderID, ok := middleware.GetIdentityID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	handle := strings.TrimSpace(r.URL.Query().Get("recipient"))
	if handle == "" {
		httputil.Error(w, http.StatusBadRequest, "recipient is required")
		return
	}

	content, ok := decodeContent(w, r)
	if !ok {
		return
	}

	recipient, err := h.identities.FindByHandleFold(r.Context(), handle)
	if err != nil {
		httputil.Error(w, http.StatusNotFound, "Recipient not found.")
		return
	}

	if err := recipient.AcceptsMessages(); errors.Is(err, domain.ErrNotAcceptingMessages) {
		httputil.Error(w, http.StatusForbidden, "User is not accepting messages")
		return
	}

	msg := &domain.Message{
		RecipientID: recipient.ID,
		SenderID:    &senderID,
		Content:     content,
	}
	if err := h.messages.Append(r.Context(), msg); err != nil {
		h.logger.Error("failed to send message", "error", err, "recipient", recipient.Handle)
		httputil.Error(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	httputil.JSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Message sent successfully",
		"id":      msg.ID.String(),
	})
}

// Reply appends a reply to a message thread. Only the message's
// recipient and its original sender may reply.
// POST /v1/messages/{id}/replies
func (h *Handler) Reply(w http.ResponseWriter, r *http.Request) {
	identityID, ok := middleware.GetIdentityID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	messageID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusNotFound, "Message not found")
		return
	}

	content, ok := decodeContent(w, r)
	if !ok {
		return
	}

	msg, err := h.messages.GetByID(r.Context(), messageID)
	if err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			httputil.Error(w, http.StatusNotFound, "Message not found")
			return
		}
		h.logger.Error("failed to load message", "error", err, "message_id", messageID)
		httputil.Error(w, http.StatusInternalServerError, "failed to load message")
		return
	}

	if !canReply(msg, identityID) {
		httputil.Error(w, http.StatusForbidden, "You cannot reply to this message")
		return
	}

	reply := &domain.Reply{
		MessageID: msg.ID,
		SenderID:  &identityID,
		Content:   content,
	}
	if err := h.messages.AppendReply(r.Context(), reply); err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			httputil.Error(w, http.StatusNotFound, "Message not found")
			return
		}
		h.logger.Error("failed to append reply", "error", err, "message_id", messageID)
		httputil.Error(w, http.StatusInternalServerError, "failed to send reply")
		return
	}

	httputil.JSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Reply sent successfully",
		"id":      reply.ID.String(),
	})
}

// MarkRead flags an inbox message as read. Only the recipient may do so;
// anyone else sees the message as absent.
// POST /v1/messages/{id}/read
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identityID, ok := middleware.GetIdentityID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	messageID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusNotFound, "Message not found")
		return
	}

	if err := h.messages.MarkRead(r.Context(), identityID, messageID); err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			httputil.Error(w, http.StatusNotFound, "Message not found")
			return
		}
		h.logger.Error("failed to mark message read", "error", err, "message_id", messageID)
		httputil.Error(w, http.StatusInternalServerError, "failed to update message")
		return
	}

	httputil.OK(w, http.StatusOK, "Message marked as read")
}

// canReply reports whether the identity participates in the thread.
func canReply(msg *domain.Message, identityID uuid.UUID) bool {
	if msg.RecipientID == identityID {
		return true
	}
	return msg.SenderID != nil && *msg.SenderID == identityID
}
