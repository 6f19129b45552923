package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rishta-app/rishta/internal/domain"
)

// MessagesRepository handles inbox persistence. Messages belong to the
// recipient identity; the inbox is most-recent-first.
type MessagesRepository struct {
	db *sql.DB
}

// NewMessagesRepository creates a new messages repository.
func NewMessagesRepository(db *sql.DB) *MessagesRepository {
	return &MessagesRepository{db: db}
}

// Append inserts a message at the head of the recipient's inbox.
func (r *MessagesRepository) Append(ctx context.Context, msg *domain.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO messages (id, recipient_id, sender_id, content, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		msg.ID, msg.RecipientID, msg.SenderID, msg.Content, msg.IsRead, msg.CreatedAt,
	)
	return err
}

// AppendReply appends a reply to an existing message's thread.
// Returns domain.ErrMessageNotFound when the message does not exist.
func (r *MessagesRepository) AppendReply(ctx context.Context, reply *domain.Reply) error {
	if reply.ID == uuid.Nil {
		reply.ID = uuid.New()
	}
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO replies (id, message_id, sender_id, content, created_at)
		SELECT $1, m.id, $3, $4, $5 FROM messages m WHERE m.id = $2
	`
	result, err := r.db.ExecContext(ctx, query,
		reply.ID, reply.MessageID, reply.SenderID, reply.Content, reply.CreatedAt,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

// MarkRead flags a message in the recipient's inbox as read.
func (r *MessagesRepository) MarkRead(ctx context.Context, recipientID, messageID uuid.UUID) error {
	query := `UPDATE messages SET is_read = true WHERE id = $1 AND recipient_id = $2`
	result, err := r.db.ExecContext(ctx, query, messageID, recipientID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

// GetByID retrieves a single message without its replies.
func (r *MessagesRepository) GetByID(ctx context.Context, messageID uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT m.id, m.recipient_id, m.sender_id, s.handle, m.content, m.is_read, m.created_at
		FROM messages m
		LEFT JOIN identities s ON s.id = m.sender_id
		WHERE m.id = $1
	`
	var msg domain.Message
	err := r.db.QueryRowContext(ctx, query, messageID).Scan(
		&msg.ID, &msg.RecipientID, &msg.SenderID, &msg.SenderHandle,
		&msg.Content, &msg.IsRead, &msg.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListInbox returns the recipient's messages most-recent-first, with
// each sender reference resolved to a handle via join. An unresolvable
// sender is returned as the unknown-sender variant rather than being
// sniffed at render time. Replies are loaded oldest-first per message.
// Messages and replies are read inside one transaction so a reply
// appended between the two queries cannot reference a message missing
// from the snapshot.
func (r *MessagesRepository) ListInbox(ctx context.Context, recipientID uuid.UUID) ([]domain.Message, error) {
	var messages []domain.Message

	err := Tx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			SELECT m.id, m.recipient_id, m.sender_id, s.handle, m.content, m.is_read, m.created_at
			FROM messages m
			LEFT JOIN identities s ON s.id = m.sender_id
			WHERE m.recipient_id = $1
			ORDER BY m.created_at DESC, m.id DESC
		`
		rows, err := tx.QueryContext(ctx, query, recipientID)
		if err != nil {
			return err
		}
		defer rows.Close()

		index := make(map[uuid.UUID]int)
		for rows.Next() {
			var msg domain.Message
			err := rows.Scan(
				&msg.ID, &msg.RecipientID, &msg.SenderID, &msg.SenderHandle,
				&msg.Content, &msg.IsRead, &msg.CreatedAt,
			)
			if err != nil {
				return err
			}
			index[msg.ID] = len(messages)
			messages = append(messages, msg)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if len(messages) == 0 {
			return nil
		}

		replyQuery := `
			SELECT r.id, r.message_id, r.sender_id, s.handle, r.content, r.created_at
			FROM replies r
			LEFT JOIN identities s ON s.id = r.sender_id
			JOIN messages m ON m.id = r.message_id
			WHERE m.recipient_id = $1
			ORDER BY r.created_at ASC, r.id ASC
		`
		replyRows, err := tx.QueryContext(ctx, replyQuery, recipientID)
		if err != nil {
			return err
		}
		defer replyRows.Close()

		for replyRows.Next() {
			var reply domain.Reply
			err := replyRows.Scan(
				&reply.ID, &reply.MessageID, &reply.SenderID, &reply.SenderHandle,
				&reply.Content, &reply.CreatedAt,
			)
			if err != nil {
				return err
			}
			if i, ok := index[reply.MessageID]; ok {
				messages[i].Replies = append(messages[i].Replies, reply)
			}
		}
		return replyRows.Err()
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}
