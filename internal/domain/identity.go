package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Gender is the profile gender enum.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// ParseGender normalizes a user-supplied gender label.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return GenderMale, nil
	case "female":
		return GenderFemale, nil
	case "other":
		return GenderOther, nil
	}
	return "", ErrInvalidGender
}

// ValidateAge checks the positive-integer age invariant.
func ValidateAge(age int) error {
	if age <= 0 {
		return ErrInvalidAge
	}
	return nil
}

// Identity is a user's full persisted record: credentials, verification
// state, profile fields, and inbox.
type Identity struct {
	ID                uuid.UUID
	Handle            string
	Email             string
	PasswordHash      *string
	Verified          bool
	AcceptingMessages bool
	Bio               *string
	Gender            *Gender
	Age               *int
	CastLabel         *string
	Interests         []string
	SocialLinks       []string
	AvatarURL         *string
	Code              *string
	CodeExpiry        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasPassword reports whether the identity can use the credentials path.
// Identities created through federated login carry no password hash.
func (i *Identity) HasPassword() bool {
	return i.PasswordHash != nil && *i.PasswordHash != ""
}

// HasPendingCode reports whether a verification code is outstanding.
// Code and expiry are always both present or both absent.
func (i *Identity) HasPendingCode() bool {
	return i.Code != nil && i.CodeExpiry != nil
}

// AcceptsMessages reports whether the identity can receive a new
// message, returning ErrNotAcceptingMessages when its inbox is closed.
func (i *Identity) AcceptsMessages() error {
	if !i.AcceptingMessages {
		return ErrNotAcceptingMessages
	}
	return nil
}

// SetCode records a freshly issued verification code, overwriting any
// prior code and expiry.
func (i *Identity) SetCode(code string, expiry time.Time) {
	i.Code = &code
	i.CodeExpiry = &expiry
}

// ClearCode removes the pending verification code and its expiry.
func (i *Identity) ClearCode() {
	i.Code = nil
	i.CodeExpiry = nil
}

// CheckCode validates a submitted code against the pending one at the
// given instant. It returns ErrAlreadyVerified, ErrCodeInvalid or
// ErrCodeExpired on rejection.
func (i *Identity) CheckCode(code string, at time.Time) error {
	if i.Verified {
		return ErrAlreadyVerified
	}
	if !i.HasPendingCode() || *i.Code != code {
		return ErrCodeInvalid
	}
	if at.After(*i.CodeExpiry) {
		return ErrCodeExpired
	}
	return nil
}

// NormalizeEmail lowercases and trims an email address for storage and
// lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UnknownSender is the display name used when a message's sender
// reference cannot be resolved.
const UnknownSender = "unknown"

// Message is an inbox entry on an Identity. Sender may be unresolved
// when the sending identity reference is absent.
type Message struct {
	ID           uuid.UUID
	RecipientID  uuid.UUID
	SenderID     *uuid.UUID
	SenderHandle *string
	Content      string
	IsRead       bool
	CreatedAt    time.Time
	Replies      []Reply
}

// SenderName returns the resolved sender handle, or UnknownSender when
// the reference could not be resolved.
func (m *Message) SenderName() string {
	if m.SenderHandle == nil || *m.SenderHandle == "" {
		return UnknownSender
	}
	return *m.SenderHandle
}

// Reply is an entry in a message's reply thread.
type Reply struct {
	ID           uuid.UUID
	MessageID    uuid.UUID
	SenderID     *uuid.UUID
	SenderHandle *string
	Content      string
	CreatedAt    time.Time
}

// SenderName returns the resolved sender handle, or UnknownSender.
func (r *Reply) SenderName() string {
	if r.SenderHandle == nil || *r.SenderHandle == "" {
		return UnknownSender
	}
	return *r.SenderHandle
}
