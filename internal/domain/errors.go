package domain

import "errors"

// Authentication and verification errors
var (
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrHandleTaken        = errors.New("handle already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnverified         = errors.New("identity not verified")
	ErrAlreadyVerified    = errors.New("identity already verified")
	ErrMissingPassword    = errors.New("identity has no password")
	ErrCodeInvalid        = errors.New("verification code invalid")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrInvalidToken       = errors.New("invalid session token")
)

// Messaging errors
var (
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotAcceptingMessages = errors.New("recipient is not accepting messages")
)

// Collaborator errors
var (
	// ErrDeliveryFailed reports a failed email dispatch. The issued code
	// stays persisted and valid for resend, so callers treat this as a
	// soft failure.
	ErrDeliveryFailed = errors.New("verification email delivery failed")
)

// Validation errors
var (
	ErrInvalidEmail  = errors.New("invalid email address")
	ErrInvalidHandle = errors.New("invalid handle format")
	ErrInvalidAge    = errors.New("age must be a positive integer")
	ErrInvalidGender = errors.New("invalid gender value")
)

// IsConflict reports whether err is a uniqueness violation on handle or
// email.
func IsConflict(err error) bool {
	return errors.Is(err, ErrHandleTaken) || errors.Is(err, ErrEmailTaken)
}
