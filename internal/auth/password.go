package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/rishta-app/rishta/internal/domain"
)

var handlePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{2,29}$`)

// ValidateHandle checks handle format: 3-30 characters, alphanumeric
// plus underscore/hyphen, starting with an alphanumeric.
func ValidateHandle(handle string) error {
	if !handlePattern.MatchString(handle) {
		return domain.ErrInvalidHandle
	}
	return nil
}

// ValidateEmail checks basic email address shape.
func ValidateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.ErrInvalidEmail
	}
	return nil
}

// CredentialService handles signup, code verification and credentialed
// sign-in.
type CredentialService struct {
	store  IdentityStore
	codes  *CodeIssuer
	logger *slog.Logger
}

// NewCredentialService creates a new credential service.
func NewCredentialService(store IdentityStore, codes *CodeIssuer, logger *slog.Logger) *CredentialService {
	return &CredentialService{
		store:  store,
		codes:  codes,
		logger: logger,
	}
}

// SignupResult reports what Signup did.
type SignupResult struct {
	Identity *domain.Identity
	// Created is true for a fresh registration, false when an existing
	// unverified identity was updated and re-issued a code.
	Created bool
	// DeliveryFailed is true when the code was persisted but the email
	// could not be dispatched. The signup itself still succeeded.
	DeliveryFailed bool
}

// Signup registers a new identity or refreshes an unverified one.
//
// A verified identity already holding the handle or the email is a
// conflict. An unverified identity with the same email gets its
// password overwritten and a fresh code issued, so signup retries work
// without accumulating codes.
func (s *CredentialService) Signup(ctx context.Context, handle, email, password string) (*SignupResult, error) {
	if err := ValidateHandle(handle); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	email = domain.NormalizeEmail(email)

	existing, err := s.store.FindByHandle(ctx, handle)
	if err != nil && !errors.Is(err, domain.ErrIdentityNotFound) {
		return nil, err
	}
	if existing != nil && existing.Verified {
		return nil, domain.ErrHandleTaken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	byEmail, err := s.store.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrIdentityNotFound) {
		return nil, err
	}

	if byEmail != nil {
		if byEmail.Verified {
			return nil, domain.ErrEmailTaken
		}
		// Signup retry for a pending registration: overwrite the
		// password and reissue the code.
		byEmail.PasswordHash = &hash
		_, _, err := s.codes.Issue(ctx, byEmail)
		if errors.Is(err, domain.ErrDeliveryFailed) {
			return &SignupResult{Identity: byEmail, DeliveryFailed: true}, nil
		}
		if err != nil {
			return nil, err
		}
		return &SignupResult{Identity: byEmail}, nil
	}

	now := time.Now()
	ident := &domain.Identity{
		ID:                uuid.New(),
		Handle:            handle,
		Email:             email,
		PasswordHash:      &hash,
		Verified:          false,
		AcceptingMessages: true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.Create(ctx, ident); err != nil {
		return nil, err
	}

	_, _, err = s.codes.Issue(ctx, ident)
	if errors.Is(err, domain.ErrDeliveryFailed) {
		return &SignupResult{Identity: ident, Created: true, DeliveryFailed: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return &SignupResult{Identity: ident, Created: true}, nil
}

// Verify checks a submitted code for the identity and, on success,
// transitions it to verified and clears the pending code. Once state
// has advanced, a second attempt with the same code fails: there is no
// way to double-apply a verification.
func (s *CredentialService) Verify(ctx context.Context, handle, code string) (*domain.Identity, error) {
	ident, err := s.store.FindByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}

	if err := ident.CheckCode(code, time.Now()); err != nil {
		return nil, err
	}

	ident.Verified = true
	ident.ClearCode()
	if err := s.store.Save(ctx, ident); err != nil {
		return nil, err
	}

	s.logger.Info("identity verified", "handle", ident.Handle)
	return ident, nil
}

// Resend issues a fresh code for an unverified identity, overwriting
// the prior one.
func (s *CredentialService) Resend(ctx context.Context, handle string) error {
	ident, err := s.store.FindByHandle(ctx, handle)
	if err != nil {
		return err
	}
	if ident.Verified {
		return domain.ErrAlreadyVerified
	}

	_, _, err = s.codes.Issue(ctx, ident)
	return err
}

// Authorize validates an identifier (handle or email, exact match) and
// password pair. Failure order: not found, unverified, missing
// password, then hash comparison. Plaintext is never compared.
func (s *CredentialService) Authorize(ctx context.Context, identifier, password string) (*domain.Identity, error) {
	ident, err := s.store.FindByHandleOrEmail(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !ident.Verified {
		return nil, domain.ErrUnverified
	}
	if !ident.HasPassword() {
		// Federated-only identity attempting the credentials path.
		return nil, domain.ErrMissingPassword
	}
	if !VerifyPassword(password, *ident.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return ident, nil
}
