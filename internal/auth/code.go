package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rishta-app/rishta/internal/domain"
	"github.com/rishta-app/rishta/internal/notification"
)

// Default verification code lifetimes.
const (
	DefaultCodeTTL         = time.Hour
	DefaultDeliveryTimeout = 5 * time.Second
)

// CodeIssuerConfig holds code issuance configuration.
type CodeIssuerConfig struct {
	CodeTTL         time.Duration
	DeliveryTimeout time.Duration
}

// CodeIssuer generates and time-bounds one-time verification codes and
// dispatches them through the mail collaborator.
type CodeIssuer struct {
	config CodeIssuerConfig
	store  IdentityStore
	mailer notification.Mailer
	logger *slog.Logger
}

// NewCodeIssuer creates a new code issuer. mailer may be nil, in which
// case codes are persisted but not delivered.
func NewCodeIssuer(config CodeIssuerConfig, store IdentityStore, mailer notification.Mailer, logger *slog.Logger) *CodeIssuer {
	if config.CodeTTL == 0 {
		config.CodeTTL = DefaultCodeTTL
	}
	if config.DeliveryTimeout == 0 {
		config.DeliveryTimeout = DefaultDeliveryTimeout
	}
	return &CodeIssuer{
		config: config,
		store:  store,
		mailer: mailer,
		logger: logger,
	}
}

// Issue generates a fresh 6-digit code with expiry = now + TTL,
// persists both on the identity (always overwriting any prior pair, so
// at most one code is valid at a time), then dispatches the email.
//
// Delivery runs under a bounded timeout so a slow SMTP peer cannot
// block the response. A delivery failure is returned wrapped in
// domain.ErrDeliveryFailed; the persisted code stays valid for resend.
func (s *CodeIssuer) Issue(ctx context.Context, ident *domain.Identity) (string, time.Time, error) {
	code, err := GenerateCode()
	if err != nil {
		return "", time.Time{}, err
	}
	expiry := time.Now().Add(s.config.CodeTTL)

	ident.SetCode(code, expiry)
	if err := s.store.Save(ctx, ident); err != nil {
		return "", time.Time{}, err
	}

	if s.mailer == nil {
		s.logger.Warn("no mailer configured, verification code not delivered", "handle", ident.Handle)
		return code, expiry, nil
	}

	if err := s.deliver(ctx, ident.Email, ident.Handle, code); err != nil {
		s.logger.Error("verification email delivery failed", "error", err, "handle", ident.Handle)
		return code, expiry, fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}

	s.logger.Info("verification code sent", "handle", ident.Handle)
	return code, expiry, nil
}

func (s *CodeIssuer) deliver(ctx context.Context, email, handle, code string) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.DeliveryTimeout)
	defer cancel()

	subject, body := notification.VerificationEmail(handle, code)

	done := make(chan error, 1)
	go func() {
		done <- s.mailer.Send(email, handle, subject, body)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
