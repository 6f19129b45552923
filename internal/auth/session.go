package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rishta-app/rishta/internal/domain"
)

// DefaultSessionTTL is the default session token lifetime.
const DefaultSessionTTL = 7 * 24 * time.Hour

// SessionConfig holds session configuration.
type SessionConfig struct {
	JWTSecret []byte
	Issuer    string
	TTL       time.Duration
}

// Claims is the signed projection of an identity carried by a session
// token: durable reference, handle and verified flag at issuance time.
// Handle and avatar are refreshed from the store on each request;
// verified is trusted from issuance.
type Claims struct {
	jwt.RegisteredClaims
	Handle   string `json:"handle"`
	Verified bool   `json:"verified"`
	Avatar   string `json:"avatar,omitempty"`
}

// IdentityID returns the identity reference from the token subject.
func (c *Claims) IdentityID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// SessionService mints and validates session tokens.
type SessionService struct {
	config SessionConfig
	store  IdentityStore
}

// NewSessionService creates a new session service.
func NewSessionService(config SessionConfig, store IdentityStore) *SessionService {
	if config.TTL == 0 {
		config.TTL = DefaultSessionTTL
	}
	return &SessionService{
		config: config,
		store:  store,
	}
}

// TTL returns the session token lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.config.TTL
}

// IssueClaims mints a signed session token for a just-authorized
// identity.
func (s *SessionService) IssueClaims(ident *domain.Identity) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TTL)),
			Issuer:    s.config.Issuer,
		},
		Handle:   ident.Handle,
		Verified: ident.Verified,
	}
	if ident.AvatarURL != nil {
		claims.Avatar = *ident.AvatarURL
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.config.JWTSecret)
}

// ParseClaims validates a session token's signature and structure. Any
// failure returns domain.ErrInvalidToken; callers treat that as an
// absent (anonymous) session.
func (s *SessionService) ParseClaims(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.config.JWTSecret, nil
	})
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

// RefreshClaims re-derives the claim view from the store so profile
// edits (handle, avatar) are reflected without forcing re-login. The
// verified flag stays as issued. A token whose identity no longer
// resolves is treated as invalid.
func (s *SessionService) RefreshClaims(ctx context.Context, claims *Claims) (*Claims, error) {
	id, err := claims.IdentityID()
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	ident, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}

	refreshed := *claims
	refreshed.Handle = ident.Handle
	refreshed.Avatar = ""
	if ident.AvatarURL != nil {
		refreshed.Avatar = *ident.AvatarURL
	}
	return &refreshed, nil
}
