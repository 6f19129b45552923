package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rishta-app/rishta/internal/domain"
)

const (
	googleAuthURL   = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL  = "https://oauth2.googleapis.com/token"
	googleIssuer    = "https://accounts.google.com"
	googleIssuerAlt = "accounts.google.com"

	// maxHandleSuffix bounds the numeric disambiguation loop when a
	// derived handle collides with an existing one.
	maxHandleSuffix = 10
)

// GoogleConfig holds Google OAuth configuration.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// GoogleClaims represents the claims from a Google ID token: the
// federated login assertion consumed by Unify.
type GoogleClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleService handles the Google OAuth handshake and reconciles the
// asserted federated identity with the local store.
type GoogleService struct {
	config     GoogleConfig
	store      IdentityStore
	logger     *slog.Logger
	httpClient *http.Client
}

// NewGoogleService creates a new Google service.
func NewGoogleService(config GoogleConfig, store IdentityStore, logger *slog.Logger) *GoogleService {
	return &GoogleService{
		config:     config,
		store:      store,
		logger:     logger,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// GenerateAuthURL generates the Google OAuth authorization URL.
func (s *GoogleService) GenerateAuthURL(state, nonce string) string {
	params := url.Values{
		"client_id":     {s.config.ClientID},
		"redirect_uri":  {s.config.RedirectURI},
		"response_type": {"code"},
		"scope":         {"openid email profile"},
		"state":         {state},
		"nonce":         {nonce},
	}
	return googleAuthURL + "?" + params.Encode()
}

// GoogleTokenResponse represents the response from the Google token
// endpoint.
type GoogleTokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// ExchangeCode exchanges an authorization code for tokens.
func (s *GoogleService) ExchangeCode(ctx context.Context, code string) (*GoogleTokenResponse, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {s.config.ClientID},
		"client_secret": {s.config.ClientSecret},
		"redirect_uri":  {s.config.RedirectURI},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", googleTokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token exchange failed: %s", string(body))
	}

	var tokenResp GoogleTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, err
	}
	return &tokenResp, nil
}

// ValidateIDToken validates a Google ID token and extracts claims.
// Note: For production, you should verify the signature using Google's JWKS.
// This implementation does basic validation; add signature verification for production.
func (s *GoogleService) ValidateIDToken(idToken string) (*GoogleClaims, error) {
	token, _, err := jwt.NewParser().ParseUnverified(idToken, &GoogleClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse ID token: %w", err)
	}

	claims, ok := token.Claims.(*GoogleClaims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}

	if claims.Issuer != googleIssuer && claims.Issuer != googleIssuerAlt {
		return nil, fmt.Errorf("invalid issuer: %s", claims.Issuer)
	}

	if len(claims.Audience) == 0 || claims.Audience[0] != s.config.ClientID {
		return nil, errors.New("invalid audience")
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, errors.New("token expired")
	}

	return claims, nil
}

// DeriveHandle derives a candidate handle from a federated display
// name: whitespace stripped, lowercased. Falls back to the email local
// part when the name yields nothing.
func DeriveHandle(displayName, email string) string {
	handle := strings.ToLower(strings.Join(strings.Fields(displayName), ""))
	if handle == "" {
		handle = strings.ToLower(strings.SplitN(email, "@", 2)[0])
	}
	return handle
}

// Unify reconciles a federated login assertion with the local store.
//
// An identity already holding the asserted email is linked as-is:
// handle, verified flag and profile fields are carried forward
// untouched. Otherwise a new identity is created, verified immediately
// (the provider attests email ownership out of band) and with no
// password hash. Derived-handle collisions are disambiguated by an
// incrementing numeric suffix rather than stranding the login on a
// store conflict.
func (s *GoogleService) Unify(ctx context.Context, claims *GoogleClaims) (*domain.Identity, error) {
	email := domain.NormalizeEmail(claims.Email)

	existing, err := s.store.FindByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrIdentityNotFound) {
		return nil, err
	}

	base := DeriveHandle(claims.Name, email)

	for attempt := 0; attempt < maxHandleSuffix; attempt++ {
		handle := base
		if attempt > 0 {
			handle = base + strconv.Itoa(attempt)
		}

		taken, err := s.store.ExistsByHandle(ctx, handle)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}

		now := time.Now()
		ident := &domain.Identity{
			ID:                uuid.New(),
			Handle:            handle,
			Email:             email,
			Verified:          true,
			AcceptingMessages: true,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if claims.Picture != "" {
			ident.AvatarURL = &claims.Picture
		}

		err = s.store.Create(ctx, ident)
		if err == nil {
			s.logger.Info("federated identity created", "handle", handle)
			return ident, nil
		}
		if errors.Is(err, domain.ErrHandleTaken) {
			continue
		}
		if errors.Is(err, domain.ErrEmailTaken) {
			// Lost a concurrent-signup race; the winner is the identity
			// we want to link.
			return s.store.FindByEmail(ctx, email)
		}
		return nil, err
	}

	return nil, domain.ErrHandleTaken
}
