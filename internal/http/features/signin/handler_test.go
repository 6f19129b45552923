package signin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rishta-app/rishta/internal/auth"
	"github.com/rishta-app/rishta/internal/domain"
	"github.com/rishta-app/rishta/internal/http/features/signup"
	"github.com/rishta-app/rishta/internal/http/features/verify"
	"github.com/rishta-app/rishta/internal/httputil"
)

// memStore is an in-memory identity store for handler tests.
type memStore struct {
	mu         sync.Mutex
	identities map[uuid.UUID]*domain.Identity
}

func newMemStore() *memStore {
	return &memStore{identities: make(map[uuid.UUID]*domain.Identity)}
}

func (s *memStore) find(match func(*domain.Identity) bool) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ident := range s.identities {
		if match(ident) {
			c := *ident
			return &c, nil
		}
	}
	return nil, domain.ErrIdentityNotFound
}

func (s *memStore) FindByID(_ context.Context, id uuid.UUID) (*domain.Identity, error) {
	return s.find(func(i *domain.Identity) bool { return i.ID == id })
}

func (s *memStore) FindByHandle(_ context.Context, handle string) (*domain.Identity, error) {
	return s.find(func(i *domain.Identity) bool { return i.Handle == handle })
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	return s.find(func(i *domain.Identity) bool { return i.Email == email })
}

func (s *memStore) FindByHandleOrEmail(_ context.Context, identifier string) (*domain.Identity, error) {
	return s.find(func(i *domain.Identity) bool { return i.Handle == identifier || i.Email == identifier })
}

func (s *memStore) ExistsByHandle(_ context.Context, handle string) (bool, error) {
	_, err := s.find(func(i *domain.Identity) bool { return i.Handle == handle })
	return err == nil, nil
}

func (s *memStore) Create(_ context.Context, ident *domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.identities {
		if other.Handle == ident.Handle {
			return domain.ErrHandleTaken
		}
		if other.Email == ident.Email {
			return domain.ErrEmailTaken
		}
	}
	c := *ident
	s.identities[ident.ID] = &c
	return nil
}

func (s *memStore) Save(_ context.Context, ident *domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.identities[ident.ID]; !ok {
		return domain.ErrIdentityNotFound
	}
	c := *ident
	s.identities[ident.ID] = &c
	return nil
}

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

// codeMailer captures the verification code out of the delivered email.
type codeMailer struct {
	mu       sync.Mutex
	lastCode string
}

func (m *codeMailer) Send(_, _, _, bodyHTML string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if match := codePattern.FindString(bodyHTML); match != "" {
		m.lastCode = match
	}
	return nil
}

func (m *codeMailer) code() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCode
}

type testEnv struct {
	signup   *signup.Handler
	verify   *verify.Handler
	signin   *Handler
	sessions *auth.SessionService
	mailer   *codeMailer
}

func newTestEnv() *testEnv {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemStore()
	mailer := &codeMailer{}

	issuer := auth.NewCodeIssuer(auth.CodeIssuerConfig{CodeTTL: time.Hour}, store, mailer, logger)
	credentials := auth.NewCredentialService(store, issuer, logger)
	sessions := auth.NewSessionService(auth.SessionConfig{
		JWTSecret: []byte("test-secret"),
		Issuer:    "rishta-test",
		TTL:       time.Hour,
	}, store)

	return &testEnv{
		signup:   signup.NewHandler(logger, credentials),
		verify:   verify.NewHandler(logger, credentials),
		signin:   NewHandler(logger, credentials, sessions),
		sessions: sessions,
		mailer:   mailer,
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Message
}

// TestSignupVerifySignInLifecycle drives a full registration through
// the HTTP handlers: signup, blocked sign-in, code verification, then
// a successful credentialed sign-in with a session cookie.
func TestSignupVerifySignInLifecycle(t *testing.T) {
	env := newTestEnv()

	// Register.
	rec := postJSON(t, env.signup.Register, "/v1/auth/signup", map[string]string{
		"username": "amina",
		"email":    "amina@example.com",
		"password": "Secret123!",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if got := decodeMessage(t, rec); got != "User registered successfully. Please verify your account." {
		t.Errorf("signup message = %q", got)
	}

	code := env.mailer.code()
	if len(code) != 6 {
		t.Fatalf("no 6-digit code delivered, got %q", code)
	}

	// Sign-in blocked before verification.
	rec = postJSON(t, env.signin.SignIn, "/v1/auth/signin", map[string]string{
		"identifier": "amina",
		"password":   "Secret123!",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("pre-verification signin status = %d, want 403", rec.Code)
	}
	if got := decodeMessage(t, rec); got != "Verify the user first" {
		t.Errorf("pre-verification message = %q", got)
	}

	// Wrong code rejected.
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	rec = postJSON(t, env.verify.Verify, "/v1/auth/verify", map[string]string{
		"username":         "amina",
		"verificationCode": wrong,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("wrong code status = %d, want 400", rec.Code)
	}
	if got := decodeMessage(t, rec); got != "Verification code invalid or expired" {
		t.Errorf("wrong code message = %q", got)
	}

	// Correct code verifies.
	rec = postJSON(t, env.verify.Verify, "/v1/auth/verify", map[string]string{
		"username":         "amina",
		"verificationCode": code,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if got := decodeMessage(t, rec); got != "User verified successfully" {
		t.Errorf("verify message = %q", got)
	}

	// Wrong password rejected without leaking which part was wrong.
	rec = postJSON(t, env.signin.SignIn, "/v1/auth/signin", map[string]string{
		"identifier": "amina",
		"password":   "WrongSecret1!",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d, want 401", rec.Code)
	}
	if got := decodeMessage(t, rec); got != "Invalid credentials" {
		t.Errorf("wrong password message = %q", got)
	}

	// Successful sign-in issues a session.
	rec = postJSON(t, env.signin.SignIn, "/v1/auth/signin", map[string]string{
		"identifier": "amina",
		"password":   "Secret123!",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp SignInResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode signin response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("no token in signin response")
	}
	if resp.Redirect != "/dashboard" {
		t.Errorf("redirect = %q, want /dashboard", resp.Redirect)
	}

	claims, err := env.sessions.ParseClaims(resp.Token)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.Handle != "amina" {
		t.Errorf("claims handle = %q", claims.Handle)
	}
	if !claims.Verified {
		t.Error("claims verified = false after verified sign-in")
	}

	var sessionCookie *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == httputil.SessionCookieName {
			sessionCookie = cookie
		}
	}
	if sessionCookie == nil {
		t.Fatal("no session cookie set")
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie not HttpOnly")
	}
	if sessionCookie.Value != resp.Token {
		t.Error("cookie token differs from response token")
	}

	// Email also works as the identifier.
	rec = postJSON(t, env.signin.SignIn, "/v1/auth/signin", map[string]string{
		"identifier": "amina@example.com",
		"password":   "Secret123!",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin by email status = %d, want 200", rec.Code)
	}
}

func TestSignIn_UnknownIdentifier(t *testing.T) {
	env := newTestEnv()

	rec := postJSON(t, env.signin.SignIn, "/v1/auth/signin", map[string]string{
		"identifier": "nobody",
		"password":   "Secret123!",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := decodeMessage(t, rec); got != "Invalid credentials" {
		t.Errorf("message = %q, account existence leaked", got)
	}
}

func TestSignIn_MissingFields(t *testing.T) {
	env := newTestEnv()

	rec := postJSON(t, env.signin.SignIn, "/v1/auth/signin", map[string]string{
		"identifier": "amina",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	env := newTestEnv()

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	rec := httptest.NewRecorder()
	env.signin.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var cleared bool
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == httputil.SessionCookieName && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("session cookie not cleared")
	}
}
