package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rishta-app/rishta/internal/domain"
)

func newSessionService(store *fakeStore) *SessionService {
	return NewSessionService(SessionConfig{
		JWTSecret: []byte("test-secret"),
		Issuer:    "rishta-test",
		TTL:       time.Hour,
	}, store)
}

func TestSessionService_IssueParseRoundTrip(t *testing.T) {
	store := newFakeStore()
	service := newSessionService(store)

	avatar := "https://cdn.example.com/a.jpg"
	ident := seedIdentity(t, store, &domain.Identity{
		Handle:    "amina",
		Email:     "amina@example.com",
		Verified:  true,
		AvatarURL: &avatar,
	})

	token, err := service.IssueClaims(ident)
	if err != nil {
		t.Fatalf("IssueClaims() error = %v", err)
	}

	claims, err := service.ParseClaims(token)
	if err != nil {
		t.Fatalf("ParseClaims() error = %v", err)
	}

	id, err := claims.IdentityID()
	if err != nil {
		t.Fatalf("IdentityID() error = %v", err)
	}
	if id != ident.ID {
		t.Errorf("subject = %s, want %s", id, ident.ID)
	}
	if claims.Handle != "amina" {
		t.Errorf("handle = %q", claims.Handle)
	}
	if !claims.Verified {
		t.Error("verified claim = false")
	}
	if claims.Avatar != avatar {
		t.Errorf("avatar = %q", claims.Avatar)
	}
}

func TestSessionService_ParseRejectsTampering(t *testing.T) {
	store := newFakeStore()
	service := newSessionService(store)

	ident := seedIdentity(t, store, &domain.Identity{
		Handle:   "amina",
		Email:    "amina@example.com",
		Verified: true,
	})
	token, err := service.IssueClaims(ident)
	if err != nil {
		t.Fatalf("IssueClaims() error = %v", err)
	}

	other := NewSessionService(SessionConfig{
		JWTSecret: []byte("different-secret"),
		Issuer:    "rishta-test",
	}, store)

	tests := []struct {
		name  string
		token string
		svc   *SessionService
	}{
		{name: "wrong secret", token: token, svc: other},
		{name: "garbage", token: "not.a.token", svc: service},
		{name: "empty", token: "", svc: service},
		{name: "truncated", token: token[:len(token)-5], svc: service},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.svc.ParseClaims(tt.token); !errors.Is(err, domain.ErrInvalidToken) {
				t.Errorf("ParseClaims() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestSessionService_RefreshClaimsReflectsProfileEdits(t *testing.T) {
	store := newFakeStore()
	service := newSessionService(store)

	ident := seedIdentity(t, store, &domain.Identity{
		Handle:   "amina",
		Email:    "amina@example.com",
		Verified: true,
	})
	token, err := service.IssueClaims(ident)
	if err != nil {
		t.Fatalf("IssueClaims() error = %v", err)
	}
	claims, err := service.ParseClaims(token)
	if err != nil {
		t.Fatalf("ParseClaims() error = %v", err)
	}

	// Rename the identity after issuance.
	stored := store.mustGet(t, ident.ID)
	stored.Handle = "amina_k"
	avatar := "https://cdn.example.com/new.jpg"
	stored.AvatarURL = &avatar
	if err := store.Save(context.Background(), stored); err != nil {
		t.Fatalf("save renamed identity: %v", err)
	}

	refreshed, err := service.RefreshClaims(context.Background(), claims)
	if err != nil {
		t.Fatalf("RefreshClaims() error = %v", err)
	}
	if refreshed.Handle != "amina_k" {
		t.Errorf("refreshed handle = %q, want amina_k", refreshed.Handle)
	}
	if refreshed.Avatar != avatar {
		t.Errorf("refreshed avatar = %q", refreshed.Avatar)
	}
	if !refreshed.Verified {
		t.Error("verified flag lost on refresh")
	}
}

func TestSessionService_RefreshClaimsMissingIdentity(t *testing.T) {
	store := newFakeStore()
	service := newSessionService(store)

	ident := &domain.Identity{
		ID:       uuid.New(),
		Handle:   "ghost",
		Email:    "ghost@example.com",
		Verified: true,
	}

	token, err := service.IssueClaims(ident)
	if err != nil {
		t.Fatalf("IssueClaims() error = %v", err)
	}
	claims, err := service.ParseClaims(token)
	if err != nil {
		t.Fatalf("ParseClaims() error = %v", err)
	}

	// The identity was never in this service's store.
	if _, err := service.RefreshClaims(context.Background(), claims); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("RefreshClaims() error = %v, want ErrInvalidToken", err)
	}
}
