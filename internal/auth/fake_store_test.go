package auth

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/rishta-app/rishta/internal/domain"
)

// fakeStore is an in-memory IdentityStore with the same conflict
// semantics as the postgres repository.
type fakeStore struct {
	mu         sync.Mutex
	identities map[uuid.UUID]*domain.Identity
}

func newFakeStore() *fakeStore {
	return &fakeStore{identities: make(map[uuid.UUID]*domain.Identity)}
}

func copyIdentity(ident *domain.Identity) *domain.Identity {
	c := *ident
	return &c
}

func (s *fakeStore) FindByID(_ context.Context, id uuid.UUID) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ident, ok := s.identities[id]; ok {
		return copyIdentity(ident), nil
	}
	return nil, domain.ErrIdentityNotFound
}

func (s *fakeStore) FindByHandle(_ context.Context, handle string) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ident := range s.identities {
		if ident.Handle == handle {
			return copyIdentity(ident), nil
		}
	}
	return nil, domain.ErrIdentityNotFound
}

func (s *fakeStore) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ident := range s.identities {
		if ident.Email == email {
			return copyIdentity(ident), nil
		}
	}
	return nil, domain.ErrIdentityNotFound
}

func (s *fakeStore) FindByHandleOrEmail(_ context.Context, identifier string) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ident := range s.identities {
		if ident.Handle == identifier || ident.Email == identifier {
			return copyIdentity(ident), nil
		}
	}
	return nil, domain.ErrIdentityNotFound
}

func (s *fakeStore) ExistsByHandle(_ context.Context, handle string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ident := range s.identities {
		if ident.Handle == handle {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) Create(_ context.Context, ident *domain.Identity) error {
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
	s.identities[ident.ID] = copyIdentity(ident)
	return nil
}

func (s *fakeStore) Save(_ context.Context, ident *domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.identities[ident.ID]; !ok {
		return domain.ErrIdentityNotFound
	}
	for id, other := range s.identities {
		if id == ident.ID {
			continue
		}
		if other.Handle == ident.Handle {
			return domain.ErrHandleTaken
		}
		if other.Email == ident.Email {
			return domain.ErrEmailTaken
		}
	}
	s.identities[ident.ID] = copyIdentity(ident)
	return nil
}

// mustGet fetches a stored identity directly, bypassing copies.
func (s *fakeStore) mustGet(t *testing.T, id uuid.UUID) *domain.Identity {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	ident, ok := s.identities[id]
	if !ok {
		t.Fatalf("identity %s not in store", id)
	}
	return copyIdentity(ident)
}

// recordingMailer captures the last delivered email.
type recordingMailer struct {
	mu      sync.Mutex
	toEmail string
	toName  string
	subject string
	body    string
	sends   int
}

func (m *recordingMailer) Send(toEmail, toName, subject, bodyHTML string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toEmail = toEmail
	m.toName = toName
	m.subject = subject
	m.body = bodyHTML
	m.sends++
	return nil
}

// failingMailer always fails delivery.
type failingMailer struct{}

func (failingMailer) Send(_, _, _, _ string) error {
	return io.ErrUnexpectedEOF
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
