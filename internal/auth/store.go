package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/rishta-app/rishta/internal/domain"
)

// IdentityStore is the store surface the authentication lifecycle
// depends on. *repository.IdentitiesRepository satisfies it; tests use
// in-memory fakes.
type IdentityStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Identity, error)
	FindByHandle(ctx context.Context, handle string) (*domain.Identity, error)
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	FindByHandleOrEmail(ctx context.Context, identifier string) (*domain.Identity, error)
	ExistsByHandle(ctx context.Context, handle string) (bool, error)
	Create(ctx context.Context, ident *domain.Identity) error
	Save(ctx context.Context, ident *domain.Identity) error
}
