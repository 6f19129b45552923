package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/rishta-app/rishta/internal/domain"
)

const identityColumns = `
	id, handle, email, password_hash, verified, accepting_messages,
	bio, gender, age, cast_label, interests, social_links, avatar_url,
	verification_code, verification_code_expiry, created_at, updated_at`

// IdentitiesRepository handles identity persistence. Uniqueness of
// handle and email is enforced here at the store boundary: a create or
// save that violates it returns domain.ErrHandleTaken or
// domain.ErrEmailTaken, never silently loses data.
type IdentitiesRepository struct {
	db *sql.DB
}

// NewIdentitiesRepository creates a new identities repository.
func NewIdentitiesRepository(db *sql.DB) *IdentitiesRepository {
	return &IdentitiesRepository{db: db}
}

func scanIdentity(row *sql.Row) (*domain.Identity, error) {
	var (
		ident  domain.Identity
		gender sql.NullString
	)
	err := row.Scan(
		&ident.ID, &ident.Handle, &ident.Email, &ident.PasswordHash,
		&ident.Verified, &ident.AcceptingMessages,
		&ident.Bio, &gender, &ident.Age, &ident.CastLabel,
		pq.Array(&ident.Interests), pq.Array(&ident.SocialLinks), &ident.AvatarURL,
		&ident.Code, &ident.CodeExpiry, &ident.CreatedAt, &ident.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrIdentityNotFound
	}
	if err != nil {
		return nil, err
	}
	if gender.Valid {
		g := domain.Gender(gender.String)
		ident.Gender = &g
	}
	return &ident, nil
}

// FindByID retrieves an identity by ID.
func (r *IdentitiesRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`
	return scanIdentity(r.db.QueryRowContext(ctx, query, id))
}

// FindByHandle retrieves an identity by exact handle.
func (r *IdentitiesRepository) FindByHandle(ctx context.Context, handle string) (*domain.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE handle = $1`
	return scanIdentity(r.db.QueryRowContext(ctx, query, handle))
}

// FindByHandleFold retrieves an identity by handle, ignoring case.
// Used by the public profile view.
func (r *IdentitiesRepository) FindByHandleFold(ctx context.Context, handle string) (*domain.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE lower(handle) = lower($1)`
	return scanIdentity(r.db.QueryRowContext(ctx, query, handle))
}

// FindByEmail retrieves an identity by normalized email.
func (r *IdentitiesRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE email = $1`
	return scanIdentity(r.db.QueryRowContext(ctx, query, domain.NormalizeEmail(email)))
}

// FindByHandleOrEmail retrieves an identity matching the identifier as
// either handle or email, exact match.
func (r *IdentitiesRepository) FindByHandleOrEmail(ctx context.Context, identifier string) (*domain.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE handle = $1 OR email = $1`
	return scanIdentity(r.db.QueryRowContext(ctx, query, identifier))
}

// ExistsByHandle checks if an identity exists with the given handle.
func (r *IdentitiesRepository) ExistsByHandle(ctx context.Context, handle string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM identities WHERE handle = $1)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, handle).Scan(&exists)
	return exists, err
}

// Create inserts a new identity. Concurrent creates racing on the same
// handle or email lose with a conflict error.
func (r *IdentitiesRepository) Create(ctx context.Context, ident *domain.Identity) error {
	query := `
		INSERT INTO identities (
			id, handle, email, password_hash, verified, accepting_messages,
			bio, gender, age, cast_label, interests, social_links, avatar_url,
			verification_code, verification_code_expiry, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := r.db.ExecContext(ctx, query,
		ident.ID, ident.Handle, domain.NormalizeEmail(ident.Email), ident.PasswordHash,
		ident.Verified, ident.AcceptingMessages,
		ident.Bio, genderValue(ident.Gender), ident.Age, ident.CastLabel,
		pq.Array(ident.Interests), pq.Array(ident.SocialLinks), ident.AvatarURL,
		ident.Code, ident.CodeExpiry, ident.CreatedAt, ident.UpdatedAt,
	)
	return mapConflict(err)
}

// Save persists all mutable fields of an existing identity and bumps
// updated_at.
func (r *IdentitiesRepository) Save(ctx context.Context, ident *domain.Identity) error {
	ident.UpdatedAt = time.Now()
	query := `
		UPDATE identities
		SET handle = $2, email = $3, password_hash = $4, verified = $5,
		    accepting_messages = $6, bio = $7, gender = $8, age = $9,
		    cast_label = $10, interests = $11, social_links = $12,
		    avatar_url = $13, verification_code = $14,
		    verification_code_expiry = $15, updated_at = $16
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		ident.ID, ident.Handle, domain.NormalizeEmail(ident.Email), ident.PasswordHash,
		ident.Verified, ident.AcceptingMessages,
		ident.Bio, genderValue(ident.Gender), ident.Age, ident.CastLabel,
		pq.Array(ident.Interests), pq.Array(ident.SocialLinks), ident.AvatarURL,
		ident.Code, ident.CodeExpiry, ident.UpdatedAt,
	)
	if err != nil {
		return mapConflict(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

// Filter narrows a profile listing. Zero values mean "no constraint".
type Filter struct {
	Gender    string
	AgeMin    int
	AgeMax    int
	Interests []string
	Page      int
	Limit     int
}

// List returns profiles matching the filter, newest first, plus the
// total match count for pagination.
func (r *IdentitiesRepository) List(ctx context.Context, f Filter) ([]*domain.Identity, int, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Gender != "" {
		conds = append(conds, "lower(gender) = lower("+arg(f.Gender)+")")
	}
	if f.AgeMin > 0 {
		conds = append(conds, "age >= "+arg(f.AgeMin))
	}
	if f.AgeMax > 0 {
		conds = append(conds, "age <= "+arg(f.AgeMax))
	}
	if len(f.Interests) > 0 {
		conds = append(conds, "interests && "+arg(pq.Array(f.Interests)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM identities` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	query := `SELECT ` + identityColumns + ` FROM identities` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var idents []*domain.Identity
	for rows.Next() {
		var (
			ident  domain.Identity
			gender sql.NullString
		)
		err := rows.Scan(
			&ident.ID, &ident.Handle, &ident.Email, &ident.PasswordHash,
			&ident.Verified, &ident.AcceptingMessages,
			&ident.Bio, &gender, &ident.Age, &ident.CastLabel,
			pq.Array(&ident.Interests), pq.Array(&ident.SocialLinks), &ident.AvatarURL,
			&ident.Code, &ident.CodeExpiry, &ident.CreatedAt, &ident.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		if gender.Valid {
			g := domain.Gender(gender.String)
			ident.Gender = &g
		}
		idents = append(idents, &ident)
	}
	return idents, total, rows.Err()
}

func genderValue(g *domain.Gender) interface{} {
	if g == nil {
		return nil
	}
	return string(*g)
}

// mapConflict translates postgres unique violations into domain
// conflict errors.
func mapConflict(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err, "identities_handle_key") {
		return domain.ErrHandleTaken
	}
	if isUniqueViolation(err, "identities_email_key") {
		return domain.ErrEmailTaken
	}
	return err
}
