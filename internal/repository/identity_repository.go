package repository

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/blog-service/internal/domain"
)

// IdentityRepository is the credential store.
type IdentityRepository interface {
	// FindByEmailOrUsername matches key against the normalized email or the
	// exact username.
	FindByEmailOrUsername(ctx context.Context, key string) (*domain.Identity, error)
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	// Create stores identity and fills ID and timestamps. A duplicate email or
	// username yields *ConflictError naming the field.
	Create(ctx context.Context, identity *domain.Identity) error
	UpdatePassword(ctx context.Context, id, hash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*domain.Identity, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// ProfileUpdate carries the editable profile fields. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Bio       *string
	Avatar    *string
}

var identityConstraints = map[string]string{
	"identities_email_key":    "email",
	"identities_username_key": "username",
}

const identityColumns = `id, username, email, password_hash, first_name, last_name, bio, avatar,
        role, is_active, last_login_at, created_at, updated_at`

type identityRepository struct {
	db DBTX
}

// NewIdentityRepository returns a Postgres-backed implementation.
func NewIdentityRepository(db DBTX) IdentityRepository {
	return &identityRepository{db: db}
}

func scanIdentity(row interface{ Scan(dest ...any) error }) (*domain.Identity, error) {
	var (
		identity domain.Identity
		role     string
	)
	if err := row.Scan(
		&identity.ID,
		&identity.Username,
		&identity.Email,
		&identity.PasswordHash,
		&identity.FirstName,
		&identity.LastName,
		&identity.Bio,
		&identity.Avatar,
		&role,
		&identity.Active,
		&identity.LastLoginAt,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	); err != nil {
		return nil, err
	}
	identity.Role = domain.Role(role)
	return &identity, nil
}

func (r *identityRepository) FindByEmailOrUsername(ctx context.Context, key string) (*domain.Identity, error) {
	query := `SELECT ` + identityColumns + `
        FROM identities WHERE email=$1 OR username=$2
        ORDER BY (email=$1) DESC LIMIT 1`
	identity, err := scanIdentity(r.db.QueryRow(ctx, query, domain.NormalizeEmail(key), strings.TrimSpace(key)))
	if err != nil {
		return nil, translate(err, nil)
	}
	return identity, nil
}

func (r *identityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE id=$1`
	identity, err := scanIdentity(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err, nil)
	}
	return identity, nil
}

func (r *identityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	const query = `
        INSERT INTO identities (username, email, password_hash, first_name, last_name, role, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	identity.Email = domain.NormalizeEmail(identity.Email)
	if identity.Role == "" {
		identity.Role = domain.RoleMember
	}
	err := r.db.QueryRow(ctx, query,
		identity.Username,
		identity.Email,
		identity.PasswordHash,
		identity.FirstName,
		identity.LastName,
		string(identity.Role),
		identity.Active,
	).Scan(&identity.ID, &identity.CreatedAt, &identity.UpdatedAt)
	return translate(err, identityConstraints)
}

func (r *identityRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	const query = `UPDATE identities SET password_hash=$1, updated_at=NOW() WHERE id=$2`
	return expectRows(r.db.Exec(ctx, query, hash, id))
}

func (r *identityRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE identities SET last_login_at=$1 WHERE id=$2`
	return expectRows(r.db.Exec(ctx, query, at.UTC(), id))
}

func (r *identityRepository) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*domain.Identity, error) {
	query := `
        UPDATE identities SET
            first_name=COALESCE($1, first_name),
            last_name=COALESCE($2, last_name),
            bio=COALESCE($3, bio),
            avatar=COALESCE($4, avatar),
            updated_at=NOW()
        WHERE id=$5
        RETURNING ` + identityColumns
	identity, err := scanIdentity(r.db.QueryRow(ctx, query,
		update.FirstName,
		update.LastName,
		update.Bio,
		update.Avatar,
		id,
	))
	if err != nil {
		return nil, translate(err, nil)
	}
	return identity, nil
}

func (r *identityRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE identities SET is_active=$1, updated_at=NOW() WHERE id=$2`
	return expectRows(r.db.Exec(ctx, query, active, id))
}
