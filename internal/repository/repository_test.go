package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/blog-service/internal/domain"
)

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeDB struct {
	lastSQL  string
	lastArgs []any
	row      fakeRow
	tag      pgconn.CommandTag
	execErr  error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.lastSQL, f.lastArgs = sql, args
	return f.tag, f.execErr
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.lastSQL, f.lastArgs = sql, args
	return nil, errors.New("query not supported by fake")
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL, f.lastArgs = sql, args
	return f.row
}

func failingRow(err error) fakeRow {
	return fakeRow{scan: func(...any) error { return err }}
}

func TestIdentityRepository_CreateConflicts(t *testing.T) {
	tests := []struct {
		constraint string
		field      string
	}{
		{"identities_email_key", "email"},
		{"identities_username_key", "username"},
		{"something_else", "record"},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			db := &fakeDB{row: failingRow(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})}
			repo := NewIdentityRepository(db)

			err := repo.Create(context.Background(), &domain.Identity{Username: "bob", Email: "Bob@Example.com"})
			ce, ok := IsConflict(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestIdentityRepository_CreateNormalizesEmailAndDefaultsRole(t *testing.T) {
	now := time.Now()
	db := &fakeDB{row: fakeRow{scan: func(dest ...any) error {
		*dest[0].(*string) = "id-1"
		*dest[1].(*time.Time) = now
		*dest[2].(*time.Time) = now
		return nil
	}}}
	repo := NewIdentityRepository(db)

	identity := &domain.Identity{Username: "bob", Email: "  Bob@Example.COM "}
	require.NoError(t, repo.Create(context.Background(), identity))
	assert.Equal(t, "id-1", identity.ID)
	assert.Equal(t, "bob@example.com", identity.Email)
	assert.Equal(t, domain.RoleMember, identity.Role)
	assert.Equal(t, "bob@example.com", db.lastArgs[1])
	assert.Equal(t, "member", db.lastArgs[5])
}

func TestIdentityRepository_NotFound(t *testing.T) {
	db := &fakeDB{row: failingRow(pgx.ErrNoRows)}
	repo := NewIdentityRepository(db)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.FindByEmailOrUsername(context.Background(), " Alice@Example.com ")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "alice@example.com", db.lastArgs[0])
	assert.Equal(t, "Alice@Example.com", db.lastArgs[1])
}

func TestIdentityRepository_UpdatesRequireRow(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 0")}
	repo := NewIdentityRepository(db)

	assert.ErrorIs(t, repo.UpdatePassword(context.Background(), "x", "hash"), ErrNotFound)
	assert.ErrorIs(t, repo.TouchLastLogin(context.Background(), "x", time.Now()), ErrNotFound)
	assert.ErrorIs(t, repo.SetActive(context.Background(), "x", false), ErrNotFound)

	db.tag = pgconn.NewCommandTag("UPDATE 1")
	assert.NoError(t, repo.TouchLastLogin(context.Background(), "x", time.Now()))
}

func TestIdentityRepository_PassesThroughDriverErrors(t *testing.T) {
	boom := errors.New("connection reset")
	db := &fakeDB{row: failingRow(boom), execErr: boom}
	repo := NewIdentityRepository(db)

	_, err := repo.GetByID(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, repo.UpdatePassword(context.Background(), "x", "h"), boom)
}

func TestCategoryRepository_DuplicateNameIsConflict(t *testing.T) {
	db := &fakeDB{row: failingRow(&pgconn.PgError{Code: "23505", ConstraintName: "categories_name_lower_key"})}
	repo := NewCategoryRepository(db)

	err := repo.Create(context.Background(), &domain.Category{Name: "Go"})
	ce, ok := IsConflict(err)
	require.True(t, ok)
	assert.Equal(t, "name", ce.Field)
}

func TestPostRepository_EmptyCategoryIsNull(t *testing.T) {
	db := &fakeDB{row: failingRow(pgx.ErrNoRows)}
	repo := NewPostRepository(db)

	err := repo.Create(context.Background(), &domain.Post{AuthorID: "a", Title: "t"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, db.lastArgs[1])
	assert.Equal(t, []string{}, db.lastArgs[6])
}

func TestMalformedIDIsNotFound(t *testing.T) {
	malformed := &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "my-first-post"`}
	db := &fakeDB{row: failingRow(malformed), execErr: malformed}
	ctx := context.Background()

	_, err := NewPostRepository(db).GetByID(ctx, "my-first-post")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, NewPostRepository(db).Delete(ctx, "my-first-post"), ErrNotFound)

	_, err = NewCategoryRepository(db).GetByID(ctx, "golang")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, NewIdentityRepository(db).SetActive(ctx, "nope", false), ErrNotFound)
}

func TestGetBySlugQueriesSlugColumn(t *testing.T) {
	db := &fakeDB{row: failingRow(pgx.ErrNoRows)}
	ctx := context.Background()

	_, err := NewPostRepository(db).GetBySlug(ctx, "hello-world-01hz3k7q")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, db.lastSQL, "WHERE slug=$1")
	assert.Equal(t, "hello-world-01hz3k7q", db.lastArgs[0])

	_, err = NewCategoryRepository(db).GetBySlug(ctx, "golang")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, db.lastSQL, "WHERE slug=$1")
}
