package repository

import (
	"context"

	"github.com/spec-kit/blog-service/internal/domain"
)

// CategoryRepository manages category persistence.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)
	ListActive(ctx context.Context) ([]domain.Category, error)
	Delete(ctx context.Context, id string) error
	CountPosts(ctx context.Context, id string) (int, error)
}

// Names are unique case-insensitively through an index on lower(name).
var categoryConstraints = map[string]string{
	"categories_name_lower_key": "name",
	"categories_slug_key":       "name",
}

type categoryRepository struct {
	db DBTX
}

// NewCategoryRepository builds the repository.
func NewCategoryRepository(db DBTX) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	const query = `
        INSERT INTO categories (name, slug, description, color, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		category.Name,
		category.Slug,
		category.Description,
		category.Color,
		category.IsActive,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
	return translate(err, categoryConstraints)
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	const query = `
        UPDATE categories SET name=$1, slug=$2, description=$3, color=$4, is_active=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	err := r.db.QueryRow(ctx, query,
		category.Name,
		category.Slug,
		category.Description,
		category.Color,
		category.IsActive,
		category.ID,
	).Scan(&category.UpdatedAt)
	return translate(err, categoryConstraints)
}

const categoryColumns = `id, name, slug, description, color, is_active, created_at, updated_at`

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	return r.getOne(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id=$1`, id)
}

func (r *categoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	return r.getOne(ctx, `SELECT `+categoryColumns+` FROM categories WHERE slug=$1`, slug)
}

func (r *categoryRepository) getOne(ctx context.Context, query string, arg string) (*domain.Category, error) {
	var c domain.Category
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&c.ID,
		&c.Name,
		&c.Slug,
		&c.Description,
		&c.Color,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, translate(err, nil)
	}
	return &c, nil
}

func (r *categoryRepository) ListActive(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT `+categoryColumns+` FROM categories WHERE is_active = TRUE ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Color, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	return expectRows(r.db.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id))
}

func (r *categoryRepository) CountPosts(ctx context.Context, id string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE category_id=$1`, id).Scan(&n)
	return n, err
}
