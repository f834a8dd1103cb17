package repository

import (
	"context"

	"github.com/spec-kit/blog-service/internal/domain"
)

// PostRepository manages posts.
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	Update(ctx context.Context, post *domain.Post) error
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Post, error)
	ListPublished(ctx context.Context) ([]domain.Post, error)
	Delete(ctx context.Context, id string) error
}

const postColumns = `id, author_id, category_id, title, slug, content, excerpt, tags, is_published, created_at, updated_at`

type postRepository struct {
	db DBTX
}

// NewPostRepository builds the repository.
func NewPostRepository(db DBTX) PostRepository {
	return &postRepository{db: db}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanPost(row interface{ Scan(dest ...any) error }) (*domain.Post, error) {
	var (
		p          domain.Post
		categoryID *string
	)
	if err := row.Scan(
		&p.ID,
		&p.AuthorID,
		&categoryID,
		&p.Title,
		&p.Slug,
		&p.Content,
		&p.Excerpt,
		&p.Tags,
		&p.IsPublished,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if categoryID != nil {
		p.CategoryID = *categoryID
	}
	return &p, nil
}

func (r *postRepository) Create(ctx context.Context, post *domain.Post) error {
	const query = `
        INSERT INTO posts (author_id, category_id, title, slug, content, excerpt, tags, is_published)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	if post.Tags == nil {
		post.Tags = []string{}
	}
	err := r.db.QueryRow(ctx, query,
		post.AuthorID,
		nullable(post.CategoryID),
		post.Title,
		post.Slug,
		post.Content,
		post.Excerpt,
		post.Tags,
		post.IsPublished,
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
	return translate(err, map[string]string{"posts_slug_key": "slug"})
}

func (r *postRepository) Update(ctx context.Context, post *domain.Post) error {
	const query = `
        UPDATE posts SET category_id=$1, title=$2, content=$3, excerpt=$4, tags=$5, is_published=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`
	if post.Tags == nil {
		post.Tags = []string{}
	}
	err := r.db.QueryRow(ctx, query,
		nullable(post.CategoryID),
		post.Title,
		post.Content,
		post.Excerpt,
		post.Tags,
		post.IsPublished,
		post.ID,
	).Scan(&post.UpdatedAt)
	return translate(err, nil)
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	post, err := scanPost(r.db.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err, nil)
	}
	return post, nil
}

func (r *postRepository) GetBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	post, err := scanPost(r.db.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE slug=$1`, slug))
	if err != nil {
		return nil, translate(err, nil)
	}
	return post, nil
}

func (r *postRepository) ListPublished(ctx context.Context) ([]domain.Post, error) {
	rows, err := r.db.Query(ctx, `SELECT `+postColumns+` FROM posts WHERE is_published = TRUE ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *post)
	}
	return result, rows.Err()
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	return expectRows(r.db.Exec(ctx, `DELETE FROM posts WHERE id=$1`, id))
}
