package dto

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/spec-kit/blog-service/internal/domain"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// PostRequest payload for creating or replacing a post.
type PostRequest struct {
	CategoryID  string   `json:"category_id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Excerpt     string   `json:"excerpt"`
	Tags        []string `json:"tags"`
	IsPublished bool     `json:"is_published"`
}

// Validate checks field constraints.
func (r PostRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.RuneLength(1, 200)),
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.Excerpt, validation.RuneLength(0, 300)),
		validation.Field(&r.Tags, validation.Length(0, 20)),
	)
}

// CommentRequest payload for new comments.
type CommentRequest struct {
	Content string `json:"content"`
}

// Validate checks field constraints.
func (r CommentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required, validation.RuneLength(1, 500)),
	)
}

// CategoryRequest payload for category management.
type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	IsActive    *bool  `json:"is_active"`
}

// Validate checks field constraints.
func (r CategoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.RuneLength(1, 50)),
		validation.Field(&r.Description, validation.RuneLength(0, 200)),
		validation.Field(&r.Color, validation.Match(colorPattern).Error("color must be a hex value like #1a2b3c")),
	)
}

// PostResponse is the outward view of a post.
type PostResponse struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"author_id"`
	CategoryID  string    `json:"category_id,omitempty"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Content     string    `json:"content"`
	Excerpt     string    `json:"excerpt,omitempty"`
	Tags        []string  `json:"tags"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewPostResponse maps a domain post.
func NewPostResponse(p *domain.Post) PostResponse {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return PostResponse{
		ID:          p.ID,
		AuthorID:    p.AuthorID,
		CategoryID:  p.CategoryID,
		Title:       p.Title,
		Slug:        p.Slug,
		Content:     p.Content,
		Excerpt:     p.Excerpt,
		Tags:        tags,
		IsPublished: p.IsPublished,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// CommentResponse is the outward view of a comment.
type CommentResponse struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCommentResponse maps a domain comment.
func NewCommentResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{ID: c.ID, PostID: c.PostID, AuthorID: c.AuthorID, Content: c.Content, CreatedAt: c.CreatedAt}
}

// CategoryResponse is the outward view of a category.
type CategoryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	IsActive    bool   `json:"is_active"`
}

// NewCategoryResponse maps a domain category.
func NewCategoryResponse(c *domain.Category) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Color:       c.Color,
		IsActive:    c.IsActive,
	}
}
