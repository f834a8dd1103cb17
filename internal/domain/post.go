package domain

import "time"

// Post is a blog entry owned by its author.
type Post struct {
	ID          string
	AuthorID    string
	CategoryID  string
	Title       string
	Slug        string
	Content     string
	Excerpt     string
	Tags        []string
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnerID returns the identity that may modify the post.
func (p *Post) OwnerID() string {
	return p.AuthorID
}
