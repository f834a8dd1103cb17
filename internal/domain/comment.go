package domain

import "time"

// Comment is a reader reply on a post.
type Comment struct {
	ID        string
	PostID    string
	AuthorID  string
	Content   string
	CreatedAt time.Time
}

// OwnerID returns the identity that may delete the comment.
func (c *Comment) OwnerID() string {
	return c.AuthorID
}
