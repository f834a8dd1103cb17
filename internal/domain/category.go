package domain

import "time"

// Category groups posts. Managed by admins only.
type Category struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Color       string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
