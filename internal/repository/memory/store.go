// Package memory provides in-process repositories. They back the server when
// no Postgres DSN is configured and serve as fakes in service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/repository"
)

// Store holds every table behind one lock so cross-table checks (posts in a
// category) stay consistent.
type Store struct {
	mu         sync.RWMutex
	now        func() time.Time
	identities map[string]domain.Identity
	categories map[string]domain.Category
	posts      map[string]domain.Post
	comments   map[string]domain.Comment
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:        time.Now,
		identities: make(map[string]domain.Identity),
		categories: make(map[string]domain.Category),
		posts:      make(map[string]domain.Post),
		comments:   make(map[string]domain.Comment),
	}
}

// Identities returns the credential store view.
func (s *Store) Identities() repository.IdentityRepository { return identities{s} }

// Categories returns the category repository view.
func (s *Store) Categories() repository.CategoryRepository { return categories{s} }

// Posts returns the post repository view.
func (s *Store) Posts() repository.PostRepository { return posts{s} }

// Comments returns the comment repository view.
func (s *Store) Comments() repository.CommentRepository { return comments{s} }

type identities struct{ s *Store }

func cloneIdentity(i domain.Identity) *domain.Identity {
	if i.LastLoginAt != nil {
		at := *i.LastLoginAt
		i.LastLoginAt = &at
	}
	return &i
}

func (r identities) FindByEmailOrUsername(_ context.Context, key string) (*domain.Identity, error) {
	email := domain.NormalizeEmail(key)
	username := strings.TrimSpace(key)

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var byUsername *domain.Identity
	for _, i := range r.s.identities {
		if i.Email == email {
			return cloneIdentity(i), nil
		}
		if i.Username == username {
			byUsername = cloneIdentity(i)
		}
	}
	if byUsername != nil {
		return byUsername, nil
	}
	return nil, repository.ErrNotFound
}

func (r identities) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	i, ok := r.s.identities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneIdentity(i), nil
}

func (r identities) Create(_ context.Context, identity *domain.Identity) error {
	identity.Email = domain.NormalizeEmail(identity.Email)
	if identity.Role == "" {
		identity.Role = domain.RoleMember
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.identities {
		if existing.Email == identity.Email {
			return &repository.ConflictError{Field: "email"}
		}
		if existing.Username == identity.Username {
			return &repository.ConflictError{Field: "username"}
		}
	}
	now := r.s.now().UTC()
	identity.ID = uuid.NewString()
	identity.CreatedAt = now
	identity.UpdatedAt = now
	r.s.identities[identity.ID] = *cloneIdentity(*identity)
	return nil
}

func (r identities) update(id string, fn func(*domain.Identity)) (*domain.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.s.identities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	fn(&i)
	r.s.identities[id] = i
	return cloneIdentity(i), nil
}

func (r identities) UpdatePassword(_ context.Context, id, hash string) error {
	_, err := r.update(id, func(i *domain.Identity) {
		i.PasswordHash = hash
		i.UpdatedAt = r.s.now().UTC()
	})
	return err
}

func (r identities) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	_, err := r.update(id, func(i *domain.Identity) {
		at := at.UTC()
		i.LastLoginAt = &at
	})
	return err
}

func (r identities) UpdateProfile(_ context.Context, id string, u repository.ProfileUpdate) (*domain.Identity, error) {
	return r.update(id, func(i *domain.Identity) {
		if u.FirstName != nil {
			i.FirstName = *u.FirstName
		}
		if u.LastName != nil {
			i.LastName = *u.LastName
		}
		if u.Bio != nil {
			i.Bio = *u.Bio
		}
		if u.Avatar != nil {
			i.Avatar = *u.Avatar
		}
		i.UpdatedAt = r.s.now().UTC()
	})
}

func (r identities) SetActive(_ context.Context, id string, active bool) error {
	_, err := r.update(id, func(i *domain.Identity) {
		i.Active = active
		i.UpdatedAt = r.s.now().UTC()
	})
	return err
}

type categories struct{ s *Store }

func (r categories) nameTaken(name, exceptID string) bool {
	for _, c := range r.s.categories {
		if c.ID != exceptID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (r categories) Create(_ context.Context, c *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.nameTaken(c.Name, "") {
		return &repository.ConflictError{Field: "name"}
	}
	now := r.s.now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt, c.UpdatedAt = now, now
	r.s.categories[c.ID] = *c
	return nil
}

func (r categories) Update(_ context.Context, c *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.categories[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.nameTaken(c.Name, c.ID) {
		return &repository.ConflictError{Field: "name"}
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = r.s.now().UTC()
	r.s.categories[c.ID] = *c
	return nil
}

func (r categories) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r categories) GetBySlug(_ context.Context, slug string) (*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.categories {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r categories) ListActive(_ context.Context) ([]domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Category
	for _, c := range r.s.categories {
		if c.IsActive {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r categories) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.categories, id)
	return nil
}

func (r categories) CountPosts(_ context.Context, id string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, p := range r.s.posts {
		if p.CategoryID == id {
			n++
		}
	}
	return n, nil
}

type posts struct{ s *Store }

func clonePost(p domain.Post) *domain.Post {
	p.Tags = append([]string(nil), p.Tags...)
	return &p
}

func (r posts) Create(_ context.Context, p *domain.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.posts {
		if existing.Slug == p.Slug {
			return &repository.ConflictError{Field: "slug"}
		}
	}
	now := r.s.now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.posts[p.ID] = *clonePost(*p)
	return nil
}

func (r posts) Update(_ context.Context, p *domain.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.posts[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.CategoryID = p.CategoryID
	existing.Title = p.Title
	existing.Content = p.Content
	existing.Excerpt = p.Excerpt
	existing.Tags = append([]string(nil), p.Tags...)
	existing.IsPublished = p.IsPublished
	existing.UpdatedAt = r.s.now().UTC()
	r.s.posts[p.ID] = existing
	p.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r posts) GetByID(_ context.Context, id string) (*domain.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePost(p), nil
}

func (r posts) GetBySlug(_ context.Context, slug string) (*domain.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.posts {
		if p.Slug == slug {
			return clonePost(p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r posts) ListPublished(_ context.Context) ([]domain.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Post
	for _, p := range r.s.posts {
		if p.IsPublished {
			result = append(result, *clonePost(p))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

// Delete removes the post and its comments, mirroring ON DELETE CASCADE.
func (r posts) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.posts, id)
	for cid, c := range r.s.comments {
		if c.PostID == id {
			delete(r.s.comments, cid)
		}
	}
	return nil
}

type comments struct{ s *Store }

func (r comments) Create(_ context.Context, c *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[c.PostID]; !ok {
		return repository.ErrNotFound
	}
	c.ID = uuid.NewString()
	c.CreatedAt = r.s.now().UTC()
	r.s.comments[c.ID] = *c
	return nil
}

func (r comments) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.comments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r comments) ListByPost(_ context.Context, postID string) ([]domain.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Comment
	for _, c := range r.s.comments {
		if c.PostID == postID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r comments) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.comments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.comments, id)
	return nil
}
