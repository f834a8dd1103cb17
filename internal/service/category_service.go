package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/events"
	"github.com/spec-kit/blog-service/internal/ids"
	"github.com/spec-kit/blog-service/internal/repository"
	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

// CategoryInput describes the writable fields of a category.
type CategoryInput struct {
	Name        string
	Description string
	Color       string
	IsActive    *bool
}

// CategoryService manages categories. Every mutation is admin-only.
type CategoryService struct {
	categories repository.CategoryRepository
	authorizer *auth.Authorizer
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewCategoryService constructs the service.
func NewCategoryService(deps ContentDependencies) *CategoryService {
	deps = deps.withDefaults()
	return &CategoryService{
		categories: deps.Categories,
		authorizer: deps.Authorizer,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Clock,
	}
}

func (s *CategoryService) requireAdmin(actor *domain.Identity) error {
	return auth.DecisionError(s.authorizer.RequireRole(actor, domain.RoleAdmin))
}

// List returns active categories.
func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	return s.categories.ListActive(ctx)
}

// Get returns a category by id or slug.
func (s *CategoryService) Get(ctx context.Context, key string) (*domain.Category, error) {
	category, err := lookupByKey(ctx, key, s.categories.GetByID, s.categories.GetBySlug)
	if err != nil {
		return nil, notFoundAs(err, "category")
	}
	return category, nil
}

// Create adds a category. Names are unique ignoring case.
func (s *CategoryService) Create(ctx context.Context, actor *domain.Identity, in CategoryInput) (*domain.Category, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	category := &domain.Category{
		Name:        strings.TrimSpace(in.Name),
		Slug:        ids.CategorySlug(in.Name),
		Description: strings.TrimSpace(in.Description),
		Color:       in.Color,
		IsActive:    in.IsActive == nil || *in.IsActive,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, categoryConflict(err)
	}
	s.changed(ctx, actor, category, "created")
	return category, nil
}

// Update edits a category.
func (s *CategoryService) Update(ctx context.Context, actor *domain.Identity, id string, in CategoryInput) (*domain.Category, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "category")
	}
	category.Name = strings.TrimSpace(in.Name)
	category.Slug = ids.CategorySlug(in.Name)
	category.Description = strings.TrimSpace(in.Description)
	category.Color = in.Color
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, notFoundAs(categoryConflict(err), "category")
	}
	s.changed(ctx, actor, category, "updated")
	return category, nil
}

// Delete removes a category that no post references.
func (s *CategoryService) Delete(ctx context.Context, actor *domain.Identity, id string) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return notFoundAs(err, "category")
	}
	n, err := s.categories.CountPosts(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperrors.NewConflict("category has posts", map[string]any{"field": "id", "posts": n})
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return notFoundAs(err, "category")
	}
	s.changed(ctx, actor, category, "deleted")
	return nil
}

func (s *CategoryService) changed(ctx context.Context, actor *domain.Identity, c *domain.Category, action string) {
	publishEvent(ctx, s.dispatcher, s.logger, s.now, events.Event{
		Type:      events.EventCategoryChanged,
		SubjectID: c.ID,
		Actor:     events.ActorOf(actor),
		Payload:   events.CategoryChangedPayload{Action: action, Name: c.Name},
	})
}

func categoryConflict(err error) error {
	if _, ok := repository.IsConflict(err); ok {
		return apperrors.NewConflict("category name already exists", map[string]any{"field": "name"})
	}
	return err
}
