package service

import (
	"context"
	"errors"
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

// ContentDependencies bundles collaborators for the post, comment and
// category services.
type ContentDependencies struct {
	Posts      repository.PostRepository
	Comments   repository.CommentRepository
	Categories repository.CategoryRepository
	Authorizer *auth.Authorizer
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

func (d ContentDependencies) withDefaults() ContentDependencies {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return d
}

// PostInput describes the writable fields of a post.
type PostInput struct {
	CategoryID  string
	Title       string
	Content     string
	Excerpt     string
	Tags        []string
	IsPublished bool
}

// PostService coordinates post workflows.
type PostService struct {
	posts      repository.PostRepository
	categories repository.CategoryRepository
	authorizer *auth.Authorizer
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewPostService constructs the service.
func NewPostService(deps ContentDependencies) *PostService {
	deps = deps.withDefaults()
	return &PostService{
		posts:      deps.Posts,
		categories: deps.Categories,
		authorizer: deps.Authorizer,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Clock,
	}
}

// Create stores a new post authored by actor.
func (s *PostService) Create(ctx context.Context, actor *domain.Identity, in PostInput) (*domain.Post, error) {
	if err := auth.DecisionError(s.authorizer.RequireRole(actor, domain.RoleMember)); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	post := &domain.Post{
		AuthorID:    actor.ID,
		CategoryID:  in.CategoryID,
		Title:       strings.TrimSpace(in.Title),
		Slug:        ids.Slug(in.Title),
		Content:     in.Content,
		Excerpt:     strings.TrimSpace(in.Excerpt),
		Tags:        normalizeTags(in.Tags),
		IsPublished: in.IsPublished,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Get returns a post by id or slug. Drafts are visible only to their author
// and admins; everyone else sees NOT_FOUND. viewer may be nil.
func (s *PostService) Get(ctx context.Context, viewer *domain.Identity, key string) (*domain.Post, error) {
	post, err := lookupByKey(ctx, key, s.posts.GetByID, s.posts.GetBySlug)
	if err != nil {
		return nil, notFoundAs(err, "post")
	}
	if !post.IsPublished && !s.authorizer.CanModify(viewer, post.OwnerID()).Allowed {
		return nil, apperrors.NewNotFound("post", nil)
	}
	return post, nil
}

// ListPublished returns published posts, newest first.
func (s *PostService) ListPublished(ctx context.Context) ([]domain.Post, error) {
	return s.posts.ListPublished(ctx)
}

// Update edits a post. Only the author or an admin may do so.
func (s *PostService) Update(ctx context.Context, actor *domain.Identity, id string, in PostInput) (*domain.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "post")
	}
	if err := auth.DecisionError(s.authorizer.CanModify(actor, post.OwnerID())); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	post.CategoryID = in.CategoryID
	post.Title = strings.TrimSpace(in.Title)
	post.Content = in.Content
	post.Excerpt = strings.TrimSpace(in.Excerpt)
	post.Tags = normalizeTags(in.Tags)
	post.IsPublished = in.IsPublished
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, notFoundAs(err, "post")
	}
	return post, nil
}

// Delete removes a post and its comments. Only the author or an admin may do so.
func (s *PostService) Delete(ctx context.Context, actor *domain.Identity, id string) error {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return notFoundAs(err, "post")
	}
	if err := auth.DecisionError(s.authorizer.CanModify(actor, post.OwnerID())); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return notFoundAs(err, "post")
	}
	publishEvent(ctx, s.dispatcher, s.logger, s.now, events.Event{
		Type:      events.EventPostDeleted,
		SubjectID: id,
		Actor:     events.ActorOf(actor),
		Payload:   events.ResourceDeletedPayload{OwnerID: post.OwnerID(), ByOwner: actor.ID == post.OwnerID()},
	})
	return nil
}

func (s *PostService) checkCategory(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewValidationError("category not found", map[string]any{"field": "category_id"})
		}
		return err
	}
	if !category.IsActive {
		return apperrors.NewValidationError("category is inactive", map[string]any{"field": "category_id"})
	}
	return nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
