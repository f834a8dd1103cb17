package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/events"
	"github.com/spec-kit/blog-service/internal/repository"
	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

// CommentService manages comments on posts.
type CommentService struct {
	posts      *PostService
	comments   repository.CommentRepository
	authorizer *auth.Authorizer
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewCommentService constructs the service. Post visibility rules are shared
// with posts.
func NewCommentService(deps ContentDependencies, posts *PostService) *CommentService {
	deps = deps.withDefaults()
	return &CommentService{
		posts:      posts,
		comments:   deps.Comments,
		authorizer: deps.Authorizer,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Clock,
	}
}

// Add appends a comment by actor to a post actor can see.
func (s *CommentService) Add(ctx context.Context, actor *domain.Identity, postID, content string) (*domain.Comment, error) {
	if err := auth.DecisionError(s.authorizer.RequireRole(actor, domain.RoleMember)); err != nil {
		return nil, err
	}
	post, err := s.posts.Get(ctx, actor, postID)
	if err != nil {
		return nil, err
	}
	comment := &domain.Comment{
		PostID:   post.ID,
		AuthorID: actor.ID,
		Content:  strings.TrimSpace(content),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, notFoundAs(err, "post")
	}
	return comment, nil
}

// List returns the comments of a post the viewer can see.
func (s *CommentService) List(ctx context.Context, viewer *domain.Identity, postID string) ([]domain.Comment, error) {
	post, err := s.posts.Get(ctx, viewer, postID)
	if err != nil {
		return nil, err
	}
	return s.comments.ListByPost(ctx, post.ID)
}

// Delete removes a comment. Only its author or an admin may do so.
func (s *CommentService) Delete(ctx context.Context, actor *domain.Identity, postID, commentID string) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return notFoundAs(err, "comment")
	}
	if comment.PostID != postID {
		return apperrors.NewNotFound("comment", nil)
	}
	if err := auth.DecisionError(s.authorizer.CanModify(actor, comment.OwnerID())); err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		return notFoundAs(err, "comment")
	}
	publishEvent(ctx, s.dispatcher, s.logger, s.now, events.Event{
		Type:      events.EventCommentDeleted,
		SubjectID: commentID,
		Actor:     events.ActorOf(actor),
		Payload:   events.ResourceDeletedPayload{OwnerID: comment.OwnerID(), ByOwner: actor.ID == comment.OwnerID()},
	})
	return nil
}
