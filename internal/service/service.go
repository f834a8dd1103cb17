package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/events"
	"github.com/spec-kit/blog-service/internal/ids"
	"github.com/spec-kit/blog-service/internal/repository"
	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

// notFoundAs maps repository.ErrNotFound to a NOT_FOUND domain error.
func notFoundAs(err error, resource string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, nil)
	}
	return err
}

// lookupByKey resolves key as an id when it parses as a uuid and as a slug
// otherwise.
func lookupByKey[T any](ctx context.Context, key string, byID, bySlug func(context.Context, string) (*T, error)) (*T, error) {
	if _, err := uuid.Parse(key); err == nil {
		return byID(ctx, key)
	}
	return bySlug(ctx, key)
}

// publishEvent stamps and publishes event. Listener failures are logged and
// never fail the operation that produced the event.
func publishEvent(ctx context.Context, d events.Dispatcher, logger *zap.Logger, now func() time.Time, event events.Event) {
	if d == nil {
		return
	}
	if event.ID == "" {
		event.ID = ids.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now().UTC()
	}
	if err := d.Publish(ctx, event); err != nil {
		logger.Warn("event listener failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
