package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/events"
	"github.com/spec-kit/blog-service/internal/repository/memory"
)

type fixture struct {
	store      *memory.Store
	tokens     *auth.TokenManager
	dispatcher events.Dispatcher
	mu         sync.Mutex
	published  []events.Event
	auth       *AuthService
	posts      *PostService
	comments   *CommentService
	categories *CategoryService
}

func newFixture(t *testing.T, opts ...func(*AuthDependencies)) *fixture {
	t.Helper()

	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost, 2)
	require.NoError(t, err)
	t.Cleanup(hasher.Close)

	tokens, err := auth.NewTokenManager("service-test-secret-service-test", time.Hour)
	require.NoError(t, err)

	f := &fixture{
		store:      memory.NewStore(),
		tokens:     tokens,
		dispatcher: events.NewDispatcher(),
	}
	f.dispatcher.SubscribeAll(func(_ context.Context, e events.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.published = append(f.published, e)
		return nil
	})

	authorizer := auth.NewAuthorizer(nil)
	deps := AuthDependencies{
		Identities: f.store.Identities(),
		Hasher:     hasher,
		Tokens:     tokens,
		Authorizer: authorizer,
		Dispatcher: f.dispatcher,
		Logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	f.auth = NewAuthService(deps)

	content := ContentDependencies{
		Posts:      f.store.Posts(),
		Comments:   f.store.Comments(),
		Categories: f.store.Categories(),
		Authorizer: authorizer,
		Dispatcher: f.dispatcher,
	}
	f.posts = NewPostService(content)
	f.comments = NewCommentService(content, f.posts)
	f.categories = NewCategoryService(content)
	return f
}

func (f *fixture) eventsOf(typ events.EventType) []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []events.Event
	for _, e := range f.published {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
