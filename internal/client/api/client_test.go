package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/blog-service/internal/api/dto"
	"github.com/spec-kit/blog-service/internal/app"
	"github.com/spec-kit/blog-service/internal/config"
)

func startServer(t *testing.T) *Client {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Name: "blog-test", Env: "test"},
		Auth: config.AuthConfig{
			JWTSecret:           "client-test-secret-client-test!!",
			TokenTTL:            time.Hour,
			BcryptCost:          bcrypt.MinCost,
			HashWorkers:         2,
			LoginMaxFailures:    5,
			LoginFailureWindow:  time.Minute,
			BootstrapAdminEmail: "root@example.com",
		},
	}
	a, err := app.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = a.Fiber.Listener(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.Shutdown(ctx)
	})

	return New("http://"+ln.Addr().String()+"/", 2*time.Second)
}

func TestClient_RegisterLoginMe(t *testing.T) {
	c := startServer(t)
	ctx := context.Background()

	reg, err := c.Register(ctx, dto.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "alice", reg.Identity.Username)

	login, err := c.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)

	me, err := c.Me(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.Identity.ID, me.ID)
}

func TestClient_ErrorsDecoded(t *testing.T) {
	c := startServer(t)
	ctx := context.Background()

	_, err := c.Register(ctx, dto.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = c.Register(ctx, dto.RegisterRequest{Username: "alice2", Email: "ALICE@example.com", Password: "secret1"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "email", apiErr.Field())

	_, err = c.Login(ctx, "alice@example.com", "wrong-pw")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "INVALID_CREDENTIALS", apiErr.Code)
	assert.False(t, errors.Is(err, ErrUnauthenticated))

	_, err = c.Me(ctx, "not-a-token")
	require.ErrorIs(t, err, ErrUnauthenticated)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "INVALID_TOKEN", apiErr.Reason())
}

func TestClient_PostOwnership(t *testing.T) {
	c := startServer(t)
	ctx := context.Background()

	admin, err := c.Register(ctx, dto.RegisterRequest{Username: "root", Email: "root@example.com", Password: "secret1"})
	require.NoError(t, err)
	alice, err := c.Register(ctx, dto.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	bob, err := c.Register(ctx, dto.RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "secret1"})
	require.NoError(t, err)

	post, err := c.CreatePost(ctx, alice.Token, dto.PostRequest{Title: "Hello", Content: "world", IsPublished: true})
	require.NoError(t, err)

	posts, err := c.ListPosts(ctx, "")
	require.NoError(t, err)
	require.Len(t, posts, 1)

	err = c.DeletePost(ctx, bob.Token, post.ID)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	require.NoError(t, c.DeletePost(ctx, admin.Token, post.ID))
}

func TestClient_Unavailable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := New("http://"+addr, 500*time.Millisecond)
	_, err = c.Login(context.Background(), "a@example.com", "secret1")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_CanceledContext(t *testing.T) {
	c := New("http://127.0.0.1:1", time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Me(ctx, "token")
	require.ErrorIs(t, err, context.Canceled)
}

func TestDecode_NonEnvelopeError(t *testing.T) {
	err := decode(http.StatusBadGateway, nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "INTERNAL_ERROR", apiErr.Code)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestDecode_PlainTextError(t *testing.T) {
	err := decode(http.StatusServiceUnavailable, []byte("upstream down"), nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)

	err = decode(http.StatusOK, []byte("not json"), &struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response (200)")
}
