package main

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/blog-service/internal/app"
	"github.com/spec-kit/blog-service/internal/client/session"
	"github.com/spec-kit/blog-service/internal/config"
	"github.com/spec-kit/blog-service/internal/domain"
)

type harness struct {
	t       *testing.T
	baseURL string
	session string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Name: "blog-test", Env: "test"},
		Auth: config.AuthConfig{
			JWTSecret:          "cli-test-secret-cli-test-secret!",
			TokenTTL:           time.Hour,
			BcryptCost:         bcrypt.MinCost,
			HashWorkers:        2,
			LoginMaxFailures:   5,
			LoginFailureWindow: time.Minute,
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

	return &harness{
		t:       t,
		baseURL: "http://" + ln.Addr().String(),
		session: filepath.Join(t.TempDir(), "session.db"),
	}
}

// run executes one CLI invocation; stdin feeds prompts line by line.
func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	var out, prompts bytes.Buffer
	c := &cli{
		cfg:    config.ClientConfig{BaseURL: h.baseURL, SessionPath: h.session, Timeout: 2 * time.Second},
		logger: zap.NewNop(),
		prompt: &prompter{in: bufio.NewReader(strings.NewReader(stdin)), out: &prompts},
		out:    &out,
	}
	err := c.run(context.Background(), args)
	return out.String(), err
}

func TestCLI_SessionLifecycle(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("", "status")
	require.NoError(t, err)
	assert.Equal(t, "not signed in\n", out)

	_, err = h.run("", "me")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not signed in")

	out, err = h.run("secret1\n", "register", "-username", "alice", "-email", "alice@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "signed in as alice <alice@example.com> (member)")

	// A new invocation restores the stored session.
	out, err = h.run("", "me")
	require.NoError(t, err)
	assert.Contains(t, out, "alice\talice@example.com\tmember")

	out, err = h.run("", "post", "-title", "Hello World", "-content", "body", "-publish")
	require.NoError(t, err)
	assert.Contains(t, out, "hello-world-")

	out, err = h.run("", "posts")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello World")

	out, err = h.run("", "logout")
	require.NoError(t, err)
	assert.Equal(t, "signed out\n", out)

	out, err = h.run("", "status")
	require.NoError(t, err)
	assert.Equal(t, "not signed in\n", out)

	out, err = h.run("alice@example.com\nsecret1\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "signed in as alice")
}

func TestCLI_LoginFailureShowsMessage(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("secret1\n", "register", "-username", "alice", "-email", "alice@example.com")
	require.NoError(t, err)
	_, err = h.run("", "logout")
	require.NoError(t, err)

	_, err = h.run("wrong-pw\n", "login", "-email", "alice@example.com")
	require.EqualError(t, err, "invalid credentials")

	out, err := h.run("", "status")
	require.NoError(t, err)
	assert.Equal(t, "not signed in\n", out)
}

func TestCLI_RejectedTokenAsksForReauth(t *testing.T) {
	h := newHarness(t)

	store, err := session.OpenSQLite(context.Background(), h.session)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), session.Snapshot{
		Token:    "forged.token.value",
		Identity: alice(),
	}))
	require.NoError(t, store.Close())

	out, err := h.run("", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "signed in as alice")

	_, err = h.run("", "me")
	require.EqualError(t, err, session.ReauthMessage)

	out, err = h.run("", "status")
	require.NoError(t, err)
	assert.Equal(t, "not signed in\n", out)
}

func TestCLI_Usage(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("")
	require.ErrorIs(t, err, errUsage)

	_, err = h.run("", "frobnicate")
	require.ErrorIs(t, err, errUsage)

	_, err = h.run("", "delete-post")
	require.ErrorIs(t, err, errUsage)
}

func alice() domain.PublicIdentity {
	return domain.PublicIdentity{ID: "id-alice", Username: "alice", Email: "alice@example.com", Role: domain.RoleMember}
}
