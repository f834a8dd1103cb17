package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/events"
	"github.com/spec-kit/blog-service/internal/repository"
	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

func register(t *testing.T, f *fixture, username, email, password string) *AuthResult {
	t.Helper()
	res, err := f.auth.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return res
}

func TestRegisterThenLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg := register(t, f, "alice", "Alice@Example.com", "secret1")
	assert.Equal(t, "alice@example.com", reg.Identity.Email)
	assert.Equal(t, domain.RoleMember, reg.Identity.Role)
	assert.NotEqual(t, "secret1", reg.Identity.PasswordHash)

	claims, err := f.tokens.Verify(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.Identity.ID, claims.IdentityID())

	login, err := f.auth.Login(ctx, "ALICE@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, reg.Identity.ID, login.Identity.ID)
	require.NotNil(t, login.Identity.LastLoginAt)

	authn := auth.NewAuthenticator(f.tokens, f.store.Identities(), nil, nil)
	d := authn.Authenticate(ctx, "Bearer "+login.Token)
	require.True(t, d.Allowed)
	assert.Equal(t, reg.Identity.ID, d.Identity.ID)

	assert.Len(t, f.eventsOf(events.EventIdentityRegistered), 1)
	assert.Len(t, f.eventsOf(events.EventLoginSucceeded), 1)
}

func TestRegister_DuplicateEmailIgnoresCase(t *testing.T) {
	f := newFixture(t)
	register(t, f, "alice", "alice@example.com", "secret1")

	_, err := f.auth.Register(context.Background(), RegisterInput{Username: "alice2", Email: "ALICE@Example.COM", Password: "secret1"})
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeConflict, de.Code)
	assert.Equal(t, "email", de.Details["field"])

	_, err = f.auth.Register(context.Background(), RegisterInput{Username: "alice", Email: "new@example.com", Password: "secret1"})
	de = apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeConflict, de.Code)
	assert.Equal(t, "username", de.Details["field"])
}

func TestRegister_BootstrapAdmin(t *testing.T) {
	f := newFixture(t, func(d *AuthDependencies) { d.BootstrapAdminEmail = "Root@Example.com" })

	admin := register(t, f, "root", "root@example.com", "secret1")
	member := register(t, f, "bob", "bob@example.com", "secret1")
	assert.Equal(t, domain.RoleAdmin, admin.Identity.Role)
	assert.Equal(t, domain.RoleMember, member.Identity.Role)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	register(t, f, "alice", "alice@example.com", "secret1")
	ctx := context.Background()

	_, wrongPassword := f.auth.Login(ctx, "alice@example.com", "wrong-password")
	_, unknownEmail := f.auth.Login(ctx, "nobody@example.com", "secret1")

	a := apperrors.ToDomainError(wrongPassword)
	b := apperrors.ToDomainError(unknownEmail)
	assert.Equal(t, apperrors.CodeInvalidCredentials, a.Code)
	assert.Equal(t, a.Code, b.Code)
	assert.Equal(t, a.Message, b.Message)
	assert.Equal(t, a.HTTPStatus, b.HTTPStatus)
	assert.Equal(t, a.Details, b.Details)
	assert.Len(t, f.eventsOf(events.EventLoginFailed), 2)
}

func TestLogin_Deactivated(t *testing.T) {
	f := newFixture(t)
	reg := register(t, f, "alice", "alice@example.com", "secret1")
	require.NoError(t, f.store.Identities().SetActive(context.Background(), reg.Identity.ID, false))

	_, err := f.auth.Login(context.Background(), "alice@example.com", "secret1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAccountDeactivated))

	// a wrong password still looks like any other bad credential
	_, err = f.auth.Login(context.Background(), "alice@example.com", "nope-nope")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidCredentials))
}

func TestLogin_Throttled(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	f := newFixture(t, func(d *AuthDependencies) {
		d.Throttle = auth.NewMemoryLoginThrottle(3, 15*time.Minute, clock)
	})
	register(t, f, "alice", "alice@example.com", "secret1")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.auth.Login(ctx, "Alice@example.com", "wrong-password")
		require.True(t, apperrors.HasCode(err, apperrors.CodeInvalidCredentials))
	}
	_, err := f.auth.Login(ctx, "alice@example.com", "secret1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTooManyAttempts))

	now = now.Add(16 * time.Minute)
	_, err = f.auth.Login(ctx, "alice@example.com", "secret1")
	assert.NoError(t, err)
}

func TestLogin_ConcurrentSameIdentity(t *testing.T) {
	f := newFixture(t)
	register(t, f, "alice", "alice@example.com", "secret1")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.auth.Login(context.Background(), "alice@example.com", "secret1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	reg := register(t, f, "alice", "alice@example.com", "secret1")
	ctx := context.Background()

	err := f.auth.ChangePassword(ctx, reg.Identity, "not-current", "newsecret")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidCurrentPassword))

	require.NoError(t, f.auth.ChangePassword(ctx, reg.Identity, "secret1", "newsecret"))
	_, err = f.auth.Login(ctx, "alice@example.com", "secret1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidCredentials))
	_, err = f.auth.Login(ctx, "alice@example.com", "newsecret")
	assert.NoError(t, err)

	err = f.auth.ChangePassword(ctx, nil, "a", "b")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	reg := register(t, f, "alice", "alice@example.com", "secret1")
	bio := "writes about Go"

	updated, err := f.auth.UpdateProfile(context.Background(), reg.Identity, repository.ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, bio, updated.Bio)
	assert.Equal(t, "alice", updated.Username)
}

func TestDeactivate(t *testing.T) {
	f := newFixture(t, func(d *AuthDependencies) { d.BootstrapAdminEmail = "root@example.com" })
	admin := register(t, f, "root", "root@example.com", "secret1")
	alice := register(t, f, "alice", "alice@example.com", "secret1")
	bob := register(t, f, "bob", "bob@example.com", "secret1")
	ctx := context.Background()

	err := f.auth.Deactivate(ctx, bob.Identity, alice.Identity.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	err = f.auth.Deactivate(ctx, admin.Identity, admin.Identity.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	err = f.auth.Deactivate(ctx, admin.Identity, "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	require.NoError(t, f.auth.Deactivate(ctx, admin.Identity, alice.Identity.ID))

	authn := auth.NewAuthenticator(f.tokens, f.store.Identities(), nil, nil)
	d := authn.Authenticate(ctx, "Bearer "+alice.Token)
	assert.False(t, d.Allowed)
	assert.Equal(t, domain.ReasonIdentityGone, d.Reason)
}
