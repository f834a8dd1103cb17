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
	"github.com/spec-kit/blog-service/internal/observability"
	"github.com/spec-kit/blog-service/internal/repository"
	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

// AuthService coordinates registration, login and account maintenance.
type AuthService struct {
	identities     repository.IdentityRepository
	hasher         *auth.PasswordHasher
	tokens         *auth.TokenManager
	authorizer     *auth.Authorizer
	throttle       auth.LoginThrottle
	dispatcher     events.Dispatcher
	logger         *zap.Logger
	metrics        *observability.Metrics
	now            func() time.Time
	bootstrapAdmin string
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Identities repository.IdentityRepository
	Hasher     *auth.PasswordHasher
	Tokens     *auth.TokenManager
	Authorizer *auth.Authorizer
	// Throttle is optional; nil disables login throttling.
	Throttle   auth.LoginThrottle
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Clock      func() time.Time
	// BootstrapAdminEmail registers with the admin role when set.
	BootstrapAdminEmail string
}

// RegisterInput carries a validated registration request.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Identity  *domain.Identity
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		identities:     deps.Identities,
		hasher:         deps.Hasher,
		tokens:         deps.Tokens,
		authorizer:     deps.Authorizer,
		throttle:       deps.Throttle,
		dispatcher:     deps.Dispatcher,
		logger:         logger,
		metrics:        deps.Metrics,
		now:            now,
		bootstrapAdmin: domain.NormalizeEmail(deps.BootstrapAdminEmail),
	}
}

// Register creates an identity and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	identity := &domain.Identity{
		Username:     strings.TrimSpace(in.Username),
		Email:        domain.NormalizeEmail(in.Email),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         domain.RoleMember,
		Active:       true,
	}
	if s.bootstrapAdmin != "" && identity.Email == s.bootstrapAdmin {
		identity.Role = domain.RoleAdmin
	}

	if err := s.identities.Create(ctx, identity); err != nil {
		if ce, ok := repository.IsConflict(err); ok {
			return nil, conflictError(ce.Field)
		}
		return nil, err
	}

	result, err := s.issue(identity)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:      events.EventIdentityRegistered,
		SubjectID: identity.ID,
		Actor:     events.ActorOf(identity),
	})
	return result, nil
}

// Login verifies credentials. Unknown emails and wrong passwords produce the
// same error after the same amount of hashing work.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	key := domain.NormalizeEmail(email)

	if s.throttle != nil {
		allowed, err := s.throttle.Allowed(ctx, key)
		if err != nil {
			s.logger.Warn("login throttle unavailable", zap.Error(err))
		} else if !allowed {
			s.metrics.RecordLogin("throttled")
			return nil, apperrors.NewTooManyAttempts("too many failed login attempts, try again later")
		}
	}

	identity, err := s.identities.FindByEmailOrUsername(ctx, key)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.hasher.VerifyDummy(ctx, password)
		return nil, s.loginFailed(ctx, key, "", "unknown_identity")
	case err != nil:
		return nil, err
	}

	ok, err := s.hasher.Verify(ctx, password, identity.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.loginFailed(ctx, key, identity.ID, "wrong_password")
	}
	if !identity.Active {
		s.metrics.RecordLogin("deactivated")
		return nil, apperrors.NewAccountDeactivated()
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, key); err != nil {
			s.logger.Warn("reset login throttle", zap.Error(err))
		}
	}

	at := s.now().UTC()
	if err := s.identities.TouchLastLogin(ctx, identity.ID, at); err != nil {
		s.logger.Warn("touch last login", zap.String("identity_id", identity.ID), zap.Error(err))
	} else {
		identity.LastLoginAt = &at
	}

	result, err := s.issue(identity)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLogin("success")
	s.publish(ctx, events.Event{
		Type:      events.EventLoginSucceeded,
		SubjectID: identity.ID,
		Actor:     events.ActorOf(identity),
	})
	return result, nil
}

func (s *AuthService) loginFailed(ctx context.Context, key, identityID, reason string) error {
	if s.throttle != nil {
		if err := s.throttle.RecordFailure(ctx, key); err != nil {
			s.logger.Warn("record login failure", zap.Error(err))
		}
	}
	s.metrics.RecordLogin("invalid_credentials")
	s.publish(ctx, events.Event{
		Type:      events.EventLoginFailed,
		SubjectID: identityID,
		Payload:   events.LoginFailedPayload{Reason: reason},
	})
	return apperrors.NewInvalidCredentials()
}

// UpdateProfile edits the caller's own profile fields.
func (s *AuthService) UpdateProfile(ctx context.Context, actor *domain.Identity, update repository.ProfileUpdate) (*domain.Identity, error) {
	if err := auth.DecisionError(s.authorizer.RequireRole(actor, domain.RoleMember)); err != nil {
		return nil, err
	}
	identity, err := s.identities.UpdateProfile(ctx, actor.ID, update)
	if err != nil {
		return nil, notFoundAs(err, "identity")
	}
	return identity, nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, actor *domain.Identity, current, next string) error {
	if err := auth.DecisionError(s.authorizer.RequireRole(actor, domain.RoleMember)); err != nil {
		return err
	}
	identity, err := s.identities.GetByID(ctx, actor.ID)
	if err != nil {
		return notFoundAs(err, "identity")
	}

	ok, err := s.hasher.Verify(ctx, current, identity.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewInvalidCurrentPassword()
	}

	hash, err := s.hasher.Hash(ctx, next)
	if err != nil {
		return err
	}
	if err := s.identities.UpdatePassword(ctx, identity.ID, hash); err != nil {
		return notFoundAs(err, "identity")
	}
	s.publish(ctx, events.Event{
		Type:      events.EventPasswordChanged,
		SubjectID: identity.ID,
		Actor:     events.ActorOf(actor),
	})
	return nil
}

// Deactivate disables an identity. There is no reactivation path; tokens
// already issued to the identity stop authenticating on their next use.
func (s *AuthService) Deactivate(ctx context.Context, actor *domain.Identity, identityID string) error {
	if err := auth.DecisionError(s.authorizer.RequireRole(actor, domain.RoleAdmin)); err != nil {
		return err
	}
	if actor.ID == identityID {
		return apperrors.NewValidationError("cannot deactivate your own account", map[string]any{"field": "id"})
	}
	if err := s.identities.SetActive(ctx, identityID, false); err != nil {
		return notFoundAs(err, "identity")
	}
	s.publish(ctx, events.Event{
		Type:      events.EventIdentityDeactivated,
		SubjectID: identityID,
		Actor:     events.ActorOf(actor),
	})
	return nil
}

func (s *AuthService) issue(identity *domain.Identity) (*AuthResult, error) {
	token, exp, err := s.tokens.Issue(identity.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{Identity: identity, Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, s.logger, s.now, event)
}

func conflictError(field string) error {
	message := field + " already registered"
	if field == "username" {
		message = "username already taken"
	}
	return apperrors.NewConflict(message, map[string]any{"field": field})
}
