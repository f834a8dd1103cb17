package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/observability"
	"github.com/spec-kit/blog-service/internal/repository"
	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

// IdentityLookup resolves the subject of a verified token.
type IdentityLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
}

// Authenticator validates bearer tokens and resolves the identity behind them.
type Authenticator struct {
	tokens     *TokenManager
	identities IdentityLookup
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuthenticator constructs the authentication middleware.
func NewAuthenticator(tokens *TokenManager, identities IdentityLookup, logger *zap.Logger, metrics *observability.Metrics) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{tokens: tokens, identities: identities, logger: logger, metrics: metrics}
}

// Authenticate turns a raw Authorization header into a decision. It never
// returns an error: every failure is a rejecting decision with a reason.
func (a *Authenticator) Authenticate(ctx context.Context, header string) domain.Decision {
	decision := a.authenticate(ctx, header)
	a.metrics.RecordAuthDecision(decision.Allowed, string(decision.Reason))
	return decision
}

func (a *Authenticator) authenticate(ctx context.Context, header string) domain.Decision {
	token, present := bearerToken(header)
	if !present {
		return domain.Deny(nil, domain.ReasonNoToken)
	}
	if token == "" {
		return domain.Deny(nil, domain.ReasonInvalidToken)
	}

	claims, err := a.tokens.Verify(token)
	if err != nil {
		return domain.Deny(nil, domain.ReasonInvalidToken)
	}

	identity, err := a.identities.GetByID(ctx, claims.IdentityID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Deny(nil, domain.ReasonIdentityGone)
		}
		a.logger.Error("identity lookup failed", zap.String("identity_id", claims.IdentityID()), zap.Error(err))
		return domain.Deny(nil, domain.ReasonInternal)
	}
	if !identity.Active {
		return domain.Deny(nil, domain.ReasonIdentityGone)
	}
	return domain.Allow(identity)
}

// Handle enforces authentication for protected routes.
func (a *Authenticator) Handle(c *fiber.Ctx) error {
	decision := a.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if !decision.Allowed {
		if decision.Unauthenticated() {
			c.Set(fiber.HeaderWWWAuthenticate, `Bearer realm="blog"`)
		}
		return DecisionError(decision)
	}

	c.Locals(identityLocalsKey, decision.Identity)
	c.SetUserContext(ContextWithIdentity(c.UserContext(), decision.Identity))
	return c.Next()
}

// Optional attaches the identity when a valid token is presented and lets
// anonymous requests through. A presented but rejected token still fails so
// the client learns its session is gone.
func (a *Authenticator) Optional(c *fiber.Ctx) error {
	decision := a.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if decision.Reason == domain.ReasonNoToken {
		return c.Next()
	}
	if !decision.Allowed {
		if decision.Unauthenticated() {
			c.Set(fiber.HeaderWWWAuthenticate, `Bearer realm="blog"`)
		}
		return DecisionError(decision)
	}
	c.Locals(identityLocalsKey, decision.Identity)
	c.SetUserContext(ContextWithIdentity(c.UserContext(), decision.Identity))
	return c.Next()
}

// DecisionError maps a rejecting decision to the API error taxonomy.
func DecisionError(d domain.Decision) error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case domain.ReasonNoToken:
		return apperrors.NewUnauthenticated("authentication required", string(d.Reason))
	case domain.ReasonInvalidToken:
		return apperrors.NewUnauthenticated("invalid or expired token", string(d.Reason))
	case domain.ReasonIdentityGone:
		return apperrors.NewUnauthenticated("account no longer available", string(d.Reason))
	case domain.ReasonForbidden:
		return apperrors.NewForbidden("not permitted")
	default:
		return apperrors.NewInternalError(nil)
	}
}

// bearerToken reports the token and whether any Authorization credential was
// presented at all.
func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", true
	}
	return strings.TrimSpace(parts[1]), true
}
