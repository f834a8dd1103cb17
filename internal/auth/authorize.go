package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/observability"
)

// Authorizer holds the role and ownership rules shared by every protected
// operation. Its checks are pure and must run before any mutation.
type Authorizer struct {
	metrics *observability.Metrics
}

// NewAuthorizer constructs an Authorizer.
func NewAuthorizer(metrics *observability.Metrics) *Authorizer {
	return &Authorizer{metrics: metrics}
}

// RequireRole allows identity only when it holds role. Admins satisfy every role.
func (a *Authorizer) RequireRole(identity *domain.Identity, role domain.Role) domain.Decision {
	var decision domain.Decision
	switch {
	case identity == nil:
		decision = domain.Deny(nil, domain.ReasonNoToken)
	case identity.Role == role || identity.IsAdmin():
		decision = domain.Allow(identity)
	default:
		decision = domain.Deny(identity, domain.ReasonForbidden)
	}
	return a.record(decision)
}

// CanModify allows the resource owner or an admin.
func (a *Authorizer) CanModify(identity *domain.Identity, ownerID string) domain.Decision {
	var decision domain.Decision
	switch {
	case identity == nil:
		decision = domain.Deny(nil, domain.ReasonNoToken)
	case identity.IsAdmin():
		decision = domain.Allow(identity)
	case ownerID != "" && identity.ID == ownerID:
		decision = domain.Allow(identity)
	default:
		decision = domain.Deny(identity, domain.ReasonForbidden)
	}
	return a.record(decision)
}

func (a *Authorizer) record(d domain.Decision) domain.Decision {
	if a != nil {
		a.metrics.RecordAuthDecision(d.Allowed, string(d.Reason))
	}
	return d
}

// RequireRoleHandler is a route guard for role-gated groups. It must run after
// Authenticator.Handle.
func (a *Authorizer) RequireRoleHandler(role domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, _ := IdentityFromFiber(c)
		if err := DecisionError(a.RequireRole(identity, role)); err != nil {
			return err
		}
		return c.Next()
	}
}
