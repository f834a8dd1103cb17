package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blog-service/internal/domain"
)

const identityLocalsKey = "auth_identity"

type identityContextKey struct{}

// ContextWithIdentity attaches the authenticated identity to ctx.
func ContextWithIdentity(ctx context.Context, identity *domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext extracts the authenticated identity from ctx.
func IdentityFromContext(ctx context.Context) (*domain.Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	identity, ok := ctx.Value(identityContextKey{}).(*domain.Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

// IdentityFromFiber retrieves the identity stored by Authenticator.Handle.
func IdentityFromFiber(c *fiber.Ctx) (*domain.Identity, bool) {
	identity, ok := c.Locals(identityLocalsKey).(*domain.Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
