package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/observability"
)

func TestAuthorizer_RequireRole(t *testing.T) {
	authz := NewAuthorizer(observability.NewMetrics())
	member := &domain.Identity{ID: "m", Role: domain.RoleMember}
	admin := &domain.Identity{ID: "a", Role: domain.RoleAdmin}

	tests := []struct {
		name     string
		identity *domain.Identity
		role     domain.Role
		allowed  bool
		reason   domain.DecisionReason
	}{
		{"anonymous", nil, domain.RoleMember, false, domain.ReasonNoToken},
		{"member as member", member, domain.RoleMember, true, domain.ReasonNone},
		{"member as admin", member, domain.RoleAdmin, false, domain.ReasonForbidden},
		{"admin as admin", admin, domain.RoleAdmin, true, domain.ReasonNone},
		{"admin as member", admin, domain.RoleMember, true, domain.ReasonNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := authz.RequireRole(tt.identity, tt.role)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestAuthorizer_CanModify(t *testing.T) {
	var authz *Authorizer // nil receiver records nothing but still decides
	a := &domain.Identity{ID: "a", Role: domain.RoleMember}
	b := &domain.Identity{ID: "b", Role: domain.RoleMember}
	admin := &domain.Identity{ID: "root", Role: domain.RoleAdmin}

	assert.True(t, authz.CanModify(a, "a").Allowed)
	assert.False(t, authz.CanModify(b, "a").Allowed)
	assert.Equal(t, domain.ReasonForbidden, authz.CanModify(b, "a").Reason)
	assert.True(t, authz.CanModify(admin, "a").Allowed)
	assert.False(t, authz.CanModify(nil, "a").Allowed)
	assert.False(t, authz.CanModify(&domain.Identity{Role: domain.RoleMember}, "").Allowed)
}
