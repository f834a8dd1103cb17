package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicIdentity_OmitsPasswordHash(t *testing.T) {
	identity := &Identity{
		ID:           "id-1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$12$secret",
		Role:         RoleMember,
	}

	raw, err := json.Marshal(identity.Public())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "$2a$12$secret")
	assert.NotContains(t, string(raw), "password")
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}

func TestDecision_Unauthenticated(t *testing.T) {
	assert.True(t, Deny(nil, ReasonNoToken).Unauthenticated())
	assert.True(t, Deny(nil, ReasonIdentityGone).Unauthenticated())
	assert.False(t, Deny(&Identity{}, ReasonForbidden).Unauthenticated())
	assert.False(t, Allow(&Identity{}).Unauthenticated())
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleMember.Valid())
	assert.False(t, Role("root").Valid())
}
