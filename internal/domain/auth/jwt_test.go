package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *User {
	u := NewUser("cashier@example.com", "hash", RoleCashier)
	u.Name = "Till One"
	return u
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))
	user := testUser()

	token, expiresAt, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, time.Minute)

	ctx, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), ctx.UserID)
	assert.Equal(t, user.Email, ctx.Email)
	assert.Equal(t, user.Name, ctx.Name)
	assert.Equal(t, string(RoleCashier), ctx.Role)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _, err := NewJWTService(DefaultJWTConfig("secret-a")).GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = NewJWTService(DefaultJWTConfig("secret-b")).ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	cfg := DefaultJWTConfig("test-secret")
	cfg.AccessTokenTTL = -time.Minute
	token, _, err := NewJWTService(cfg).GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = NewJWTService(DefaultJWTConfig("test-secret")).ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))
	_, err := svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestRoleChecks(t *testing.T) {
	assert.True(t, RoleAdmin.IsValid())
	assert.True(t, RoleManager.CanMutateStock())
	assert.False(t, RoleCashier.CanMutateStock())
	assert.False(t, Role("viewer").IsValid())
}
