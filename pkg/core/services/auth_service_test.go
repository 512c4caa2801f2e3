package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
)

func newAuthService(t *testing.T) (*AuthService, *clock) {
	t.Helper()
	clk := &clock{t: base}
	svc := NewAuthService(newStore(t), "test-secret")
	svc.bcryptCost = bcrypt.MinCost
	svc.now = clk.now
	return svc, clk
}

func TestEnsureAdminAndLogin(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "admin", "hunter2", false)
	require.NoError(t, err)
	assert.True(t, created)

	token, admin, err := svc.Login(ctx, "admin", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "admin", admin.Username)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	id, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{Subject: "admin", Role: domain.RoleAdmin}, id)
}

func TestEnsureAdminOverwrite(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.EnsureAdmin(ctx, "admin", "first", false)
	require.NoError(t, err)

	written, err := svc.EnsureAdmin(ctx, "admin", "second", false)
	require.NoError(t, err)
	assert.False(t, written)
	_, _, err = svc.Login(ctx, "admin", "first")
	require.NoError(t, err)

	written, err = svc.EnsureAdmin(ctx, "admin", "second", true)
	require.NoError(t, err)
	assert.True(t, written)

	_, _, err = svc.Login(ctx, "admin", "first")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "admin", "second")
	assert.NoError(t, err)
}

func TestLoginFailures(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	_, err := svc.EnsureAdmin(ctx, "admin", "hunter2", false)
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody", "hunter2")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "", "hunter2")
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestVerifyRejects(t *testing.T) {
	svc, clk := newAuthService(t)

	token, err := svc.IssueToken("admin", domain.RoleAdmin)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		clk.t = base.Add(25 * time.Hour)
		defer func() { clk.t = base }()
		_, err := svc.Verify(token)
		assert.ErrorIs(t, err, domain.ErrAuthRequired)
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewAuthService(nil, "other-secret")
		other.now = clk.now
		_, err := other.Verify(token)
		assert.ErrorIs(t, err, domain.ErrAuthRequired)
	})

	t.Run("unsigned", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub":  "admin",
			"role": domain.RoleAdmin,
			"exp":  base.Add(time.Hour).Unix(),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.Verify(unsigned)
		assert.ErrorIs(t, err, domain.ErrAuthRequired)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Verify("not-a-token")
		assert.ErrorIs(t, err, domain.ErrAuthRequired)
	})
}
