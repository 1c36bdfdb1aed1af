package me

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/identity-admin/internal/identity"
	"github.com/jwalitptl/identity-admin/internal/model"
	"github.com/jwalitptl/identity-admin/internal/repository/memory"
	"github.com/jwalitptl/identity-admin/internal/service/audit"
	"github.com/jwalitptl/identity-admin/pkg/auth"
	"github.com/jwalitptl/identity-admin/pkg/password"
	"github.com/jwalitptl/identity-admin/pkg/security"
)

type nopPublisher struct{ types []string }

func (p *nopPublisher) Emit(_ context.Context, eventType string, _ interface{}) {
	p.types = append(p.types, eventType)
}

func setup(t *testing.T) (*Service, *identity.Manager, *model.User, *nopPublisher) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	roles := identity.NewRoleManager(store.Roles(), time.Minute, time.Minute)
	require.NoError(t, roles.EnsureRoles(ctx, "admin"))

	users := identity.NewManager(store.Users(), roles, security.NewBcryptHasher(bcrypt.MinCost), identity.Options{
		Password: *password.DefaultPolicy(),
	})
	user := &model.User{UserName: "alice", Email: "alice@example.com"}
	require.NoError(t, users.Create(ctx, user, "Str0ng!pass", []string{"admin"}))

	events := &nopPublisher{}
	return NewService(users, audit.NewNop(), events, nil), users, user, events
}

func claimsFor(user *model.User) *auth.Claims {
	return &auth.Claims{
		Name:  user.UserName,
		Roles: []string{"admin"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)),
		},
	}
}

func TestService_Get(t *testing.T) {
	svc, _, user, _ := setup(t)

	resp, err := svc.Get(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.UserName)
	assert.Equal(t, []string{"admin"}, resp.Roles)

	_, err = svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}

func TestService_ChangePassword(t *testing.T) {
	svc, users, user, events := setup(t)
	actor := model.Actor{ID: user.ID, Name: user.UserName}

	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())

	err := svc.ChangePassword(ctx, actor, claimsFor(user), &model.ChangePasswordRequest{
		OldPassword: "wrong", NewPassword: "N3w!password",
	})
	assert.True(t, identity.HasCode(err, identity.CodePasswordMismatch))
	assert.Contains(t, buf.String(), `"type":"sub"`)
	assert.NotContains(t, buf.String(), "N3w!password")

	err = svc.ChangePassword(ctx, actor, claimsFor(user), &model.ChangePasswordRequest{
		OldPassword: "Str0ng!pass", NewPassword: "N3w!password",
	})
	require.NoError(t, err)

	stored, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, users.CheckPassword(stored, "N3w!password"))
	assert.Equal(t, []string{model.EventUserPasswordChanged}, events.types)
}

func TestService_ChangePasswordUnknownUser(t *testing.T) {
	svc, _, _, _ := setup(t)
	ghost := &model.User{Base: model.Base{ID: uuid.New()}}

	err := svc.ChangePassword(context.Background(), model.Actor{ID: ghost.ID}, claimsFor(ghost), &model.ChangePasswordRequest{
		OldPassword: "x", NewPassword: "y",
	})
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}

func TestClaimList(t *testing.T) {
	user := &model.User{Base: model.Base{ID: uuid.MustParse("6f1c2a3e-0000-4000-8000-000000000001")}, UserName: "alice"}
	claims := claimsFor(user)
	claims.Roles = []string{"admin", "ops"}

	assert.Equal(t, []Claim{
		{Type: "sub", Value: "6f1c2a3e-0000-4000-8000-000000000001"},
		{Type: "name", Value: "alice"},
		{Type: "role", Value: "admin"},
		{Type: "role", Value: "ops"},
		{Type: "exp", Value: "2030-01-01T00:00:00Z"},
	}, ClaimList(claims))
}
