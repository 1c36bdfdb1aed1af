package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/identity-admin/internal/model"
	"github.com/jwalitptl/identity-admin/internal/repository/memory"
)

func TestRoleManager(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m := NewRoleManager(store.Roles(), time.Minute, time.Minute)

	require.NoError(t, m.Create(ctx, &model.Role{Name: " auditor ", Description: "read only"}))

	err := m.Create(ctx, &model.Role{Name: "AUDITOR"})
	assert.True(t, HasCode(err, CodeDuplicateRoleName))

	err = m.Create(ctx, &model.Role{Name: "  "})
	assert.True(t, HasCode(err, CodeInvalidRoleName))

	role, err := m.FindByName(ctx, "Auditor")
	require.NoError(t, err)
	assert.Equal(t, "auditor", role.Name)
	assert.Equal(t, "read only", role.Description)

	roles, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 1)

	_, err = m.Delete(ctx, "auditor")
	require.NoError(t, err)

	_, err = m.FindByName(ctx, "auditor")
	assert.ErrorIs(t, err, ErrRoleNotFound)
	roles, err = m.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, roles)

	_, err = m.Delete(ctx, "auditor")
	assert.ErrorIs(t, err, ErrRoleNotFound)
}

func TestRoleManager_CacheServesReads(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m := NewRoleManager(store.Roles(), time.Minute, time.Minute)
	require.NoError(t, m.EnsureRoles(ctx, "admin", "admin"))

	_, err := m.List(ctx)
	require.NoError(t, err)

	// Written behind the manager's back, so the cached list stays stale.
	require.NoError(t, store.Roles().Create(ctx, &model.Role{Name: "ops", NormalizedName: "OPS"}))
	roles, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 1)

	require.NoError(t, m.Create(ctx, &model.Role{Name: "qa"}))
	roles, err = m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 3)
}

func TestRoleManager_ListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewRoleManager(memory.NewStore().Roles(), time.Minute, time.Minute)
	require.NoError(t, m.EnsureRoles(ctx, "admin"))

	roles, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	roles[0].Name = "changed"

	roles, err = m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "admin", roles[0].Name)
}
