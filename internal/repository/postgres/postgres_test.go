package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/identity-admin/internal/model"
	"github.com/jwalitptl/identity-admin/internal/repository"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(sql.ErrNoRows), repository.ErrNotFound)
	assert.ErrorIs(t, mapError(fmt.Errorf("wrapped: %w", sql.ErrNoRows)), repository.ErrNotFound)
	assert.ErrorIs(t, mapError(&pq.Error{Code: pqUniqueViolation}), repository.ErrConflict)
	assert.ErrorIs(t, mapError(&pq.Error{Code: pqForeignKeyViolation}), repository.ErrNotFound)

	other := &pq.Error{Code: "42P01"}
	assert.Same(t, other, mapError(other))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\%b\_c\\d`, escapeLike(`a%b_c\d`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

// openTestDB connects to IDENTITY_TEST_DATABASE_DSN or skips.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("IDENTITY_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("IDENTITY_TEST_DATABASE_DSN not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, EnsureSchema(ctx, db))
	_, err = db.ExecContext(ctx, `TRUNCATE user_roles, users, roles`)
	require.NoError(t, err)
	return db
}

func TestStore_Integration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewStore(db)
	require.NoError(t, store.Ping(ctx))

	admin := &model.Role{Name: "admin", NormalizedName: "ADMIN"}
	require.NoError(t, store.Roles().Create(ctx, admin))
	assert.ErrorIs(t, store.Roles().Create(ctx, &model.Role{Name: "Admin", NormalizedName: "ADMIN"}), repository.ErrConflict)

	user := &model.User{UserName: "alice", Email: "alice@example.com", PasswordHash: "x", SecurityStamp: uuid.NewString()}
	user.Normalize()
	require.NoError(t, store.Users().Create(ctx, user, []uuid.UUID{admin.ID}))

	bad := &model.User{UserName: "bob", Email: "bob@example.com", PasswordHash: "x", SecurityStamp: "s"}
	bad.Normalize()
	assert.ErrorIs(t, store.Users().Create(ctx, bad, []uuid.UUID{uuid.New()}), repository.ErrNotFound)
	_, err := store.Users().GetByNormalizedUserName(ctx, "BOB")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	names, err := store.Users().RoleNames(ctx, []uuid.UUID{user.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, names[user.ID])

	assert.ErrorIs(t, store.Users().AddToRole(ctx, user.ID, admin.ID), repository.ErrConflict)
	require.NoError(t, store.Users().RemoveFromRole(ctx, user.ID, admin.ID))
	assert.ErrorIs(t, store.Users().RemoveFromRole(ctx, user.ID, admin.ID), repository.ErrNotFound)

	end := model.LockoutForever
	user.LockoutEnabled = true
	user.LockoutEnd = &end
	require.NoError(t, store.Users().Update(ctx, user))

	locked := true
	q := &model.UserQuery{Search: "ALI", Locked: &locked}
	q.Normalize()
	users, total, err := store.Users().List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, user.ID, users[0].ID)

	require.NoError(t, store.Roles().Delete(ctx, admin.ID))
	assert.ErrorIs(t, store.Roles().Delete(ctx, admin.ID), repository.ErrNotFound)
}
