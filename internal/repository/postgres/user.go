package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/identity-admin/internal/model"
	"github.com/jwalitptl/identity-admin/internal/repository"
)

const userColumns = `id, username, normalized_username, email, normalized_email, phone, fullname,
	nickname, image, password_hash, security_stamp, lockout_enabled, lockout_end, created_at, updated_at`

var userSortColumns = map[string]string{
	model.SortUserName:  "normalized_username",
	model.SortEmail:     "normalized_email",
	model.SortCreatedAt: "created_at",
}

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) Create(ctx context.Context, user *model.User, roleIDs []uuid.UUID) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (
			:id, :username, :normalized_username, :email, :normalized_email, :phone, :fullname,
			:nickname, :image, :password_hash, :security_stamp, :lockout_enabled, :lockout_end,
			:created_at, :updated_at
		)
	`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, query, user); err != nil {
			return err
		}
		for _, roleID := range roleIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, user.ID, roleID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapError(err))
	}
	return nil
}

func (r *userRepository) getBy(ctx context.Context, column string, value interface{}) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1 LIMIT 1`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, value); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", mapError(err))
	}
	return &user, nil
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *userRepository) GetByNormalizedUserName(ctx context.Context, name string) (*model.User, error) {
	return r.getBy(ctx, "normalized_username", name)
}

func (r *userRepository) GetByNormalizedEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getBy(ctx, "normalized_email", email)
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users SET
			username = :username,
			normalized_username = :normalized_username,
			email = :email,
			normalized_email = :normalized_email,
			phone = :phone,
			fullname = :fullname,
			nickname = :nickname,
			image = :image,
			password_hash = :password_hash,
			security_stamp = :security_stamp,
			lockout_enabled = :lockout_enabled,
			lockout_end = :lockout_end,
			updated_at = :updated_at
		WHERE id = :id
	`

	user.UpdatedAt = time.Now().UTC()
	result, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", mapError(err))
	}
	return expectRows(result)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *userRepository) List(ctx context.Context, q *model.UserQuery) ([]*model.User, int, error) {
	var (
		where []string
		args  []interface{}
	)

	if search := strings.TrimSpace(q.Search); search != "" {
		args = append(args, "%"+escapeLike(strings.ToLower(search))+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(LOWER(username) LIKE $%d OR LOWER(email) LIKE $%d OR LOWER(fullname) LIKE $%d)", n, n, n))
	}
	if q.Locked != nil {
		locked := "(lockout_enabled AND COALESCE(lockout_end > NOW(), FALSE))"
		if !*q.Locked {
			locked = "NOT " + locked
		}
		where = append(where, locked)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	field, desc := q.SortField()
	column, ok := userSortColumns[field]
	if !ok {
		column = userSortColumns[model.SortUserName]
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}

	args = append(args, q.PageSize, q.Offset())
	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY %s %s, id LIMIT $%d OFFSET $%d`,
		userColumns, clause, column, dir, len(args)-1, len(args))

	users := []*model.User{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (r *userRepository) Roles(ctx context.Context, userID uuid.UUID) ([]*model.Role, error) {
	if _, err := r.Get(ctx, userID); err != nil {
		return nil, err
	}

	query := `
		SELECT r.id, r.name, r.normalized_name, r.description, r.created_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.normalized_name
	`

	roles := []*model.Role{}
	if err := r.db.SelectContext(ctx, &roles, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	return roles, nil
}

func (r *userRepository) RoleNames(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]string, error) {
	names := make(map[uuid.UUID][]string, len(userIDs))
	if len(userIDs) == 0 {
		return names, nil
	}

	query, args, err := sqlx.In(`
		SELECT ur.user_id, r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id IN (?)
		ORDER BY r.name
	`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build role query: %w", err)
	}

	var rows []struct {
		UserID uuid.UUID `db:"user_id"`
		Name   string    `db:"name"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get role names: %w", err)
	}

	for _, row := range rows {
		names[row.UserID] = append(names[row.UserID], row.Name)
	}
	return names, nil
}

func (r *userRepository) AddToRole(ctx context.Context, userID, roleID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to add user to role: %w", mapError(err))
	}
	return nil
}

func (r *userRepository) RemoveFromRole(ctx context.Context, userID, roleID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to remove user from role: %w", err)
	}
	return expectRows(result)
}
