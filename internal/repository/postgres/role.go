package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/identity-admin/internal/model"
	"github.com/jwalitptl/identity-admin/internal/repository"
)

type roleRepository struct {
	BaseRepository
}

func NewRoleRepository(base BaseRepository) repository.RoleRepository {
	return &roleRepository{base}
}

func (r *roleRepository) Create(ctx context.Context, role *model.Role) error {
	query := `
		INSERT INTO roles (id, name, normalized_name, description, created_at)
		VALUES (:id, :name, :normalized_name, :description, :created_at)
	`

	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	role.CreatedAt = time.Now().UTC()

	if _, err := r.db.NamedExecContext(ctx, query, role); err != nil {
		return fmt.Errorf("failed to create role: %w", mapError(err))
	}
	return nil
}

func (r *roleRepository) GetByNormalizedName(ctx context.Context, name string) (*model.Role, error) {
	query := `
		SELECT id, name, normalized_name, description, created_at
		FROM roles WHERE normalized_name = $1
	`

	var role model.Role
	if err := r.db.GetContext(ctx, &role, query, name); err != nil {
		return nil, fmt.Errorf("failed to get role: %w", mapError(err))
	}
	return &role, nil
}

func (r *roleRepository) List(ctx context.Context) ([]*model.Role, error) {
	roles := []*model.Role{}
	err := r.db.SelectContext(ctx, &roles,
		`SELECT id, name, normalized_name, description, created_at FROM roles ORDER BY normalized_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

func (r *roleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	return expectRows(result)
}
