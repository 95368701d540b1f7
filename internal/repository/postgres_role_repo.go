package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/accountman/internal/model"
)

// PostgresRoleRepo はPostgreSQLを使用したロールリポジトリ。
type PostgresRoleRepo struct {
	db *sql.DB
}

// NewPostgresRoleRepo はPostgresRoleRepoを生成する。
func NewPostgresRoleRepo(db *sql.DB) *PostgresRoleRepo {
	return &PostgresRoleRepo{db: db}
}

// FindByID は指定IDのロールを取得する。見つからない場合はnilを返す。
func (r *PostgresRoleRepo) FindByID(ctx context.Context, id string) (*model.Role, error) {
	role := &model.Role{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM roles WHERE id = $1`,
		id,
	).Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find role by ID: %w", err)
	}

	return role, nil
}

// Create はロールを作成する。name重複の場合はDuplicateRoleのAPIErrorを返す。
func (r *PostgresRoleRepo) Create(ctx context.Context, role *model.Role) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO roles (id, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4)`,
		role.ID, role.Name, role.CreatedAt, role.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.NewDuplicateRoleError(role.Name)
		}
		return fmt.Errorf("failed to insert role: %w", err)
	}
	return nil
}

// Update はロールを更新する。
func (r *PostgresRoleRepo) Update(ctx context.Context, role *model.Role) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE roles SET name = $2, updated_at = now() WHERE id = $1`,
		role.ID, role.Name,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.NewDuplicateRoleError(role.Name)
		}
		return fmt.Errorf("failed to update role: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewRoleNotFoundError(role.ID)
	}
	return nil
}

// DeleteByID は指定IDのロールを削除する。
// role_permissions、user_rolesはCASCADE削除される。
func (r *PostgresRoleRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM roles WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewRoleNotFoundError(id)
	}
	return nil
}

// List は名前の部分一致でロールを検索し、名前昇順で返す。
func (r *PostgresRoleRepo) List(ctx context.Context, search string) ([]*model.Role, error) {
	query := `SELECT id, name, created_at, updated_at FROM roles`
	var args []interface{}

	if search != "" {
		query += ` WHERE name ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*model.Role
	for rows.Next() {
		role := &model.Role{}
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roles: %w", err)
	}

	return roles, nil
}

// ReplacePermissions はロールのパーミッション集合を指定された集合で置き換える。
func (r *PostgresRoleRepo) ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return fmt.Errorf("failed to clear role permissions: %w", err)
	}

	for _, permID := range permissionIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`,
			roleID, permID,
		); err != nil {
			return fmt.Errorf("failed to assign permission %s: %w", permID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListPermissions はロールに割り当てられたパーミッションをコード昇順で返す。
func (r *PostgresRoleRepo) ListPermissions(ctx context.Context, roleID string) ([]*model.Permission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.name, p.code, p.description, p.created_at, p.updated_at
		 FROM permissions p
		 JOIN role_permissions rp ON rp.permission_id = p.id
		 WHERE rp.role_id = $1
		 ORDER BY p.code`,
		roleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list role permissions: %w", err)
	}
	defer rows.Close()

	var permissions []*model.Permission
	for rows.Next() {
		perm := &model.Permission{}
		if err := rows.Scan(
			&perm.ID, &perm.Name, &perm.Code, &perm.Description,
			&perm.CreatedAt, &perm.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		permissions = append(permissions, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate permissions: %w", err)
	}

	return permissions, nil
}

// compile-time interface check
var _ RoleRepository = (*PostgresRoleRepo)(nil)
