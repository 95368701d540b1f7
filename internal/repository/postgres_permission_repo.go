package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/accountman/internal/model"
)

// PostgresPermissionRepo はPostgreSQLを使用したパーミッションリポジトリ。
type PostgresPermissionRepo struct {
	db *sql.DB
}

// NewPostgresPermissionRepo はPostgresPermissionRepoを生成する。
func NewPostgresPermissionRepo(db *sql.DB) *PostgresPermissionRepo {
	return &PostgresPermissionRepo{db: db}
}

// FindByID は指定IDのパーミッションを取得する。見つからない場合はnilを返す。
func (r *PostgresPermissionRepo) FindByID(ctx context.Context, id string) (*model.Permission, error) {
	perm := &model.Permission{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, code, description, created_at, updated_at
		 FROM permissions WHERE id = $1`,
		id,
	).Scan(&perm.ID, &perm.Name, &perm.Code, &perm.Description, &perm.CreatedAt, &perm.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find permission by ID: %w", err)
	}

	return perm, nil
}

// Create はパーミッションを作成する。code重複の場合はDuplicateCodeのAPIErrorを返す。
func (r *PostgresPermissionRepo) Create(ctx context.Context, permission *model.Permission) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO permissions (id, name, code, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		permission.ID, permission.Name, permission.Code, permission.Description,
		permission.CreatedAt, permission.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.NewDuplicateCodeError(permission.Code)
		}
		return fmt.Errorf("failed to insert permission: %w", err)
	}
	return nil
}

// Update はパーミッションを更新する。
func (r *PostgresPermissionRepo) Update(ctx context.Context, permission *model.Permission) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE permissions
		 SET name = $2, code = $3, description = $4, updated_at = now()
		 WHERE id = $1`,
		permission.ID, permission.Name, permission.Code, permission.Description,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.NewDuplicateCodeError(permission.Code)
		}
		return fmt.Errorf("failed to update permission: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewPermissionNotFoundError(permission.ID)
	}
	return nil
}

// DeleteByID は指定IDのパーミッションを削除する。
// role_permissionsはCASCADE削除される。
func (r *PostgresPermissionRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM permissions WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewPermissionNotFoundError(id)
	}
	return nil
}

// List は名前またはコードの部分一致でパーミッションを検索し、コード昇順で返す。
func (r *PostgresPermissionRepo) List(ctx context.Context, search string) ([]*model.Permission, error) {
	query := `SELECT id, name, code, description, created_at, updated_at FROM permissions`
	var args []interface{}

	if search != "" {
		query += ` WHERE name ILIKE $1 OR code ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY code`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
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
var _ PermissionRepository = (*PostgresPermissionRepo)(nil)
