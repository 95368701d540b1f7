package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresGrantRepo はユーザー→ロール→パーミッションの読み取り専用トラバーサルの
// PostgreSQL実装。純粋な存在判定と射影のみで、キャッシュや優先順位は持たない。
type PostgresGrantRepo struct {
	db *sql.DB
}

// NewPostgresGrantRepo はPostgresGrantRepoを生成する。
func NewPostgresGrantRepo(db *sql.DB) *PostgresGrantRepo {
	return &PostgresGrantRepo{db: db}
}

// HasRole はユーザーのロール集合に指定名のロールが含まれるかを返す。
func (r *PostgresGrantRepo) HasRole(ctx context.Context, userID, roleName string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1
			FROM user_roles ur
			JOIN roles r ON r.id = ur.role_id
			WHERE ur.user_id = $1 AND r.name = $2
		)`,
		userID, roleName,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check role membership: %w", err)
	}
	return exists, nil
}

// HasPermission はユーザーのいずれかのロールが指定コードのパーミッションを含むかを返す。
func (r *PostgresGrantRepo) HasPermission(ctx context.Context, userID, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1
			FROM user_roles ur
			JOIN role_permissions rp ON rp.role_id = ur.role_id
			JOIN permissions p ON p.id = rp.permission_id
			WHERE ur.user_id = $1 AND p.code = $2
		)`,
		userID, code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check permission membership: %w", err)
	}
	return exists, nil
}

// ListPermissionCodes はユーザーの全ロールが持つパーミッションコードの
// 重複なし和集合をコード昇順で返す。
func (r *PostgresGrantRepo) ListPermissionCodes(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT p.code
		 FROM user_roles ur
		 JOIN role_permissions rp ON rp.role_id = ur.role_id
		 JOIN permissions p ON p.id = rp.permission_id
		 WHERE ur.user_id = $1
		 ORDER BY p.code`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list permission codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan permission code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate permission codes: %w", err)
	}

	return codes, nil
}

// compile-time interface check
var _ GrantRepository = (*PostgresGrantRepo)(nil)
