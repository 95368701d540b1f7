package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/accountman/internal/model"
)

// uniqueViolation はPostgreSQLのunique制約違反のSQLSTATE。
const uniqueViolation = "23505"

// isUniqueViolation はエラーがunique制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, email, password_hash, phone_number, address_id,
	is_staff, is_active, is_superuser, last_login, created_at, updated_at`

// scanUser は1行分のユーザーをスキャンする。
func scanUser(row interface{ Scan(...interface{}) error }) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.PhoneNumber, &user.AddressID,
		&user.IsStaff, &user.IsActive, &user.IsSuperuser, &user.LastLogin,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する（大文字小文字を区別しない）。
// 見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`,
		email,
	)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return user, nil
}

// Create はユーザーを作成する。
// lower(email)のユニーク制約違反の場合はDuplicateEmailのAPIErrorを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, phone_number, address_id,
		 is_staff, is_active, is_superuser, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		user.ID, user.Email, user.PasswordHash, user.PhoneNumber, user.AddressID,
		user.IsStaff, user.IsActive, user.IsSuperuser, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.NewDuplicateEmailError(user.Email)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Update はユーザーの属性を更新する。
func (r *PostgresUserRepo) Update(ctx context.Context, user *model.User) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET email = $2, phone_number = $3, is_staff = $4, is_active = $5,
		     is_superuser = $6, password_hash = $7, updated_at = now()
		 WHERE id = $1`,
		user.ID, user.Email, user.PhoneNumber, user.IsStaff, user.IsActive,
		user.IsSuperuser, user.PasswordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.NewDuplicateEmailError(user.Email)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewUserNotFoundError(user.ID)
	}
	return nil
}

// SetAddressID はユーザーに住所への参照を設定する。
// 住所未設定の場合のみ更新する条件付きUPDATEにより、
// 並行する紐付け試行のうち1つだけを成功させる。
// 0行更新（ユーザー不在・既に紐付け済み）はエラーではなくfalseを返す。
func (r *PostgresUserRepo) SetAddressID(ctx context.Context, userID, addressID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET address_id = $2, updated_at = now() WHERE id = $1 AND address_id IS NULL`,
		userID, addressID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to set address ID: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// UpdateLastLogin は最終ログイン日時を更新する。
func (r *PostgresUserRepo) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login = now() WHERE id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのユーザーを削除する。
// 所有する住所も同一トランザクションで削除する。
// user_roles、sessionsはCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 所有する住所のIDを取得してからユーザーを削除
	var addressID sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT address_id FROM users WHERE id = $1`,
		id,
	).Scan(&addressID)
	if err == sql.ErrNoRows {
		return model.NewUserNotFoundError(id)
	}
	if err != nil {
		return fmt.Errorf("failed to load user address: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	// 住所はユーザー側からの片方向参照のため、FKのCASCADEでは消えない
	if addressID.Valid {
		if _, err := tx.ExecContext(ctx, `DELETE FROM addresses WHERE id = $1`, addressID.String); err != nil {
			return fmt.Errorf("failed to delete owned address: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// List は検索・フィルタ条件に一致するユーザーをメールアドレス昇順で返す。
func (r *PostgresUserRepo) List(ctx context.Context, q UserQuery) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var conds []string
	var args []interface{}

	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		conds = append(conds, fmt.Sprintf("email ILIKE $%d", len(args)))
	}
	if q.IsStaff != nil {
		args = append(args, *q.IsStaff)
		conds = append(conds, fmt.Sprintf("is_staff = $%d", len(args)))
	}
	if q.IsActive != nil {
		args = append(args, *q.IsActive)
		conds = append(conds, fmt.Sprintf("is_active = $%d", len(args)))
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY email"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// ListWithoutAddress は住所未作成のユーザーを作成日時昇順で最大limit件返す。
func (r *PostgresUserRepo) ListWithoutAddress(ctx context.Context, limit int) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE address_id IS NULL
		 ORDER BY created_at
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users without address: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// ReplaceRoles はユーザーのロール割り当てを指定された集合で置き換える。
func (r *PostgresUserRepo) ReplaceRoles(ctx context.Context, userID string, roleIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear user roles: %w", err)
	}

	for _, roleID := range roleIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`,
			userID, roleID,
		); err != nil {
			return fmt.Errorf("failed to assign role %s: %w", roleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListRoles はユーザーに割り当てられたロールを名前昇順で返す。
func (r *PostgresUserRepo) ListRoles(ctx context.Context, userID string) ([]*model.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.name, r.created_at, r.updated_at
		 FROM roles r
		 JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id = $1
		 ORDER BY r.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list user roles: %w", err)
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

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
