// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/accountman/internal/model"
)

// UserQuery はユーザー一覧の検索・フィルタ条件。
// 管理サイトの一覧画面（search_fields / list_filter / ordering 相当）が使用する。
type UserQuery struct {
	// Search はメールアドレスの部分一致検索文字列。空文字列の場合は全件。
	Search string
	// IsStaff はスタッフフラグのフィルタ。nilの場合はフィルタしない。
	IsStaff *bool
	// IsActive は有効フラグのフィルタ。nilの場合はフィルタしない。
	IsActive *bool
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する（大文字小文字を区別しない）。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// lower(email)のユニーク制約違反の場合はmodel.ErrCodeDuplicateEmailのAPIErrorを返す。
	Create(ctx context.Context, user *model.User) error

	// Update はユーザーの属性を更新する。
	Update(ctx context.Context, user *model.User) error

	// SetAddressID はユーザーに住所への参照を設定する。
	// 作成フックが住所行を作成した後の再保存で使用する。
	// 住所未設定のユーザーのみ更新し、紐付けたかどうかを返す。
	// キュー消費と巡回が同一ユーザーを並行処理しても片方だけが勝つ。
	SetAddressID(ctx context.Context, userID, addressID string) (bool, error)

	// UpdateLastLogin は最終ログイン日時を更新する。
	UpdateLastLogin(ctx context.Context, userID string) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 所有する住所も同一トランザクションで削除する（user_rolesはCASCADE削除）。
	DeleteByID(ctx context.Context, id string) error

	// List は検索・フィルタ条件に一致するユーザーをメールアドレス昇順で返す。
	List(ctx context.Context, q UserQuery) ([]*model.User, error)

	// ListWithoutAddress は住所未作成のユーザーを作成日時昇順で最大limit件返す。
	// provisionワーカーの巡回（取りこぼし回収）が使用する。
	ListWithoutAddress(ctx context.Context, limit int) ([]*model.User, error)

	// ReplaceRoles はユーザーのロール割り当てを指定された集合で置き換える。
	ReplaceRoles(ctx context.Context, userID string, roleIDs []string) error

	// ListRoles はユーザーに割り当てられたロールを名前昇順で返す。
	ListRoles(ctx context.Context, userID string) ([]*model.Role, error)
}

// AddressRepository は住所データの永続化インターフェース。
type AddressRepository interface {
	// FindByID は指定IDの住所を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Address, error)

	// Create は住所を作成する。作成フックは全フィールド空のまま作成する。
	Create(ctx context.Context, address *model.Address) error

	// Update は住所を更新する。
	Update(ctx context.Context, address *model.Address) error

	// DeleteByID は指定IDの住所を削除する。
	DeleteByID(ctx context.Context, id string) error

	// List は市区町村または国名の部分一致で住所を検索する。
	// searchが空文字列の場合は全件を作成日時昇順で返す。
	List(ctx context.Context, search string) ([]*model.Address, error)
}

// RoleRepository はロールデータの永続化インターフェース。
type RoleRepository interface {
	// FindByID は指定IDのロールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Role, error)

	// Create はロールを作成する。
	// name重複の場合はmodel.ErrCodeDuplicateRoleのAPIErrorを返す。
	Create(ctx context.Context, role *model.Role) error

	// Update はロールを更新する。
	Update(ctx context.Context, role *model.Role) error

	// DeleteByID は指定IDのロールを削除する。
	// role_permissions、user_rolesはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error

	// List は名前の部分一致でロールを検索し、名前昇順で返す。
	List(ctx context.Context, search string) ([]*model.Role, error)

	// ReplacePermissions はロールのパーミッション集合を指定された集合で置き換える。
	ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error

	// ListPermissions はロールに割り当てられたパーミッションをコード昇順で返す。
	ListPermissions(ctx context.Context, roleID string) ([]*model.Permission, error)
}

// PermissionRepository はパーミッションデータの永続化インターフェース。
type PermissionRepository interface {
	// FindByID は指定IDのパーミッションを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Permission, error)

	// Create はパーミッションを作成する。
	// code重複の場合はmodel.ErrCodeDuplicateCodeのAPIErrorを返す。
	Create(ctx context.Context, permission *model.Permission) error

	// Update はパーミッションを更新する。
	Update(ctx context.Context, permission *model.Permission) error

	// DeleteByID は指定IDのパーミッションを削除する。
	DeleteByID(ctx context.Context, id string) error

	// List は名前またはコードの部分一致でパーミッションを検索し、コード昇順で返す。
	List(ctx context.Context, search string) ([]*model.Permission, error)
}

// GrantRepository はユーザー→ロール→パーミッションの読み取り専用トラバーサル。
// キャッシュや拒否（deny）セマンティクスは持たない純粋な集合メンバーシップ照会。
type GrantRepository interface {
	// HasRole はユーザーのロール集合に指定名のロールが含まれるかを返す。
	HasRole(ctx context.Context, userID, roleName string) (bool, error)

	// HasPermission はユーザーのいずれかのロールが指定コードの
	// パーミッションを含むかを返す。
	HasPermission(ctx context.Context, userID, code string) (bool, error)

	// ListPermissionCodes はユーザーの全ロールが持つパーミッションコードの
	// 重複なし和集合をコード昇順で返す。
	ListPermissionCodes(ctx context.Context, userID string) ([]string, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
