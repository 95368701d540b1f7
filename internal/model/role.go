package model

import "time"

// Role はユーザーに割り当て可能な権限のグループを表す。
// ロールは複数のPermissionを多対多で保持する。
type Role struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Permission は機械可読なコードで参照される能力トークンを表す。
// Codeが権限チェックで使われる識別子（例: "payrolls"）。
type Permission struct {
	ID          string
	Name        string
	Code        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
