// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, account, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeEmailRequired      = "EMAIL_REQUIRED"
	ErrCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	ErrCodeSuperuserFlag      = "SUPERUSER_FLAG_REQUIRED"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeAddressNotFound    = "ADDRESS_NOT_FOUND"
	ErrCodeRoleNotFound       = "ROLE_NOT_FOUND"
	ErrCodePermissionNotFound = "PERMISSION_NOT_FOUND"
	ErrCodeDuplicateRole      = "DUPLICATE_ROLE"
	ErrCodeDuplicateCode      = "DUPLICATE_PERMISSION_CODE"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeInactiveUser       = "INACTIVE_USER"
)

// NewEmailRequiredError はメールアドレス未指定エラーを生成する。
func NewEmailRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailRequired,
		Message:  "メールアドレスは必須です。",
		Category: "validation",
		Action:   "メールアドレスを入力してください。",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  fmt.Sprintf("このメールアドレスは既に登録されています: %s", email),
		Category: "validation",
		Action:   "別のメールアドレスを使用してください。",
	}
}

// NewSuperuserFlagError はスーパーユーザー作成時のフラグ不正エラーを生成する。
// is_staffまたはis_superuserが明示的にfalseに設定された場合に返す。
func NewSuperuserFlagError(flag string) *APIError {
	return &APIError{
		Code:     ErrCodeSuperuserFlag,
		Message:  fmt.Sprintf("スーパーユーザーには %s=true が必要です。", flag),
		Category: "validation",
		Action:   fmt.Sprintf("%s をfalseに設定せずに作成してください。", flag),
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", userID),
		Category: "account",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewAddressNotFoundError は住所が見つからない場合のエラーを生成する。
func NewAddressNotFoundError(addressID string) *APIError {
	return &APIError{
		Code:     ErrCodeAddressNotFound,
		Message:  fmt.Sprintf("指定された住所が見つかりません: %s", addressID),
		Category: "account",
		Action:   "住所IDを確認してください。",
	}
}

// NewRoleNotFoundError はロールが見つからない場合のエラーを生成する。
func NewRoleNotFoundError(roleID string) *APIError {
	return &APIError{
		Code:     ErrCodeRoleNotFound,
		Message:  fmt.Sprintf("指定されたロールが見つかりません: %s", roleID),
		Category: "account",
		Action:   "ロールIDを確認してください。",
	}
}

// NewPermissionNotFoundError はパーミッションが見つからない場合のエラーを生成する。
func NewPermissionNotFoundError(permissionID string) *APIError {
	return &APIError{
		Code:     ErrCodePermissionNotFound,
		Message:  fmt.Sprintf("指定されたパーミッションが見つかりません: %s", permissionID),
		Category: "account",
		Action:   "パーミッションIDを確認してください。",
	}
}

// NewDuplicateRoleError はロール名重複エラーを生成する。
func NewDuplicateRoleError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateRole,
		Message:  fmt.Sprintf("このロール名は既に使用されています: %s", name),
		Category: "validation",
		Action:   "別のロール名を使用してください。",
	}
}

// NewDuplicateCodeError はパーミッションコード重複エラーを生成する。
func NewDuplicateCodeError(code string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateCode,
		Message:  fmt.Sprintf("このパーミッションコードは既に使用されています: %s", code),
		Category: "validation",
		Action:   "別のコードを使用してください。",
	}
}

// NewInvalidCredentialsError は認証情報不正エラーを生成する。
// メールアドレスの存在有無を漏らさないよう、メッセージは共通化する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInactiveUserError は無効化されたユーザーのログイン試行エラーを生成する。
func NewInactiveUserError() *APIError {
	return &APIError{
		Code:     ErrCodeInactiveUser,
		Message:  "このアカウントは無効化されています。",
		Category: "auth",
		Action:   "管理者に問い合わせてください。",
	}
}
