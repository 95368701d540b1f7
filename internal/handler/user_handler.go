package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/accountman/internal/account"
	"github.com/hitoshi/accountman/internal/model"
	"github.com/hitoshi/accountman/internal/repository"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	CreateUser(ctx context.Context, input account.NewUser) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context, q repository.UserQuery) ([]*model.User, error)
	UpdateUser(ctx context.Context, id string, input account.UpdateUser) (*model.User, error)
	SetPassword(ctx context.Context, id, rawPassword string) error
	DeleteUser(ctx context.Context, id string) error
	ReplaceRoles(ctx context.Context, userID string, roleIDs []string) error
	ListRoles(ctx context.Context, userID string) ([]*model.Role, error)
}

// AuthzServiceInterface は権限照会のサービスインターフェース。
type AuthzServiceInterface interface {
	ListPermissionCodes(ctx context.Context, userID string) ([]string, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	authz   AuthzServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, authz AuthzServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
		authz:   authz,
	}
}

// createUserRequest はユーザー作成リクエストのボディ。
// フラグは省略時デフォルト（is_staff=false, is_active=true, is_superuser=false）を適用する。
type createUserRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
	IsStaff     *bool  `json:"is_staff"`
	IsActive    *bool  `json:"is_active"`
	IsSuperuser *bool  `json:"is_superuser"`
}

// updateUserRequest はユーザー更新リクエストのボディ。省略フィールドは変更しない。
type updateUserRequest struct {
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phone_number"`
	IsStaff     *bool   `json:"is_staff"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
}

// setPasswordRequest はパスワード再設定リクエストのボディ。
type setPasswordRequest struct {
	Password string `json:"password"`
}

// replaceRolesRequest はロール割り当て置換リクエストのボディ。
type replaceRolesRequest struct {
	RoleIDs []string `json:"role_ids"`
}

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	PhoneNumber *string    `json:"phone_number"`
	AddressID   *string    `json:"address_id"`
	IsStaff     bool       `json:"is_staff"`
	IsActive    bool       `json:"is_active"`
	IsSuperuser bool       `json:"is_superuser"`
	LastLogin   *time.Time `json:"last_login"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateUser はユーザーを作成する。
// POST /admin/api/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	user, err := h.service.CreateUser(r.Context(), account.NewUser{
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		IsStaff:     req.IsStaff,
		IsActive:    req.IsActive,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// ListUsers は検索・フィルタ条件に一致するユーザー一覧を返す。
// GET /admin/api/users?q=xxx&is_staff=true&is_active=false
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := repository.UserQuery{
		Search:   r.URL.Query().Get("q"),
		IsStaff:  parseBoolFilter(r.URL.Query().Get("is_staff")),
		IsActive: parseBoolFilter(r.URL.Query().Get("is_active")),
	}

	users, err := h.service.ListUsers(r.Context(), q)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]userResponse, len(users))
	for i, user := range users {
		results[i] = toUserResponse(user)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"users": results})
}

// GetUser はユーザー詳細を取得する。
// GET /admin/api/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// UpdateUser はユーザーの属性を部分更新する。
// PATCH /admin/api/users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	user, err := h.service.UpdateUser(r.Context(), chi.URLParam(r, "id"), account.UpdateUser{
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		IsStaff:     req.IsStaff,
		IsActive:    req.IsActive,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// SetPassword はユーザーのパスワードを再設定する。
// PUT /admin/api/users/{id}/password
func (h *UserHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req setPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.SetPassword(r.Context(), chi.URLParam(r, "id"), req.Password); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteUser はユーザーを削除する。所有する住所も削除される。
// DELETE /admin/api/users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReplaceRoles はユーザーのロール割り当てを置き換える。
// PUT /admin/api/users/{id}/roles
func (h *UserHandler) ReplaceRoles(w http.ResponseWriter, r *http.Request) {
	var req replaceRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.ReplaceRoles(r.Context(), chi.URLParam(r, "id"), req.RoleIDs); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListRoles はユーザーに割り当てられたロール一覧を返す。
// GET /admin/api/users/{id}/roles
func (h *UserHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]roleResponse, len(roles))
	for i, role := range roles {
		results[i] = toRoleResponse(role)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"roles": results})
}

// ListPermissions はユーザーの全ロールが持つパーミッションコードの和集合を返す。
// GET /admin/api/users/{id}/permissions
func (h *UserHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	// ユーザーの存在確認（不在なら404）
	if _, err := h.service.GetUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	codes, err := h.authz.ListPermissionCodes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"permission_codes": codes})
}

// --- ヘルパー関数 ---

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
		AddressID:   user.AddressID,
		IsStaff:     user.IsStaff,
		IsActive:    user.IsActive,
		IsSuperuser: user.IsSuperuser,
		LastLogin:   user.LastLogin,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

// parseBoolFilter はクエリ文字列のboolフィルタを解析する。
// "true"/"false"以外（空文字列を含む）はnil（フィルタなし）を返す。
func parseBoolFilter(value string) *bool {
	switch value {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	default:
		return nil
	}
}
