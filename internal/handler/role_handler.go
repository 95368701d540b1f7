package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/accountman/internal/model"
	"github.com/hitoshi/accountman/internal/security"
)

// RoleServiceInterface はロールハンドラーが必要とするサービスインターフェース。
type RoleServiceInterface interface {
	CreateRole(ctx context.Context, name string) (*model.Role, error)
	GetRole(ctx context.Context, id string) (*model.Role, error)
	ListRoles(ctx context.Context, search string) ([]*model.Role, error)
	UpdateRole(ctx context.Context, id, name string) (*model.Role, error)
	DeleteRole(ctx context.Context, id string) error
	ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error
	ListPermissions(ctx context.Context, roleID string) ([]*model.Permission, error)
}

// RoleHandler はロール管理のHTTPハンドラー。
type RoleHandler struct {
	service   RoleServiceInterface
	sanitizer security.InputSanitizerService
}

// NewRoleHandler はRoleHandlerを生成する。
func NewRoleHandler(service RoleServiceInterface, sanitizer security.InputSanitizerService) *RoleHandler {
	return &RoleHandler{
		service:   service,
		sanitizer: sanitizer,
	}
}

// roleRequest はロール作成・更新リクエストのボディ。
type roleRequest struct {
	Name string `json:"name"`
}

// replacePermissionsRequest はパーミッション割り当て置換リクエストのボディ。
type replacePermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids"`
}

// roleResponse はロール情報のAPIレスポンス。
type roleResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRole はロールを作成する。
// POST /admin/api/roles
func (h *RoleHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	role, err := h.service.CreateRole(r.Context(), h.sanitizer.Sanitize(req.Name))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toRoleResponse(role))
}

// ListRoles は名前の部分一致でロール一覧を返す。
// GET /admin/api/roles?q=xxx
func (h *RoleHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context(), r.URL.Query().Get("q"))
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

// GetRole はロール詳細を取得する。
// GET /admin/api/roles/{id}
func (h *RoleHandler) GetRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.GetRole(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toRoleResponse(role))
}

// UpdateRole はロール名を更新する。
// PUT /admin/api/roles/{id}
func (h *RoleHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	role, err := h.service.UpdateRole(r.Context(), chi.URLParam(r, "id"), h.sanitizer.Sanitize(req.Name))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toRoleResponse(role))
}

// DeleteRole はロールを削除する。
// DELETE /admin/api/roles/{id}
func (h *RoleHandler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRole(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReplacePermissions はロールのパーミッション集合を置き換える。
// PUT /admin/api/roles/{id}/permissions
func (h *RoleHandler) ReplacePermissions(w http.ResponseWriter, r *http.Request) {
	var req replacePermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.ReplacePermissions(r.Context(), chi.URLParam(r, "id"), req.PermissionIDs); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListPermissions はロールに割り当てられたパーミッション一覧を返す。
// GET /admin/api/roles/{id}/permissions
func (h *RoleHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	permissions, err := h.service.ListPermissions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]permissionResponse, len(permissions))
	for i, permission := range permissions {
		results[i] = toPermissionResponse(permission)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"permissions": results})
}

// toRoleResponse はmodel.RoleからAPIレスポンスに変換する。
func toRoleResponse(role *model.Role) roleResponse {
	return roleResponse{
		ID:        role.ID,
		Name:      role.Name,
		CreatedAt: role.CreatedAt,
		UpdatedAt: role.UpdatedAt,
	}
}
