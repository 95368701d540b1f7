package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/accountman/internal/admin"
	"github.com/hitoshi/accountman/internal/model"
	"github.com/hitoshi/accountman/internal/security"
)

// PermissionServiceInterface はパーミッションハンドラーが必要とするサービスインターフェース。
type PermissionServiceInterface interface {
	CreatePermission(ctx context.Context, input admin.PermissionInput) (*model.Permission, error)
	GetPermission(ctx context.Context, id string) (*model.Permission, error)
	ListPermissions(ctx context.Context, search string) ([]*model.Permission, error)
	UpdatePermission(ctx context.Context, id string, input admin.PermissionInput) (*model.Permission, error)
	DeletePermission(ctx context.Context, id string) error
}

// PermissionHandler はパーミッション管理のHTTPハンドラー。
type PermissionHandler struct {
	service   PermissionServiceInterface
	sanitizer security.InputSanitizerService
}

// NewPermissionHandler はPermissionHandlerを生成する。
func NewPermissionHandler(service PermissionServiceInterface, sanitizer security.InputSanitizerService) *PermissionHandler {
	return &PermissionHandler{
		service:   service,
		sanitizer: sanitizer,
	}
}

// permissionRequest はパーミッション作成・更新リクエストのボディ。
type permissionRequest struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// permissionResponse はパーミッション情報のAPIレスポンス。
type permissionResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (h *PermissionHandler) sanitizedInput(req permissionRequest) admin.PermissionInput {
	return admin.PermissionInput{
		Name:        h.sanitizer.Sanitize(req.Name),
		Code:        h.sanitizer.Sanitize(req.Code),
		Description: h.sanitizer.Sanitize(req.Description),
	}
}

// CreatePermission はパーミッションを作成する。
// POST /admin/api/permissions
func (h *PermissionHandler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	permission, err := h.service.CreatePermission(r.Context(), h.sanitizedInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toPermissionResponse(permission))
}

// ListPermissions は名前またはコードの部分一致でパーミッション一覧を返す。
// GET /admin/api/permissions?q=xxx
func (h *PermissionHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	permissions, err := h.service.ListPermissions(r.Context(), r.URL.Query().Get("q"))
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

// GetPermission はパーミッション詳細を取得する。
// GET /admin/api/permissions/{id}
func (h *PermissionHandler) GetPermission(w http.ResponseWriter, r *http.Request) {
	permission, err := h.service.GetPermission(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPermissionResponse(permission))
}

// UpdatePermission はパーミッションを更新する。
// PUT /admin/api/permissions/{id}
func (h *PermissionHandler) UpdatePermission(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	permission, err := h.service.UpdatePermission(r.Context(), chi.URLParam(r, "id"), h.sanitizedInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPermissionResponse(permission))
}

// DeletePermission はパーミッションを削除する。
// DELETE /admin/api/permissions/{id}
func (h *PermissionHandler) DeletePermission(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePermission(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toPermissionResponse はmodel.PermissionからAPIレスポンスに変換する。
func toPermissionResponse(permission *model.Permission) permissionResponse {
	return permissionResponse{
		ID:          permission.ID,
		Name:        permission.Name,
		Code:        permission.Code,
		Description: permission.Description,
		CreatedAt:   permission.CreatedAt,
		UpdatedAt:   permission.UpdatedAt,
	}
}
