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

// AddressServiceInterface は住所ハンドラーが必要とするサービスインターフェース。
type AddressServiceInterface interface {
	CreateAddress(ctx context.Context, input admin.AddressInput) (*model.Address, error)
	GetAddress(ctx context.Context, id string) (*model.Address, error)
	ListAddresses(ctx context.Context, search string) ([]*model.Address, error)
	UpdateAddress(ctx context.Context, id string, input admin.AddressInput) (*model.Address, error)
}

// AddressHandler は住所管理のHTTPハンドラー。
// 削除はユーザー削除に連動するため提供しない。
type AddressHandler struct {
	service   AddressServiceInterface
	sanitizer security.InputSanitizerService
}

// NewAddressHandler はAddressHandlerを生成する。
func NewAddressHandler(service AddressServiceInterface, sanitizer security.InputSanitizerService) *AddressHandler {
	return &AddressHandler{
		service:   service,
		sanitizer: sanitizer,
	}
}

// addressRequest は住所作成・更新リクエストのボディ。
type addressRequest struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

// addressResponse は住所情報のAPIレスポンス。
type addressResponse struct {
	ID        string    `json:"id"`
	Street    string    `json:"street"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	ZipCode   string    `json:"zip_code"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListAddresses は住所一覧を返す。市区町村または国名で部分一致検索できる。
// GET /admin/api/addresses?q=xxx
func (h *AddressHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.service.ListAddresses(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]addressResponse, len(addresses))
	for i, address := range addresses {
		results[i] = toAddressResponse(address)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"addresses": results})
}

// GetAddress は住所詳細を取得する。
// GET /admin/api/addresses/{id}
func (h *AddressHandler) GetAddress(w http.ResponseWriter, r *http.Request) {
	address, err := h.service.GetAddress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toAddressResponse(address))
}

// CreateAddress はユーザーに紐付かない住所を手動登録する。
// POST /admin/api/addresses
func (h *AddressHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	address, err := h.service.CreateAddress(r.Context(), h.sanitizedAddressInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toAddressResponse(address))
}

// UpdateAddress は住所を更新する。自由記述フィールドはサニタイズして保存する。
// PUT /admin/api/addresses/{id}
func (h *AddressHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	address, err := h.service.UpdateAddress(r.Context(), chi.URLParam(r, "id"), h.sanitizedAddressInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toAddressResponse(address))
}

// sanitizedAddressInput はリクエストボディの全フィールドをサニタイズして入力に変換する。
func (h *AddressHandler) sanitizedAddressInput(req addressRequest) admin.AddressInput {
	return admin.AddressInput{
		Street:  h.sanitizer.Sanitize(req.Street),
		City:    h.sanitizer.Sanitize(req.City),
		State:   h.sanitizer.Sanitize(req.State),
		ZipCode: h.sanitizer.Sanitize(req.ZipCode),
		Country: h.sanitizer.Sanitize(req.Country),
	}
}

// toAddressResponse はmodel.AddressからAPIレスポンスに変換する。
func toAddressResponse(address *model.Address) addressResponse {
	return addressResponse{
		ID:        address.ID,
		Street:    address.Street,
		City:      address.City,
		State:     address.State,
		ZipCode:   address.ZipCode,
		Country:   address.Country,
		CreatedAt: address.CreatedAt,
		UpdatedAt: address.UpdatedAt,
	}
}
