package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/accountman/internal/admin"
	"github.com/hitoshi/accountman/internal/model"
	"github.com/hitoshi/accountman/internal/security"
)

// 住所更新で自由記述フィールドがサニタイズされることを検証
func TestAddressHandler_UpdateAddress_SanitizesInput(t *testing.T) {
	var gotInput admin.AddressInput
	svc := &mockAddressService{
		updateAddressFunc: func(ctx context.Context, id string, input admin.AddressInput) (*model.Address, error) {
			gotInput = input
			return &model.Address{ID: id, City: input.City}, nil
		},
	}
	h := NewAddressHandler(svc, security.NewInputSanitizer())

	req := requestWithURLParam(http.MethodPut, "/admin/api/addresses/a1", "id", "a1",
		`{"street":"<b>1-2-3</b>","city":"<script>x</script>渋谷区","country":"日本"}`)
	rec := httptest.NewRecorder()
	h.UpdateAddress(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotInput.Street != "1-2-3" {
		t.Errorf("street = %q, want 1-2-3", gotInput.Street)
	}
	if gotInput.City != "渋谷区" {
		t.Errorf("city = %q, want 渋谷区", gotInput.City)
	}
	if gotInput.Country != "日本" {
		t.Errorf("country = %q, want 日本", gotInput.Country)
	}
}

// 住所の手動登録が201で作成結果を返すことを検証
func TestAddressHandler_CreateAddress(t *testing.T) {
	svc := &mockAddressService{
		createAddressFunc: func(ctx context.Context, input admin.AddressInput) (*model.Address, error) {
			return &model.Address{ID: "a1", City: input.City, Country: input.Country}, nil
		},
	}
	h := NewAddressHandler(svc, security.NewInputSanitizer())

	req := httptest.NewRequest(http.MethodPost, "/admin/api/addresses",
		strings.NewReader(`{"city":"大阪市","country":"日本"}`))
	rec := httptest.NewRecorder()
	h.CreateAddress(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var body addressResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.ID != "a1" || body.City != "大阪市" {
		t.Errorf("unexpected address: %+v", body)
	}
}

// 存在しない住所の取得が404になることを検証
func TestAddressHandler_GetAddress_NotFound(t *testing.T) {
	svc := &mockAddressService{
		getAddressFunc: func(ctx context.Context, id string) (*model.Address, error) {
			return nil, model.NewAddressNotFoundError(id)
		},
	}
	h := NewAddressHandler(svc, security.NewInputSanitizer())

	req := requestWithURLParam(http.MethodGet, "/admin/api/addresses/missing", "id", "missing", "")
	rec := httptest.NewRecorder()
	h.GetAddress(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// 住所一覧の検索パラメータが渡ることを検証
func TestAddressHandler_ListAddresses(t *testing.T) {
	svc := &mockAddressService{
		listAddressesFunc: func(ctx context.Context, search string) ([]*model.Address, error) {
			if search != "Tokyo" {
				t.Errorf("search = %q, want Tokyo", search)
			}
			return []*model.Address{{ID: "a1", City: "Tokyo"}}, nil
		},
	}
	h := NewAddressHandler(svc, security.NewInputSanitizer())

	req := httptest.NewRequest(http.MethodGet, "/admin/api/addresses?q=Tokyo", nil)
	rec := httptest.NewRecorder()
	h.ListAddresses(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string][]addressResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body["addresses"]) != 1 || body["addresses"][0].City != "Tokyo" {
		t.Errorf("unexpected addresses: %v", body["addresses"])
	}
}
