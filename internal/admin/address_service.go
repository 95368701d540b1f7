// Package admin は管理サイト向けの住所・ロール・パーミッション管理サービスを提供する。
// ユーザー管理はaccountパッケージ、権限照会はauthzパッケージが担当する。
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/accountman/internal/model"
	"github.com/hitoshi/accountman/internal/repository"
)

// AddressInput は住所作成・更新の入力。更新時は全フィールドで上書きする。
type AddressInput struct {
	Street  string
	City    string
	State   string
	ZipCode string
	Country string
}

// AddressService は住所管理のサービス層。
// 削除はユーザー削除に連動するため提供しない。
type AddressService struct {
	addressRepo repository.AddressRepository
}

// NewAddressService はAddressServiceを生成する。
func NewAddressService(addressRepo repository.AddressRepository) *AddressService {
	return &AddressService{addressRepo: addressRepo}
}

// CreateAddress はユーザーに紐付かない住所を作成する。
// 通常の住所はユーザー作成フックが自動作成するが、管理サイトからの手動登録も許可する。
func (s *AddressService) CreateAddress(ctx context.Context, input AddressInput) (*model.Address, error) {
	now := time.Now()
	address := &model.Address{
		ID:        uuid.New().String(),
		Street:    input.Street,
		City:      input.City,
		State:     input.State,
		ZipCode:   input.ZipCode,
		Country:   input.Country,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.addressRepo.Create(ctx, address); err != nil {
		return nil, fmt.Errorf("住所の作成に失敗しました: %w", err)
	}

	slog.Info("住所を作成しました", slog.String("address_id", address.ID))
	return address, nil
}

// GetAddress は指定IDの住所を取得する。見つからない場合はAPIErrorを返す。
func (s *AddressService) GetAddress(ctx context.Context, id string) (*model.Address, error) {
	address, err := s.addressRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("住所の取得に失敗しました: %w", err)
	}
	if address == nil {
		return nil, model.NewAddressNotFoundError(id)
	}
	return address, nil
}

// ListAddresses は市区町村または国名の部分一致で住所を検索する。
func (s *AddressService) ListAddresses(ctx context.Context, search string) ([]*model.Address, error) {
	addresses, err := s.addressRepo.List(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("住所一覧の取得に失敗しました: %w", err)
	}
	return addresses, nil
}

// UpdateAddress は住所の全フィールドを更新する。
func (s *AddressService) UpdateAddress(ctx context.Context, id string, input AddressInput) (*model.Address, error) {
	address, err := s.GetAddress(ctx, id)
	if err != nil {
		return nil, err
	}

	address.Street = input.Street
	address.City = input.City
	address.State = input.State
	address.ZipCode = input.ZipCode
	address.Country = input.Country

	if err := s.addressRepo.Update(ctx, address); err != nil {
		return nil, fmt.Errorf("住所の更新に失敗しました: %w", err)
	}

	slog.Info("住所を更新しました", slog.String("address_id", id))
	return address, nil
}
