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

// PermissionInput はパーミッション作成・更新の入力。
type PermissionInput struct {
	Name        string
	Code        string
	Description string
}

// PermissionService はパーミッション管理のサービス層。
type PermissionService struct {
	permRepo repository.PermissionRepository
}

// NewPermissionService はPermissionServiceを生成する。
func NewPermissionService(permRepo repository.PermissionRepository) *PermissionService {
	return &PermissionService{permRepo: permRepo}
}

// CreatePermission はパーミッションを作成する。コードの重複はAPIErrorになる。
func (s *PermissionService) CreatePermission(ctx context.Context, input PermissionInput) (*model.Permission, error) {
	now := time.Now()
	permission := &model.Permission{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Code:        input.Code,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.permRepo.Create(ctx, permission); err != nil {
		return nil, err
	}

	slog.Info("パーミッションを作成しました",
		slog.String("permission_id", permission.ID),
		slog.String("code", permission.Code),
	)
	return permission, nil
}

// GetPermission は指定IDのパーミッションを取得する。見つからない場合はAPIErrorを返す。
func (s *PermissionService) GetPermission(ctx context.Context, id string) (*model.Permission, error) {
	permission, err := s.permRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("パーミッションの取得に失敗しました: %w", err)
	}
	if permission == nil {
		return nil, model.NewPermissionNotFoundError(id)
	}
	return permission, nil
}

// ListPermissions は名前またはコードの部分一致でパーミッションを検索する。
func (s *PermissionService) ListPermissions(ctx context.Context, search string) ([]*model.Permission, error) {
	permissions, err := s.permRepo.List(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("パーミッション一覧の取得に失敗しました: %w", err)
	}
	return permissions, nil
}

// UpdatePermission はパーミッションを更新する。
func (s *PermissionService) UpdatePermission(ctx context.Context, id string, input PermissionInput) (*model.Permission, error) {
	permission, err := s.GetPermission(ctx, id)
	if err != nil {
		return nil, err
	}

	permission.Name = input.Name
	permission.Code = input.Code
	permission.Description = input.Description

	if err := s.permRepo.Update(ctx, permission); err != nil {
		return nil, err
	}

	return permission, nil
}

// DeletePermission はパーミッションを削除する。ロールへの割り当ては連動して削除される。
func (s *PermissionService) DeletePermission(ctx context.Context, id string) error {
	if _, err := s.GetPermission(ctx, id); err != nil {
		return err
	}
	if err := s.permRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("パーミッションの削除に失敗しました: %w", err)
	}
	slog.Info("パーミッションを削除しました", slog.String("permission_id", id))
	return nil
}
