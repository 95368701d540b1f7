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

// RoleService はロール管理のサービス層。
type RoleService struct {
	roleRepo repository.RoleRepository
	permRepo repository.PermissionRepository
}

// NewRoleService はRoleServiceを生成する。
func NewRoleService(roleRepo repository.RoleRepository, permRepo repository.PermissionRepository) *RoleService {
	return &RoleService{
		roleRepo: roleRepo,
		permRepo: permRepo,
	}
}

// CreateRole はロールを作成する。名前の重複はAPIErrorになる。
func (s *RoleService) CreateRole(ctx context.Context, name string) (*model.Role, error) {
	now := time.Now()
	role := &model.Role{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.roleRepo.Create(ctx, role); err != nil {
		return nil, err
	}

	slog.Info("ロールを作成しました",
		slog.String("role_id", role.ID),
		slog.String("name", role.Name),
	)
	return role, nil
}

// GetRole は指定IDのロールを取得する。見つからない場合はAPIErrorを返す。
func (s *RoleService) GetRole(ctx context.Context, id string) (*model.Role, error) {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ロールの取得に失敗しました: %w", err)
	}
	if role == nil {
		return nil, model.NewRoleNotFoundError(id)
	}
	return role, nil
}

// ListRoles は名前の部分一致でロールを検索する。
func (s *RoleService) ListRoles(ctx context.Context, search string) ([]*model.Role, error) {
	roles, err := s.roleRepo.List(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("ロール一覧の取得に失敗しました: %w", err)
	}
	return roles, nil
}

// UpdateRole はロール名を更新する。
func (s *RoleService) UpdateRole(ctx context.Context, id, name string) (*model.Role, error) {
	role, err := s.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}

	role.Name = name
	if err := s.roleRepo.Update(ctx, role); err != nil {
		return nil, err
	}

	return role, nil
}

// DeleteRole はロールを削除する。割り当ては連動して削除される。
func (s *RoleService) DeleteRole(ctx context.Context, id string) error {
	if _, err := s.GetRole(ctx, id); err != nil {
		return err
	}
	if err := s.roleRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("ロールの削除に失敗しました: %w", err)
	}
	slog.Info("ロールを削除しました", slog.String("role_id", id))
	return nil
}

// ReplacePermissions はロールのパーミッション集合を置き換える。
// 指定されたパーミッションIDの存在を検証してから置換する。
func (s *RoleService) ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	if _, err := s.GetRole(ctx, roleID); err != nil {
		return err
	}

	for _, permID := range permissionIDs {
		perm, err := s.permRepo.FindByID(ctx, permID)
		if err != nil {
			return fmt.Errorf("パーミッションの取得に失敗しました: %w", err)
		}
		if perm == nil {
			return model.NewPermissionNotFoundError(permID)
		}
	}

	return s.roleRepo.ReplacePermissions(ctx, roleID, permissionIDs)
}

// ListPermissions はロールに割り当てられたパーミッションを返す。
func (s *RoleService) ListPermissions(ctx context.Context, roleID string) ([]*model.Permission, error) {
	if _, err := s.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	return s.roleRepo.ListPermissions(ctx, roleID)
}
