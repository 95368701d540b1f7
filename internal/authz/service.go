// Package authz はユーザー→ロール→パーミッションのメンバーシップ照会を提供する。
// キャッシュや拒否（deny）ルールは持たない。割り当ての変更が即座に照会結果へ反映される。
package authz

import (
	"context"
	"fmt"

	"github.com/hitoshi/accountman/internal/repository"
)

// Service は権限照会のサービス層。
type Service struct {
	grantRepo repository.GrantRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(grantRepo repository.GrantRepository) *Service {
	return &Service{grantRepo: grantRepo}
}

// HasRole はユーザーが指定名のロールを持つかを返す。
// 存在しないユーザーIDに対してはエラーではなくfalseを返す。
func (s *Service) HasRole(ctx context.Context, userID, roleName string) (bool, error) {
	ok, err := s.grantRepo.HasRole(ctx, userID, roleName)
	if err != nil {
		return false, fmt.Errorf("ロール照会に失敗しました: %w", err)
	}
	return ok, nil
}

// HasPermission はユーザーのいずれかのロールが指定コードの
// パーミッションを含むかを返す。
// 存在しないユーザーIDに対してはエラーではなくfalseを返す。
func (s *Service) HasPermission(ctx context.Context, userID, code string) (bool, error) {
	ok, err := s.grantRepo.HasPermission(ctx, userID, code)
	if err != nil {
		return false, fmt.Errorf("パーミッション照会に失敗しました: %w", err)
	}
	return ok, nil
}

// ListPermissionCodes はユーザーの全ロールが持つパーミッションコードの
// 重複なし和集合をコード昇順で返す。ロール未割り当てのユーザーには空集合を返す。
func (s *Service) ListPermissionCodes(ctx context.Context, userID string) ([]string, error) {
	codes, err := s.grantRepo.ListPermissionCodes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("パーミッション一覧の取得に失敗しました: %w", err)
	}
	if codes == nil {
		codes = []string{}
	}
	return codes, nil
}
