// Package account はユーザーアカウント管理のドメインロジックを提供する。
// ユーザーファクトリ（作成時のメール正規化・パスワードハッシュ化）と
// 管理サイト向けのCRUD操作を含む。
package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/accountman/internal/model"
	"github.com/hitoshi/accountman/internal/repository"
)

// CreatedHook はユーザー作成後フックの発行インターフェース。
// 永続化成功後に呼ばれ、住所の自動作成をトリガーする。
// 発行は投げっぱなし（fire-and-forget）で、失敗してもユーザー作成は成功扱い。
type CreatedHook interface {
	PublishUserCreated(userID string)
}

// MetricsRecorder はアカウント関連メトリクスの記録インターフェース。
type MetricsRecorder interface {
	RecordUserCreated()
	RecordSuperuserCreated()
}

// NewUser はユーザー作成の入力。
// フラグは「未指定」と「明示的にfalse」を区別するため*boolで保持する。
type NewUser struct {
	Email       string
	Password    string
	PhoneNumber string
	IsStaff     *bool
	IsActive    *bool
	IsSuperuser *bool
}

// UpdateUser はユーザー更新の入力。nilフィールドは変更しない部分更新。
type UpdateUser struct {
	Email       *string
	PhoneNumber *string
	IsStaff     *bool
	IsActive    *bool
	IsSuperuser *bool
}

// RoleFinder はロールの存在確認に必要な読み取りインターフェース。
type RoleFinder interface {
	FindByID(ctx context.Context, id string) (*model.Role, error)
}

// Service はアカウント管理のサービス層。
type Service struct {
	userRepo   repository.UserRepository
	roleRepo   RoleFinder
	hook       CreatedHook
	metrics    MetricsRecorder
	bcryptCost int
}

// NewService はServiceの新しいインスタンスを生成する。
// hookとmetricsはnilを許容する（テストや移行コマンドでの利用を想定）。
func NewService(userRepo repository.UserRepository, roleRepo RoleFinder, hook CreatedHook, metrics MetricsRecorder, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:   userRepo,
		roleRepo:   roleRepo,
		hook:       hook,
		metrics:    metrics,
		bcryptCost: bcryptCost,
	}
}

// NormalizeEmail はメールアドレスを正規化する。
// 前後の空白を除去し、ドメイン部のみを小文字化する。
// ローカル部の大文字小文字は保持する（重複判定はストアのlower(email)インデックスが行う）。
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}

// CreateUser はユーザーを作成する。
// メールアドレス未指定の場合は何も永続化せずにエラーを返す。
// 永続化成功後に作成フックを発行する（フックは非同期・ベストエフォート）。
func (s *Service) CreateUser(ctx context.Context, input NewUser) (*model.User, error) {
	if strings.TrimSpace(input.Email) == "" {
		return nil, model.NewEmailRequiredError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        NormalizeEmail(input.Email),
		PasswordHash: string(hash),
		IsStaff:      boolOrDefault(input.IsStaff, false),
		IsActive:     boolOrDefault(input.IsActive, true),
		IsSuperuser:  boolOrDefault(input.IsSuperuser, false),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if input.PhoneNumber != "" {
		phone := input.PhoneNumber
		user.PhoneNumber = &phone
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("ユーザーを作成しました",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
		slog.Bool("is_staff", user.IsStaff),
	)
	if s.metrics != nil {
		s.metrics.RecordUserCreated()
	}

	// 作成後フック: 住所の自動作成をトリガーする。
	// ユーザー作成とはアトミックではなく、結果整合で住所が付与される。
	if s.hook != nil {
		s.hook.PublishUserCreated(user.ID)
	}

	return user, nil
}

// CreateSuperuser はスーパーユーザーを作成する。
// is_staff / is_superuser / is_active を未指定ならtrueに補い、
// is_staffまたはis_superuserが明示的にfalseの場合は永続化前にエラーを返す。
func (s *Service) CreateSuperuser(ctx context.Context, input NewUser) (*model.User, error) {
	if input.IsStaff != nil && !*input.IsStaff {
		return nil, model.NewSuperuserFlagError("is_staff")
	}
	if input.IsSuperuser != nil && !*input.IsSuperuser {
		return nil, model.NewSuperuserFlagError("is_superuser")
	}

	truth := true
	input.IsStaff = &truth
	input.IsSuperuser = &truth
	if input.IsActive == nil {
		input.IsActive = &truth
	}

	user, err := s.CreateUser(ctx, input)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordSuperuserCreated()
	}

	return user, nil
}

// GetUser は指定IDのユーザーを取得する。見つからない場合はAPIErrorを返す。
func (s *Service) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(id)
	}
	return user, nil
}

// ListUsers は検索・フィルタ条件に一致するユーザーをメールアドレス昇順で返す。
func (s *Service) ListUsers(ctx context.Context, q repository.UserQuery) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// UpdateUser はユーザーの属性を部分更新する。
func (s *Service) UpdateUser(ctx context.Context, id string, input UpdateUser) (*model.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		if strings.TrimSpace(*input.Email) == "" {
			return nil, model.NewEmailRequiredError()
		}
		user.Email = NormalizeEmail(*input.Email)
	}
	if input.PhoneNumber != nil {
		if *input.PhoneNumber == "" {
			user.PhoneNumber = nil
		} else {
			user.PhoneNumber = input.PhoneNumber
		}
	}
	if input.IsStaff != nil {
		user.IsStaff = *input.IsStaff
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if input.IsSuperuser != nil {
		user.IsSuperuser = *input.IsSuperuser
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// SetPassword はユーザーのパスワードを再設定する。
func (s *Service) SetPassword(ctx context.Context, id, rawPassword string) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	user.PasswordHash = string(hash)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	slog.Info("パスワードを再設定しました", slog.String("user_id", id))
	return nil
}

// DeleteUser はユーザーを削除する。所有する住所も同時に削除される。
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.userRepo.DeleteByID(ctx, id); err != nil {
		return err
	}
	slog.Info("ユーザーを削除しました", slog.String("user_id", id))
	return nil
}

// ReplaceRoles はユーザーのロール割り当てを置き換える。
// 存在しないロールIDが含まれる場合は何も置き換えずにエラーを返す。
func (s *Service) ReplaceRoles(ctx context.Context, userID string, roleIDs []string) error {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}

	for _, roleID := range roleIDs {
		role, err := s.roleRepo.FindByID(ctx, roleID)
		if err != nil {
			return fmt.Errorf("ロールの確認に失敗しました: %w", err)
		}
		if role == nil {
			return model.NewRoleNotFoundError(roleID)
		}
	}

	return s.userRepo.ReplaceRoles(ctx, userID, roleIDs)
}

// ListRoles はユーザーに割り当てられたロールを返す。
func (s *Service) ListRoles(ctx context.Context, userID string) ([]*model.Role, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.userRepo.ListRoles(ctx, userID)
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
