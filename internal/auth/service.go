// Package auth は管理サイトのセッション認証を提供する。
// メールアドレスとパスワードによるログイン、ログアウト、
// セッションIDからの現在ユーザー解決を行う。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/accountman/internal/model"
	"github.com/hitoshi/accountman/internal/repository"
)

// MetricsRecorder はログイン関連メトリクスの記録インターフェース。
type MetricsRecorder interface {
	RecordLoginSuccess()
	RecordLoginFail()
}

// Service は認証のサービス層。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	metrics     MetricsRecorder
	maxAge      time.Duration
}

// NewService はServiceの新しいインスタンスを生成する。metricsはnilを許容する。
func NewService(userRepo repository.UserRepository, sessionRepo repository.SessionRepository, metrics MetricsRecorder, maxAge time.Duration) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		metrics:     metrics,
		maxAge:      maxAge,
	}
}

// Login はメールアドレスとパスワードを検証し、新しいセッションを作成する。
// ユーザー不在とパスワード不一致は同一のエラーを返す（存在の有無を漏らさない）。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		s.recordFail()
		return nil, nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("パスワード検証に失敗しました", slog.String("user_id", user.ID))
		s.recordFail()
		return nil, nil, model.NewInvalidCredentialsError()
	}

	if !user.IsActive {
		slog.Warn("無効化されたユーザーのログイン試行", slog.String("user_id", user.ID))
		s.recordFail()
		return nil, nil, model.NewInactiveUserError()
	}

	sessionID, err := generateSessionID()
	if err != nil {
		return nil, nil, fmt.Errorf("セッションIDの生成に失敗しました: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    user.ID,
		ExpiresAt: now.Add(s.maxAge),
		CreatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("セッションの作成に失敗しました: %w", err)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		// 最終ログイン日時の更新失敗はログイン自体を失敗させない
		slog.Warn("最終ログイン日時の更新に失敗しました",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	slog.Info("ログインしました", slog.String("user_id", user.ID))
	if s.metrics != nil {
		s.metrics.RecordLoginSuccess()
	}

	return session, user, nil
}

// Logout は指定セッションを削除する。存在しないセッションIDでもエラーにしない。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}
	return nil
}

// GetCurrentUser はセッションIDから現在のユーザーを解決する。
// セッションが無効・期限切れ、またはユーザーが削除済みの場合はnilを返す。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("セッションの取得に失敗しました: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return user, nil
}

func (s *Service) recordFail() {
	if s.metrics != nil {
		s.metrics.RecordLoginFail()
	}
}

// generateSessionID は暗号学的に安全な256bitのセッションIDを16進文字列で生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
