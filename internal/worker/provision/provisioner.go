// Package provision はユーザー作成後フックを消費し、
// 空の住所レコードを自動作成してユーザーに紐付ける。
//
// フックの配送はインプロセスのバッファ付きチャネルで行い、
// 取りこぼし（キュー溢れ・プロセス再起動）は定期巡回で回収する。
// ユーザー作成と住所作成はアトミックではなく、結果整合で収束する。
package provision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/accountman/internal/model"
	"github.com/hitoshi/accountman/internal/repository"
)

// sweepBatchSize は1回の巡回で回収する住所未作成ユーザーの最大件数。
const sweepBatchSize = 100

// MetricsRecorder は住所自動作成メトリクスの記録インターフェース。
type MetricsRecorder interface {
	RecordAddressProvisioned()
	RecordProvisionFail()
}

// Provisioner はユーザー作成イベントを受け取り住所を自動作成するワーカー。
type Provisioner struct {
	userRepo    repository.UserRepository
	addressRepo repository.AddressRepository
	metrics     MetricsRecorder
	queue       chan string
}

// NewProvisioner はProvisionerを生成する。metricsはnilを許容する。
func NewProvisioner(userRepo repository.UserRepository, addressRepo repository.AddressRepository, metrics MetricsRecorder, queueSize int) *Provisioner {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Provisioner{
		userRepo:    userRepo,
		addressRepo: addressRepo,
		metrics:     metrics,
		queue:       make(chan string, queueSize),
	}
}

// PublishUserCreated はユーザー作成イベントをキューに投入する。
// キューが満杯の場合はブロックせずに破棄する（巡回が後で回収する）。
func (p *Provisioner) PublishUserCreated(userID string) {
	select {
	case p.queue <- userID:
	default:
		slog.Warn("住所作成キューが満杯のためイベントを破棄します",
			slog.String("user_id", userID),
		)
	}
}

// Start はキューの消費ループを開始する。ctxのキャンセルで停止する。
// 通常はgoroutineで起動する。
func (p *Provisioner) Start(ctx context.Context) {
	slog.Info("住所自動作成ワーカーを開始します")
	for {
		select {
		case <-ctx.Done():
			slog.Info("住所自動作成ワーカーを停止します")
			return
		case userID := <-p.queue:
			if err := p.provisionUser(ctx, userID); err != nil {
				slog.Error("住所の自動作成に失敗しました",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				if p.metrics != nil {
					p.metrics.RecordProvisionFail()
				}
			}
		}
	}
}

// RunSweeper は指定間隔で巡回を実行する。ctxのキャンセルで停止する。
func (p *Provisioner) RunSweeper(ctx context.Context, interval time.Duration) {
	slog.Info("住所作成の巡回を開始します", slog.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("住所作成の巡回を停止します")
			return
		case <-ticker.C:
			if err := p.Sweep(ctx); err != nil {
				slog.Error("住所作成の巡回に失敗しました", slog.String("error", err.Error()))
			}
		}
	}
}

// Sweep は住所未作成のユーザーを検索し、それぞれに住所を作成する。
// キュー溢れや再起動で取りこぼしたユーザーを回収する。
func (p *Provisioner) Sweep(ctx context.Context) error {
	users, err := p.userRepo.ListWithoutAddress(ctx, sweepBatchSize)
	if err != nil {
		return fmt.Errorf("住所未作成ユーザーの検索に失敗しました: %w", err)
	}

	for _, user := range users {
		if err := p.provisionUser(ctx, user.ID); err != nil {
			slog.Error("巡回での住所作成に失敗しました",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
			if p.metrics != nil {
				p.metrics.RecordProvisionFail()
			}
		}
	}

	if len(users) > 0 {
		slog.Info("巡回で住所を補填しました", slog.Int("count", len(users)))
	}
	return nil
}

// provisionUser は指定ユーザーに全フィールド空の住所を作成して紐付ける。
// ユーザーが削除済み、または既に住所を持つ場合は何もしない（冪等）。
func (p *Provisioner) provisionUser(ctx context.Context, userID string) error {
	user, err := p.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		// フック発行後に削除されたユーザー。何もしない。
		return nil
	}
	if user.AddressID != nil {
		return nil
	}

	now := time.Now()
	address := &model.Address{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.addressRepo.Create(ctx, address); err != nil {
		return fmt.Errorf("住所の作成に失敗しました: %w", err)
	}

	linked, err := p.userRepo.SetAddressID(ctx, userID, address.ID)
	if err != nil {
		// 住所行は残るがユーザーへの紐付けに失敗。次回巡回で再作成される。
		return fmt.Errorf("住所の紐付けに失敗しました: %w", err)
	}
	if !linked {
		// キュー消費と巡回が同一ユーザーを並行処理した場合、条件付きUPDATEで
		// 片方だけが勝つ。負けた側の住所行を削除して孤児を残さない。
		if err := p.addressRepo.DeleteByID(ctx, address.ID); err != nil {
			return fmt.Errorf("未使用の住所の削除に失敗しました: %w", err)
		}
		slog.Info("住所は別の処理で紐付け済みのため作成分を破棄しました",
			slog.String("user_id", userID),
			slog.String("address_id", address.ID),
		)
		return nil
	}

	slog.Info("住所を自動作成しました",
		slog.String("user_id", userID),
		slog.String("address_id", address.ID),
	)
	if p.metrics != nil {
		p.metrics.RecordAddressProvisioned()
	}
	return nil
}
