package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/accountman/internal/account"
	"github.com/hitoshi/accountman/internal/admin"
	"github.com/hitoshi/accountman/internal/auth"
	"github.com/hitoshi/accountman/internal/authz"
	"github.com/hitoshi/accountman/internal/config"
	"github.com/hitoshi/accountman/internal/database"
	"github.com/hitoshi/accountman/internal/handler"
	"github.com/hitoshi/accountman/internal/logger"
	"github.com/hitoshi/accountman/internal/metrics"
	"github.com/hitoshi/accountman/internal/middleware"
	"github.com/hitoshi/accountman/internal/repository"
	"github.com/hitoshi/accountman/internal/security"
	"github.com/hitoshi/accountman/internal/worker/cleanup"
	"github.com/hitoshi/accountman/internal/worker/provision"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandCreateSuperuser:
		return runCreateSuperuser(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe は管理APIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	addressRepo := repository.NewPostgresAddressRepo(db)
	roleRepo := repository.NewPostgresRoleRepo(db)
	permRepo := repository.NewPostgresPermissionRepo(db)
	grantRepo := repository.NewPostgresGrantRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	startMetricsServer(cfg.MetricsPort, registry)

	// 4. 住所自動作成フックの初期化
	// ユーザー作成イベントをキュー経由で受け取り、空の住所を紐付ける。
	provisioner := provision.NewProvisioner(userRepo, addressRepo, collector, cfg.ProvisionQueueSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go provisioner.Start(ctx)

	// 5. ドメインサービスの初期化
	accountService := account.NewService(userRepo, roleRepo, provisioner, collector, cfg.BcryptCost)
	authService := auth.NewService(
		userRepo, sessionRepo, collector,
		time.Duration(cfg.SessionMaxAge)*time.Second,
	)
	authzService := authz.NewService(grantRepo)

	addressService := admin.NewAddressService(addressRepo)
	roleService := admin.NewRoleService(roleRepo, permRepo)
	permissionService := admin.NewPermissionService(permRepo)

	sanitizer := security.NewInputSanitizer()

	// 6. ルーターの構築
	// レート制限は設定のreq/min値をreq/secに変換して適用する
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.LoginRate = rate.Limit(float64(cfg.RateLimitLogin) / 60.0)
	rateLimiterCfg.LoginBurst = cfg.RateLimitLogin

	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		SessionFinder:     sessionRepo,
		UserFinder:        userRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		SiteConfig: handler.SiteConfig{
			SiteHeader:     cfg.SiteHeader,
			SiteTitle:      cfg.SiteTitle,
			SiteIndexTitle: cfg.SiteIndexTitle,
		},

		UserService:       accountService,
		AuthzService:      authzService,
		AddressService:    addressService,
		RoleService:       roleService,
		PermissionService: permissionService,

		Sanitizer: sanitizer,
	}

	router := handler.NewRouter(deps)

	// 7. 外側のミドルウェア（panic回復 → リクエストログ → ステータスメトリクス）
	var rootHandler http.Handler = router
	rootHandler = middleware.NewMetricsMiddleware(collector)(rootHandler)
	rootHandler = middleware.NewLoggingMiddleware(slog.Default())(rootHandler)
	rootHandler = middleware.NewRecoveryMiddleware()(rootHandler)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 住所未設定ユーザーの定期スイープと期限切れセッションの掃除を実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	addressRepo := repository.NewPostgresAddressRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	startMetricsServer(cfg.MetricsPort, registry)

	// 4. 住所自動作成スイーパーの初期化
	provisioner := provision.NewProvisioner(userRepo, addressRepo, collector, cfg.ProvisionQueueSize)

	// 5. セッション掃除ジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("sweep_interval", cfg.ProvisionSweepInterval),
	)

	// セッション掃除ジョブを1時間ごとにバックグラウンド実行
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("session cleanup job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupJob.Run(ctx); err != nil {
					slog.Error("session cleanup job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// 住所スイーパーをメインgoroutineで実行（ブロッキング）
	provisioner.RunSweeper(ctx, cfg.ProvisionSweepInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runCreateSuperuser は環境変数で指定されたスーパーユーザーを作成して終了する。
// SUPERUSER_EMAILとSUPERUSER_PASSWORDが必須。
// 作成後にスイープを1回実行し、空の住所を即座に紐付ける。
func runCreateSuperuser(cfg *config.Config) error {
	email := os.Getenv("SUPERUSER_EMAIL")
	password := os.Getenv("SUPERUSER_PASSWORD")
	if email == "" || password == "" {
		return fmt.Errorf("SUPERUSER_EMAIL and SUPERUSER_PASSWORD must be set")
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	userRepo := repository.NewPostgresUserRepo(db)
	addressRepo := repository.NewPostgresAddressRepo(db)
	roleRepo := repository.NewPostgresRoleRepo(db)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	provisioner := provision.NewProvisioner(userRepo, addressRepo, collector, cfg.ProvisionQueueSize)
	accountService := account.NewService(userRepo, roleRepo, provisioner, collector, cfg.BcryptCost)

	ctx := context.Background()

	user, err := accountService.CreateSuperuser(ctx, account.NewUser{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("failed to create superuser: %w", err)
	}

	// ワーカーを経由せず、住所の紐付けをその場で完了させる
	if err := provisioner.Sweep(ctx); err != nil {
		slog.Warn("address provisioning sweep failed",
			slog.String("error", err.Error()),
		)
	}

	slog.Info("superuser created",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// startMetricsServer はPrometheusスクレイプ用のHTTPサーバーをバックグラウンドで起動する。
func startMetricsServer(port string, gatherer prometheus.Gatherer) {
	go func() {
		addr := ":" + port
		slog.Info("metrics server starting", slog.String("addr", addr))
		if err := http.ListenAndServe(addr, metrics.SetupMetricsRoute(gatherer)); err != nil {
			slog.Error("metrics server error", slog.String("error", err.Error()))
		}
	}()
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
