package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/accountman/internal/middleware"
	"github.com/hitoshi/accountman/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	UserFinder        middleware.UserFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// サイト表示設定
	SiteConfig SiteConfig

	// 管理API
	UserService       UserServiceInterface
	AuthzService      AuthzServiceInterface
	AddressService    AddressServiceInterface
	RoleService       RoleServiceInterface
	PermissionService PermissionServiceInterface

	// 入力サニタイズ
	Sanitizer security.InputSanitizerService
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	SecurityHeaders → CORS → CSRF → [管理API: Session → StaffGate → RateLimit(General)]
//
// ログイン（/admin/login）はセッション不要のため認証チェーンの外に置き、
// IP単位のログイン専用レート制限のみを適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	siteHandler := NewSiteHandler(deps.SiteConfig)
	userHandler := NewUserHandler(deps.UserService, deps.AuthzService)
	addressHandler := NewAddressHandler(deps.AddressService, deps.Sanitizer)
	roleHandler := NewRoleHandler(deps.RoleService, deps.Sanitizer)
	permissionHandler := NewPermissionHandler(deps.PermissionService, deps.Sanitizer)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	r.Route("/admin", func(r chi.Router) {
		// ログイン（IP単位のレート制限のみ）
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
		r.Get("/site", siteHandler.GetSite)

		// --- スタッフ認証が必要な管理API ---
		// ミドルウェアスタック: Session → StaffGate → RateLimit(General)
		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
			r.Use(middleware.NewStaffGateMiddleware(deps.UserFinder))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			// ユーザー管理
			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.ListUsers)
				r.Post("/", userHandler.CreateUser)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", userHandler.GetUser)
					r.Patch("/", userHandler.UpdateUser)
					r.Delete("/", userHandler.DeleteUser)
					r.Put("/password", userHandler.SetPassword)
					r.Get("/roles", userHandler.ListRoles)
					r.Put("/roles", userHandler.ReplaceRoles)
					r.Get("/permissions", userHandler.ListPermissions)
				})
			})

			// 住所管理
			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", addressHandler.ListAddresses)
				r.Post("/", addressHandler.CreateAddress)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", addressHandler.GetAddress)
					r.Put("/", addressHandler.UpdateAddress)
				})
			})

			// ロール管理
			r.Route("/roles", func(r chi.Router) {
				r.Get("/", roleHandler.ListRoles)
				r.Post("/", roleHandler.CreateRole)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", roleHandler.GetRole)
					r.Put("/", roleHandler.UpdateRole)
					r.Delete("/", roleHandler.DeleteRole)
					r.Get("/permissions", roleHandler.ListPermissions)
					r.Put("/permissions", roleHandler.ReplacePermissions)
				})
			})

			// パーミッション管理
			r.Route("/permissions", func(r chi.Router) {
				r.Get("/", permissionHandler.ListPermissions)
				r.Post("/", permissionHandler.CreatePermission)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", permissionHandler.GetPermission)
					r.Put("/", permissionHandler.UpdatePermission)
					r.Delete("/", permissionHandler.DeletePermission)
				})
			})
		})
	})

	return r
}
