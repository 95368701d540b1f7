package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/accountman/internal/model"
)

// UserFinder はスタッフ判定に必要なユーザー検索のインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// NewStaffGateMiddleware は管理サイトへのアクセスをスタッフのみに制限する
// ミドルウェアを返す。SessionMiddlewareの後に配置する。
// is_staff=falseまたはis_active=falseのユーザーには403 Forbiddenを返す。
// セッションが指すユーザーが削除済みの場合は401を返す。
func NewStaffGateMiddleware(userFinder UserFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := userFinder.FindByID(r.Context(), userID)
			if err != nil {
				slog.Error("failed to find user for staff gate",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if user == nil {
				// セッションは有効だがユーザーが削除されている
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if !user.IsStaff || !user.IsActive {
				slog.Warn("non-staff access to admin rejected",
					slog.String("user_id", userID),
					slog.Bool("is_staff", user.IsStaff),
					slog.Bool("is_active", user.IsActive),
				)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
