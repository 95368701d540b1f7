package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/accountman/internal/model"
)

// 管理APIのミドルウェアチェーン（session → staff → ratelimit）を
// chiルーター上で結合して検証する。
func newChainTestServer(t *testing.T, user *model.User) http.Handler {
	t.Helper()

	sessionFinder := &mockSessionFinder{
		findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
			if id == "valid-session" {
				return &model.Session{ID: id, UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}, nil
			}
			return nil, nil
		},
	}
	userFinder := &mockUserFinder{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return user, nil
		},
	}
	rl := NewRateLimiter(testRateLimiterConfig())
	t.Cleanup(rl.Stop)

	r := chi.NewRouter()
	r.Route("/admin/api", func(r chi.Router) {
		r.Use(NewSessionMiddleware(sessionFinder))
		r.Use(NewStaffGateMiddleware(userFinder))
		r.Use(rl.GeneralMiddleware())
		r.Get("/users", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	return r
}

// スタッフユーザーがチェーン全体を通過できることを検証
func TestChain_StaffPassesThrough(t *testing.T) {
	srv := newChainTestServer(t, &model.User{ID: "u1", IsStaff: true, IsActive: true})

	req := httptest.NewRequest(http.MethodGet, "/admin/api/users", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "valid-session"})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

// セッションなしのリクエストがチェーンの先頭で止まることを検証
func TestChain_NoSession_Unauthorized(t *testing.T) {
	srv := newChainTestServer(t, &model.User{ID: "u1", IsStaff: true, IsActive: true})

	req := httptest.NewRequest(http.MethodGet, "/admin/api/users", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// セッションは有効だが非スタッフのユーザーが403になることを検証
func TestChain_NonStaff_Forbidden(t *testing.T) {
	srv := newChainTestServer(t, &model.User{ID: "u1", IsStaff: false, IsActive: true})

	req := httptest.NewRequest(http.MethodGet, "/admin/api/users", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "valid-session"})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
