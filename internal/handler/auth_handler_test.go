package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/accountman/internal/model"
)

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	loginFunc          func(ctx context.Context, email, password string) (*model.Session, *model.User, error)
	logoutFunc         func(ctx context.Context, sessionID string) error
	getCurrentUserFunc func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
	return m.loginFunc(ctx, email, password)
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	return m.logoutFunc(ctx, sessionID)
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	return m.getCurrentUserFunc(ctx, sessionID)
}

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		CookieSecure:  false,
		SessionMaxAge: 86400,
	}
}

// ログイン成功でセッションCookieが設定されることを検証
func TestAuthHandler_Login_SetsSessionCookie(t *testing.T) {
	svc := &mockAuthService{
		loginFunc: func(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
			return &model.Session{ID: "new-session", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)},
				&model.User{ID: "u1", Email: email, IsStaff: true}, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/admin/login",
		strings.NewReader(`{"email":"staff@example.com","password":"pw"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	cookies := rec.Result().Cookies()
	var sessionCookie *http.Cookie
	for _, c := range cookies {
		if c.Name == sessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("session cookie not set")
	}
	if sessionCookie.Value != "new-session" {
		t.Errorf("cookie value = %q, want new-session", sessionCookie.Value)
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["email"] != "staff@example.com" {
		t.Errorf("email = %v, want staff@example.com", body["email"])
	}
}

// 認証失敗が401の統一エラーフォーマットで返ることを検証
func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	svc := &mockAuthService{
		loginFunc: func(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
			return nil, nil, model.NewInvalidCredentialsError()
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/admin/login",
		strings.NewReader(`{"email":"x@example.com","password":"wrong"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}

	var body apiErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidCredentials)
	}
}

// 無効化されたユーザーのログインが403になることを検証
func TestAuthHandler_Login_InactiveUser(t *testing.T) {
	svc := &mockAuthService{
		loginFunc: func(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
			return nil, nil, model.NewInactiveUserError()
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/admin/login",
		strings.NewReader(`{"email":"disabled@example.com","password":"pw"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

// 不正なJSONボディが400になることを検証
func TestAuthHandler_Login_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader("not-json"))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// ログアウトでセッションCookieがクリアされることを検証
func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	loggedOut := ""
	svc := &mockAuthService{
		logoutFunc: func(ctx context.Context, sessionID string) error {
			loggedOut = sessionID
			return nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/admin/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-1"})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if loggedOut != "sess-1" {
		t.Errorf("logged out session = %q, want sess-1", loggedOut)
	}

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("session cookie should be cleared with negative MaxAge")
	}
}

// Meが現在のユーザー情報を返すことを検証
func TestAuthHandler_Me(t *testing.T) {
	svc := &mockAuthService{
		getCurrentUserFunc: func(ctx context.Context, sessionID string) (*model.User, error) {
			if sessionID == "valid" {
				return &model.User{ID: "u1", Email: "staff@example.com", IsStaff: true, IsSuperuser: true}, nil
			}
			return nil, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/admin/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "valid"})
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["id"] != "u1" || body["is_superuser"] != true {
		t.Errorf("unexpected body: %v", body)
	}

	// 無効なセッションは401
	req = httptest.NewRequest(http.MethodGet, "/admin/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "invalid"})
	rec = httptest.NewRecorder()
	h.Me(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
