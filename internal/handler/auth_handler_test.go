package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/mimamori/internal/model"
	"github.com/hitoshi/mimamori/internal/token"
)

// mockAuthService はテスト用のAuthServiceInterfaceモック。
type mockAuthService struct {
	registerFunc func(ctx context.Context, name, email, password string) (*model.User, *token.Pair, error)
	loginFunc    func(ctx context.Context, email, password string) (*model.User, *token.Pair, error)
}

func (m *mockAuthService) Register(ctx context.Context, name, email, password string) (*model.User, *token.Pair, error) {
	return m.registerFunc(ctx, name, email, password)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.User, *token.Pair, error) {
	return m.loginFunc(ctx, email, password)
}

// mockRotator はテスト用のRefreshRotatorモック。
type mockRotator struct {
	rotateFunc func(ctx context.Context, raw string) (*token.Pair, error)
}

func (m *mockRotator) RotateRefresh(ctx context.Context, raw string) (*token.Pair, error) {
	return m.rotateFunc(ctx, raw)
}

func testAuthHandler(service AuthServiceInterface, rotator RefreshRotator) *AuthHandler {
	return NewAuthHandler(service, rotator, AuthHandlerConfig{
		CookieSecure:        true,
		RefreshCookieMaxAge: int((7 * 24 * time.Hour).Seconds()),
	})
}

func testUser() *model.User {
	return &model.User{
		ID:            "user-1",
		Name:          "花子",
		Email:         "hanako@example.com",
		SerialNumbers: []string{"WATCH-1"},
		CreatedAt:     time.Now(),
	}
}

func testPair() *token.Pair {
	return &token.Pair{AccessToken: "access-xyz", RefreshToken: "refresh-xyz"}
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == token.RefreshCookieName {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Register(t *testing.T) {
	service := &mockAuthService{
		registerFunc: func(ctx context.Context, name, email, password string) (*model.User, *token.Pair, error) {
			return testUser(), testPair(), nil
		},
	}
	h := testAuthHandler(service, nil)

	body, _ := json.Marshal(map[string]string{
		"name": "花子", "email": "hanako@example.com", "password": "secret123",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var resp tokenPairResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスのデコードに失敗: %v", err)
	}
	if resp.Token != "access-xyz" || resp.RefreshToken != "refresh-xyz" {
		t.Errorf("トークンペアが一致しない: %+v", resp)
	}
	if resp.User == nil || resp.User.Email != "hanako@example.com" {
		t.Errorf("ユーザー情報が一致しない: %+v", resp.User)
	}

	cookie := refreshCookie(t, rec)
	if cookie == nil {
		t.Fatal("リフレッシュトークンCookieが設定されていない")
	}
	if cookie.Value != "refresh-xyz" {
		t.Errorf("cookie value = %q", cookie.Value)
	}
	if !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteStrictMode {
		t.Errorf("Cookie属性が不正: HttpOnly=%v Secure=%v SameSite=%v",
			cookie.HttpOnly, cookie.Secure, cookie.SameSite)
	}
}

func TestAuthHandler_Register_EmailInUse(t *testing.T) {
	service := &mockAuthService{
		registerFunc: func(ctx context.Context, name, email, password string) (*model.User, *token.Pair, error) {
			return nil, nil, model.NewEmailInUseError()
		},
	}
	h := testAuthHandler(service, nil)

	body, _ := json.Marshal(map[string]string{"name": "x", "email": "dup@example.com", "password": "p"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	service := &mockAuthService{
		loginFunc: func(ctx context.Context, email, password string) (*model.User, *token.Pair, error) {
			return nil, nil, model.NewInvalidCredentialsError()
		},
	}
	h := testAuthHandler(service, nil)

	body, _ := json.Marshal(map[string]string{"email": "hanako@example.com", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if refreshCookie(t, rec) != nil {
		t.Error("ログイン失敗時にCookieが設定された")
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := testAuthHandler(&mockAuthService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	h := testAuthHandler(&mockAuthService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	cookie := refreshCookie(t, rec)
	if cookie == nil {
		t.Fatal("Cookieクリアが設定されていない")
	}
	if cookie.Value != "" || cookie.MaxAge != -1 {
		t.Errorf("Cookieがクリアされていない: value=%q maxAge=%d", cookie.Value, cookie.MaxAge)
	}
}

func TestAuthHandler_RefreshToken(t *testing.T) {
	t.Run("Cookieからのトークンで再発行", func(t *testing.T) {
		var gotRaw string
		rotator := &mockRotator{
			rotateFunc: func(ctx context.Context, raw string) (*token.Pair, error) {
				gotRaw = raw
				return &token.Pair{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
			},
		}
		h := testAuthHandler(&mockAuthService{}, rotator)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh-token", nil)
		req.AddCookie(&http.Cookie{Name: token.RefreshCookieName, Value: "cookie-refresh"})
		rec := httptest.NewRecorder()
		h.RefreshToken(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if gotRaw != "cookie-refresh" {
			t.Errorf("検証に渡されたトークン = %q, want cookie-refresh", gotRaw)
		}

		cookie := refreshCookie(t, rec)
		if cookie == nil || cookie.Value != "new-refresh" {
			t.Error("新しいリフレッシュトークンがCookieに設定されていない")
		}
	})

	t.Run("ヘッダがCookieより優先される", func(t *testing.T) {
		var gotRaw string
		rotator := &mockRotator{
			rotateFunc: func(ctx context.Context, raw string) (*token.Pair, error) {
				gotRaw = raw
				return testPair(), nil
			},
		}
		h := testAuthHandler(&mockAuthService{}, rotator)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh-token", nil)
		req.Header.Set("Authorization", "Bearer header-refresh")
		req.AddCookie(&http.Cookie{Name: token.RefreshCookieName, Value: "cookie-refresh"})
		rec := httptest.NewRecorder()
		h.RefreshToken(rec, req)

		if gotRaw != "header-refresh" {
			t.Errorf("検証に渡されたトークン = %q, want header-refresh", gotRaw)
		}
	})

	t.Run("ボディのトークンで再発行", func(t *testing.T) {
		var gotRaw string
		rotator := &mockRotator{
			rotateFunc: func(ctx context.Context, raw string) (*token.Pair, error) {
				gotRaw = raw
				return testPair(), nil
			},
		}
		h := testAuthHandler(&mockAuthService{}, rotator)

		body, _ := json.Marshal(map[string]string{"refreshToken": "body-refresh"})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh-token", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		h.RefreshToken(rec, req)

		if gotRaw != "body-refresh" {
			t.Errorf("検証に渡されたトークン = %q, want body-refresh", gotRaw)
		}
	})

	t.Run("トークンなしは401", func(t *testing.T) {
		h := testAuthHandler(&mockAuthService{}, &mockRotator{
			rotateFunc: func(ctx context.Context, raw string) (*token.Pair, error) {
				t.Error("トークンなしで検証が呼ばれた")
				return nil, nil
			},
		})

		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh-token", nil)
		rec := httptest.NewRecorder()
		h.RefreshToken(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("検証失敗は種別によらず401", func(t *testing.T) {
		verifyErrs := []error{
			token.ErrTokenMalformed,
			token.ErrTokenExpired,
			token.ErrTokenClassMismatch,
			token.ErrUnknownSubject,
		}
		for _, verifyErr := range verifyErrs {
			rotator := &mockRotator{
				rotateFunc: func(ctx context.Context, raw string) (*token.Pair, error) {
					return nil, verifyErr
				},
			}
			h := testAuthHandler(&mockAuthService{}, rotator)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh-token", nil)
			req.AddCookie(&http.Cookie{Name: token.RefreshCookieName, Value: "bad"})
			rec := httptest.NewRecorder()
			h.RefreshToken(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("%v: status = %d, want 401", verifyErr, rec.Code)
			}

			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("レスポンスがJSONでない: %v", err)
			}
			if body["code"] != model.ErrCodeInvalidRefreshToken {
				t.Errorf("%v: code = %q, want %q", verifyErr, body["code"], model.ErrCodeInvalidRefreshToken)
			}
		}
	})
}
