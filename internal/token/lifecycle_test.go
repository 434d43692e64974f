package token

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/mimamori/internal/model"
)

// mockUserFinder はテスト用のUserFinderモック。
type mockUserFinder struct {
	findByIDFunc func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserFinder) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFunc(ctx, id)
}

func newTestLifecycle(t *testing.T, users UserFinder) *Lifecycle {
	t.Helper()
	codec, err := NewCodec("test-secret")
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	return NewLifecycle(codec, users, LifecycleConfig{
		AccessTTL:  time.Hour,
		RefreshTTL: 7 * 24 * time.Hour,
	})
}

func TestLifecycle_IssuePairAndVerifyAccess(t *testing.T) {
	lc := newTestLifecycle(t, nil)

	pair, err := lc.IssuePair("user-1", "parent@example.com")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("トークンペアに空のトークンが含まれる")
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Error("アクセストークンとリフレッシュトークンが同一")
	}

	identity, err := lc.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess failed: %v", err)
	}
	if identity.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", identity.UserID, "user-1")
	}
	if identity.Email != "parent@example.com" {
		t.Errorf("Email = %q, want %q", identity.Email, "parent@example.com")
	}
}

func TestLifecycle_VerifyAccess_RejectsRefreshToken(t *testing.T) {
	lc := newTestLifecycle(t, nil)

	pair, err := lc.IssuePair("user-1", "parent@example.com")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	if _, err := lc.VerifyAccess(pair.RefreshToken); !errors.Is(err, ErrTokenClassMismatch) {
		t.Errorf("error = %v, want ErrTokenClassMismatch", err)
	}
}

func TestLifecycle_RotateRefresh(t *testing.T) {
	users := &mockUserFinder{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			if id != "user-1" {
				return nil, nil
			}
			return &model.User{ID: "user-1", Email: "current@example.com"}, nil
		},
	}
	lc := newTestLifecycle(t, users)
	lc.now = func() time.Time { return time.Now().Add(-time.Minute) }

	pair, err := lc.IssuePair("user-1", "old@example.com")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	lc.now = time.Now
	rotated, err := lc.RotateRefresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("RotateRefresh failed: %v", err)
	}

	// 新しいペアのemailは保存済みアカウント情報を反映する。
	identity, err := lc.VerifyAccess(rotated.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess failed: %v", err)
	}
	if identity.Email != "current@example.com" {
		t.Errorf("Email = %q, want %q", identity.Email, "current@example.com")
	}
}

func TestLifecycle_RotateRefresh_RejectsAccessToken(t *testing.T) {
	users := &mockUserFinder{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			t.Error("アクセストークンの拒否前にユーザー検索が行われた")
			return nil, nil
		},
	}
	lc := newTestLifecycle(t, users)

	pair, err := lc.IssuePair("user-1", "parent@example.com")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	if _, err := lc.RotateRefresh(context.Background(), pair.AccessToken); !errors.Is(err, ErrTokenClassMismatch) {
		t.Errorf("error = %v, want ErrTokenClassMismatch", err)
	}
}

func TestLifecycle_RotateRefresh_UnknownSubject(t *testing.T) {
	users := &mockUserFinder{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
	}
	lc := newTestLifecycle(t, users)

	pair, err := lc.IssuePair("deleted-user", "gone@example.com")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	if _, err := lc.RotateRefresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrUnknownSubject) {
		t.Errorf("error = %v, want ErrUnknownSubject", err)
	}
}

func TestLifecycle_RotateRefresh_FinderError(t *testing.T) {
	users := &mockUserFinder{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return nil, errors.New("db down")
		},
	}
	lc := newTestLifecycle(t, users)

	pair, err := lc.IssuePair("user-1", "parent@example.com")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	_, err = lc.RotateRefresh(context.Background(), pair.RefreshToken)
	if err == nil {
		t.Fatal("検索エラーがエラーとして返らなかった")
	}
	if errors.Is(err, ErrUnknownSubject) {
		t.Error("検索エラーがErrUnknownSubjectに分類された")
	}
}

func TestExtractRefreshToken_Precedence(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		cookie    string
		bodyToken string
		want      string
	}{
		{
			name:      "ヘッダが最優先",
			header:    "Bearer header-token",
			cookie:    "cookie-token",
			bodyToken: "body-token",
			want:      "header-token",
		},
		{
			name:      "ヘッダがなければCookie",
			cookie:    "cookie-token",
			bodyToken: "body-token",
			want:      "cookie-token",
		},
		{
			name:      "ヘッダもCookieもなければボディ",
			bodyToken: "body-token",
			want:      "body-token",
		},
		{
			name: "どこにもなければ空",
			want: "",
		},
		{
			name:      "Bearer以外のヘッダは無視",
			header:    "Basic dXNlcjpwYXNz",
			bodyToken: "body-token",
			want:      "body-token",
		},
		{
			name:   "空のCookie値は無視",
			cookie: "",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/auth/refresh-token", strings.NewReader("{}"))
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: tt.cookie})
			}

			if got := ExtractRefreshToken(r, tt.bodyToken); got != tt.want {
				t.Errorf("ExtractRefreshToken = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "Bearer形式", header: "Bearer abc123", want: "abc123"},
		{name: "小文字のbearer", header: "bearer abc123", want: "abc123"},
		{name: "ヘッダなし", header: "", want: ""},
		{name: "スキームのみ", header: "Bearer", want: ""},
		{name: "Basic認証", header: "Basic dXNlcjpwYXNz", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := BearerToken(r); got != tt.want {
				t.Errorf("BearerToken = %q, want %q", got, tt.want)
			}
		})
	}
}
