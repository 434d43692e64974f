package ownership

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/mimamori/internal/model"
)

// mockAccountFinder はテスト用のAccountFinderモック。
type mockAccountFinder struct {
	findByIDFunc func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockAccountFinder) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFunc(ctx, id)
}

func TestGate_Authorize(t *testing.T) {
	owner := &model.User{
		ID:            "user-1",
		Email:         "parent@example.com",
		SerialNumbers: []string{"SN-001", "SN-002"},
	}

	tests := []struct {
		name         string
		user         *model.User
		findErr      error
		serialNumber string
		wantErrCode  string
		wantErr      bool
	}{
		{
			name:         "所有しているウォッチは許可",
			user:         owner,
			serialNumber: "SN-001",
		},
		{
			name:         "所有していないウォッチは拒否",
			user:         owner,
			serialNumber: "SN-999",
			wantErr:      true,
			wantErrCode:  model.ErrCodeNotWatchOwner,
		},
		{
			name:         "紐付けゼロのアカウントは拒否",
			user:         &model.User{ID: "user-2", Email: "new@example.com"},
			serialNumber: "SN-001",
			wantErr:      true,
			wantErrCode:  model.ErrCodeNotWatchOwner,
		},
		{
			name:         "アカウントが存在しない",
			user:         nil,
			serialNumber: "SN-001",
			wantErr:      true,
			wantErrCode:  model.ErrCodeUserNotFound,
		},
		{
			name:         "検索エラーはAPIErrorにしない",
			findErr:      errors.New("db down"),
			serialNumber: "SN-001",
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(&mockAccountFinder{
				findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
					return tt.user, tt.findErr
				},
			})

			err := gate.Authorize(context.Background(), "user-1", tt.serialNumber)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Authorize failed: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("エラーが返らなかった")
			}

			var apiErr *model.APIError
			if tt.wantErrCode != "" {
				if !errors.As(err, &apiErr) {
					t.Fatalf("APIErrorでないエラーが返った: %v", err)
				}
				if apiErr.Code != tt.wantErrCode {
					t.Errorf("Code = %q, want %q", apiErr.Code, tt.wantErrCode)
				}
			} else if errors.As(err, &apiErr) {
				t.Errorf("内部エラーがAPIErrorに分類された: %v", err)
			}
		})
	}
}

func TestGate_Authorize_NoCaching(t *testing.T) {
	// 紐付け解除が即座に反映されるよう、判定のたびにアカウントを再取得すること。
	calls := 0
	serials := []string{"SN-001"}
	gate := NewGate(&mockAccountFinder{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			calls++
			return &model.User{ID: "user-1", SerialNumbers: serials}, nil
		},
	})

	ctx := context.Background()
	if err := gate.Authorize(ctx, "user-1", "SN-001"); err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}

	serials = nil
	if err := gate.Authorize(ctx, "user-1", "SN-001"); err == nil {
		t.Error("紐付け解除後も許可された")
	}

	if calls != 2 {
		t.Errorf("アカウント検索回数 = %d, want 2", calls)
	}
}
