// Package ownership は保護者アカウントとウォッチの紐付けに基づくアクセス制御を提供する。
package ownership

import (
	"context"
	"fmt"

	"github.com/hitoshi/mimamori/internal/model"
)

// AccountFinder は所有権確認のためにアカウントを検索するインターフェース。
type AccountFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Gate はウォッチ単位の操作に対する所有権チェックを行う。
// 判定のたびにアカウントを再取得し、結果をキャッシュしない。
type Gate struct {
	accounts AccountFinder
}

// NewGate はGateを生成する。
func NewGate(accounts AccountFinder) *Gate {
	return &Gate{accounts: accounts}
}

// Authorize はuserIDのアカウントがserialNumberのウォッチを所有しているか確認する。
// アカウントが存在しない場合はUSER_NOT_FOUND、所有していない場合はNOT_WATCH_OWNERの
// APIErrorを返す。所有している場合はnilを返す。
func (g *Gate) Authorize(ctx context.Context, userID, serialNumber string) error {
	user, err := g.accounts.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}
	if !user.OwnsWatch(serialNumber) {
		return model.NewNotWatchOwnerError(serialNumber)
	}
	return nil
}
