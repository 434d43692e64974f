// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/mimamori/internal/model"
)

// 一意制約違反を表すエラー。呼び出し側でユーザー向けエラーに変換する。
var (
	// ErrDuplicateEmail はメールアドレスの重複登録を表す。
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateLink は同一ユーザーによるウォッチの重複紐付けを表す。
	ErrDuplicateLink = errors.New("watch already linked")
)

// UserRepository は保護者アカウントの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを紐付けシリアル番号込みで取得する。
	// 見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスが重複している場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile はユーザーの表示名とプロフィール画像URLを更新する。
	UpdateProfile(ctx context.Context, id, name, photoURL string) error

	// AddWatchLink はユーザーにウォッチを紐付ける。
	// 同一ユーザーへの重複紐付けの場合はErrDuplicateLinkを返す。
	AddWatchLink(ctx context.Context, userID, serialNumber string) error

	// DeleteByID は指定IDのユーザーを削除する。紐付けはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// WatchDataRepository はウォッチテレメトリの永続化インターフェース。
type WatchDataRepository interface {
	// Create はテレメトリレコードを作成する。SeqとCreatedAtはDB側で採番される。
	Create(ctx context.Context, data *model.WatchData) error

	// FindLatestBySerial はシリアル番号の最新レコードを取得する。
	// 同時刻のレコードは挿入順の新しいものを優先する。見つからない場合はnilを返す。
	FindLatestBySerial(ctx context.Context, serialNumber string) (*model.WatchData, error)

	// CountBySerial はシリアル番号に紐づくレコード数を返す。
	CountBySerial(ctx context.Context, serialNumber string) (int, error)

	// DeleteOldest はシリアル番号に紐づく最古のレコードをn件削除し、削除件数を返す。
	DeleteOldest(ctx context.Context, serialNumber string, n int) (int, error)

	// DeleteOlderThan はcutoffより古いレコードを全シリアル横断で削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AudioRepository は録音音声の永続化インターフェース。
type AudioRepository interface {
	// Create は録音音声レコードを作成する。SeqとCreatedAtはDB側で採番される。
	Create(ctx context.Context, audio *model.RecordedAudio) error

	// FindLatestBySerial はシリアル番号の最新レコードを音声データ抜きで取得する。
	// 見つからない場合はnilを返す。
	FindLatestBySerial(ctx context.Context, serialNumber string) (*model.RecordedAudio, error)

	// FindByID は指定IDのレコードを音声データ込みで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.RecordedAudio, error)

	// ListUnclassified は感情分類が未実施のレコードを古い順に取得する。
	ListUnclassified(ctx context.Context, limit int) ([]*model.RecordedAudio, error)

	// UpdateClassification は感情分類の結果を記録する。
	UpdateClassification(ctx context.Context, id, emotion string, confidence float64, classifiedAt time.Time) error

	// CountBySerial はシリアル番号に紐づくレコード数を返す。
	CountBySerial(ctx context.Context, serialNumber string) (int, error)

	// DeleteOldest はシリアル番号に紐づく最古のレコードをn件削除し、削除件数を返す。
	DeleteOldest(ctx context.Context, serialNumber string, n int) (int, error)

	// DeleteOlderThan はcutoffより古いレコードを全シリアル横断で削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ZoneRepository は許可エリア定義の永続化インターフェース。
type ZoneRepository interface {
	// Create は許可エリアを作成する。
	Create(ctx context.Context, zone *model.AllowedZone) error

	// FindByID は指定IDの許可エリアを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.AllowedZone, error)

	// ListBySerial はシリアル番号の許可エリア一覧を作成日時の昇順で返す。
	ListBySerial(ctx context.Context, serialNumber string) ([]*model.AllowedZone, error)

	// DeleteByID は指定IDの許可エリアを削除する。削除件数を返す。
	DeleteByID(ctx context.Context, id string) (int64, error)
}
