// Package retention はウォッチごとの保存レコード数の上限を維持する。
// 上限を超えた分は作成日時の古い順に削除される。
package retention

import (
	"context"
	"fmt"
	"log/slog"
)

// Pruner は保持数制御の対象となるストアのインターフェース。
// watch_dataとrecorded_audioのリポジトリがそれぞれ実装する。
type Pruner interface {
	// CountBySerial はシリアル番号に紐づくレコード数を返す。
	CountBySerial(ctx context.Context, serialNumber string) (int, error)
	// DeleteOldest はシリアル番号に紐づく最古のレコードをn件削除し、削除件数を返す。
	// レコードが存在しない場合は0件削除として正常に返る。
	DeleteOldest(ctx context.Context, serialNumber string, n int) (int, error)
}

// EvictionRecorder は保持上限超過による削除のメトリクス記録インターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type EvictionRecorder interface {
	RecordRetentionEviction(store string, count int)
}

// Enforcer は保存直後に呼び出され、シリアル番号ごとのレコード数を上限以内に戻す。
// storeはメトリクスのラベルに使うストア名（"watch_data"など）。
type Enforcer struct {
	cap      int
	store    string
	recorder EvictionRecorder
	logger   *slog.Logger
}

// NewEnforcer はEnforcerを生成する。capは1以上であること。
func NewEnforcer(cap int, store string, recorder EvictionRecorder, logger *slog.Logger) *Enforcer {
	return &Enforcer{cap: cap, store: store, recorder: recorder, logger: logger}
}

// Enforce はストアのレコード数を数え、上限超過分を古い順に削除する。
// 超過していない場合は何も削除しない。削除対象がすでに消えていた場合も正常とみなす。
func (e *Enforcer) Enforce(ctx context.Context, store Pruner, serialNumber string) error {
	count, err := store.CountBySerial(ctx, serialNumber)
	if err != nil {
		return fmt.Errorf("レコード数の取得に失敗しました: %w", err)
	}

	excess := count - e.cap
	if excess <= 0 {
		return nil
	}

	deleted, err := store.DeleteOldest(ctx, serialNumber, excess)
	if err != nil {
		return fmt.Errorf("古いレコードの削除に失敗しました: %w", err)
	}

	e.recorder.RecordRetentionEviction(e.store, deleted)

	e.logger.Info("evicted records over retention cap",
		slog.String("store", e.store),
		slog.String("serial_number", serialNumber),
		slog.Int("count", count),
		slog.Int("cap", e.cap),
		slog.Int("deleted", deleted))

	return nil
}
