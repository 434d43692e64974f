// Package cleanup はテレメトリと録音音声の期限切れデータ削除ジョブを提供する。
// シリアル番号ごとの保持上限とは別に、保持期間（デフォルト180日)を超過した
// レコードを日次バッチで削除する。
package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredDeleter は期限切れレコードの削除インターフェース。
// テレメトリと録音音声のリポジトリがそれぞれ実装する。
type ExpiredDeleter interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupJob は保持期間を超過したレコードの自動削除ジョブ。
// 冪等であり、削除対象がない場合でもエラーにならない。
type CleanupJob struct {
	watchData     ExpiredDeleter
	audio         ExpiredDeleter
	logger        *slog.Logger
	RetentionDays int // レコードの保持日数（デフォルト: 180）
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(watchData, audio ExpiredDeleter, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		watchData:     watchData,
		audio:         audio,
		logger:        logger,
		RetentionDays: 180,
	}
}

// Start はクリーンアップジョブを日次で定期実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	j.logger.Info("クリーンアップジョブを開始しました",
		slog.Int("retention_days", j.RetentionDays),
	)

	if err := j.Run(ctx); err != nil {
		j.logger.Error("クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("クリーンアップジョブの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Run は保持期間を超過したテレメトリと録音音声を削除する。
// 片方の削除が失敗してももう片方は実行し、最後のエラーを返す。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	cutoff := start.AddDate(0, 0, -j.RetentionDays)

	var lastErr error

	watchDeleted, err := j.watchData.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("期限切れテレメトリの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		lastErr = err
	}

	audioDeleted, err := j.audio.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("期限切れ録音音声の削除に失敗しました",
			slog.String("error", err.Error()),
		)
		lastErr = err
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("watch_data_deleted", watchDeleted),
		slog.Int64("audio_deleted", audioDeleted),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return lastErr
}
