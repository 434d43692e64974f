// Package classify は未分類の録音音声に感情分類を付与するバッチジョブを提供する。
// 受信時の分類に失敗したレコードを定期的に拾い直し、分類APIを呼び出して結果を記録する。
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/mimamori/internal/inference"
	"github.com/hitoshi/mimamori/internal/model"
	"github.com/hitoshi/mimamori/internal/repository"
)

// AudioClassificationStore はバッチジョブが必要とする録音音声操作のインターフェース。
type AudioClassificationStore interface {
	// ListUnclassified は感情分類が未実施のレコードを古い順に取得する。
	ListUnclassified(ctx context.Context, limit int) ([]*model.RecordedAudio, error)
	// UpdateClassification は感情分類の結果を記録する。
	UpdateClassification(ctx context.Context, id, emotion string, confidence float64, classifiedAt time.Time) error
}

// BatchConfig はバッチジョブの設定パラメータ。環境変数から設定可能。
type BatchConfig struct {
	// BatchInterval はバッチジョブの実行間隔（デフォルト: 10分）。
	BatchInterval time.Duration
	// APIInterval はAPI呼び出しの最低間隔（デフォルト: 5秒）。
	APIInterval time.Duration
	// MaxCallsPerCycle は1サイクルあたりの最大API呼び出し回数（デフォルト: 100）。
	MaxCallsPerCycle int
}

// DefaultBatchConfig はデフォルトのバッチジョブ設定を返す。
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		BatchInterval:    10 * time.Minute,
		APIInterval:      5 * time.Second,
		MaxCallsPerCycle: 100,
	}
}

// BatchJob は感情分類のバッチ取得ジョブ。
// classified_atがNULLのレコードを対象に分類APIを呼び出して結果を更新する。
type BatchJob struct {
	audioRepo         AudioClassificationStore
	classifier        inference.ClassifierService
	logger            *slog.Logger
	config            BatchConfig
	consecutiveErrors int
	backoffUntil      time.Time
}

// NewBatchJob はBatchJobの新しいインスタンスを生成する。
func NewBatchJob(
	audioRepo AudioClassificationStore,
	classifier inference.ClassifierService,
	logger *slog.Logger,
	config BatchConfig,
) *BatchJob {
	return &BatchJob{
		audioRepo:  audioRepo,
		classifier: classifier,
		logger:     logger,
		config:     config,
	}
}

// Start はバッチジョブをティッカーで定期実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (b *BatchJob) Start(ctx context.Context) {
	ticker := time.NewTicker(b.config.BatchInterval)
	defer ticker.Stop()

	b.logger.Info("感情分類バッチジョブを開始しました",
		slog.Duration("batch_interval", b.config.BatchInterval),
		slog.Duration("api_interval", b.config.APIInterval),
		slog.Int("max_calls_per_cycle", b.config.MaxCallsPerCycle),
	)

	// 起動直後に1回実行
	if err := b.RunOnce(ctx); err != nil {
		b.logger.Error("感情分類バッチサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("感情分類バッチジョブを停止しました")
			return
		case <-ticker.C:
			if err := b.RunOnce(ctx); err != nil {
				b.logger.Error("感情分類バッチサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は1回のバッチサイクルを実行する。
// 未分類レコードを古い順に処理し、1件ずつ分類APIを呼び出して結果を記録する。
func (b *BatchJob) RunOnce(ctx context.Context) error {
	start := time.Now()

	// バックオフ中の場合はスキップ
	if !b.backoffUntil.IsZero() && time.Now().Before(b.backoffUntil) {
		b.logger.Info("感情分類バッチジョブはバックオフ中のためスキップします",
			slog.Time("backoff_until", b.backoffUntil),
		)
		return nil
	}

	records, err := b.audioRepo.ListUnclassified(ctx, b.config.MaxCallsPerCycle)
	if err != nil {
		return fmt.Errorf("未分類音声の取得に失敗しました: %w", err)
	}

	if len(records) == 0 {
		return nil
	}

	b.logger.Info("感情分類バッチサイクルを開始します",
		slog.Int("target_records", len(records)),
	)

	var apiCallCount int
	var updatedCount int
	var hadError bool

	for _, record := range records {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// API呼び出しインターバル（初回は待たない）
		if apiCallCount > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.config.APIInterval):
			}
		}

		apiCallCount++

		result, err := b.classifier.Classify(ctx, record.Audio)
		if err != nil {
			b.logger.Error("感情分類APIの呼び出しに失敗しました",
				slog.String("audio_id", record.ID),
				slog.String("error", err.Error()),
			)
			hadError = true
			b.consecutiveErrors++
			backoff := b.calculateErrorBackoff(b.consecutiveErrors)
			if backoff > 0 {
				b.backoffUntil = time.Now().Add(backoff)
				b.logger.Warn("連続エラーによりバックオフを適用します",
					slog.Int("consecutive_errors", b.consecutiveErrors),
					slog.Duration("backoff_duration", backoff),
				)
				break
			}
			continue // このレコードはスキップし次回サイクルで再試行する
		}

		if err := b.audioRepo.UpdateClassification(ctx, record.ID, result.Emotion, result.Confidence, time.Now()); err != nil {
			b.logger.Error("感情分類結果の更新に失敗しました",
				slog.String("audio_id", record.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		updatedCount++
	}

	// エラーがなければ連続エラーカウントをリセット
	if !hadError {
		b.consecutiveErrors = 0
		b.backoffUntil = time.Time{}
	}

	duration := time.Since(start)
	b.logger.Info("感情分類バッチサイクルが完了しました",
		slog.Int("api_call_count", apiCallCount),
		slog.Int("updated_records", updatedCount),
		slog.Int("target_records", len(records)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// calculateErrorBackoff は連続エラー回数に基づくバックオフ時間を計算する。
// 3回連続: 30分、5回連続: 1時間、10回連続: 6時間。
func (b *BatchJob) calculateErrorBackoff(consecutiveErrors int) time.Duration {
	switch {
	case consecutiveErrors >= 10:
		return 6 * time.Hour
	case consecutiveErrors >= 5:
		return 1 * time.Hour
	case consecutiveErrors >= 3:
		return 30 * time.Minute
	default:
		return 0
	}
}

// compile-time interface check
var _ AudioClassificationStore = (repository.AudioRepository)(nil)
