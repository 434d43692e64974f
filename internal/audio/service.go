// Package audio はウォッチ録音音声の受信・取得のドメインロジックを提供する。
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/mimamori/internal/inference"
	"github.com/hitoshi/mimamori/internal/metrics"
	"github.com/hitoshi/mimamori/internal/model"
	"github.com/hitoshi/mimamori/internal/repository"
	"github.com/hitoshi/mimamori/internal/retention"
)

// OwnershipAuthorizer はウォッチ所有権チェックのインターフェース。
type OwnershipAuthorizer interface {
	Authorize(ctx context.Context, userID, serialNumber string) error
}

// Service は録音音声のサービス層。
// 受信時に感情分類を試み、失敗した場合は未分類のまま保存してバッチジョブに委ねる。
type Service struct {
	audioRepo    repository.AudioRepository
	gate         OwnershipAuthorizer
	enforcer     *retention.Enforcer
	classifier   inference.ClassifierService // nilの場合は受信時の分類を行わない
	collector    metrics.MetricsCollector
	maxAudioSize int64
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	audioRepo repository.AudioRepository,
	gate OwnershipAuthorizer,
	enforcer *retention.Enforcer,
	classifier inference.ClassifierService,
	collector metrics.MetricsCollector,
	maxAudioSize int64,
) *Service {
	return &Service{
		audioRepo:    audioRepo,
		gate:         gate,
		enforcer:     enforcer,
		classifier:   classifier,
		collector:    collector,
		maxAudioSize: maxAudioSize,
	}
}

// Submit は録音音声を保存する。
// 感情分類は受信時に1回試行し、失敗しても保存は成功させる。
// 保存後にシリアル番号ごとの保持上限を適用する。
func (s *Service) Submit(ctx context.Context, userID, serialNumber string, audioData []byte) (*model.RecordedAudio, error) {
	if serialNumber == "" {
		return nil, model.NewSerialRequiredError()
	}
	if len(audioData) == 0 {
		return nil, model.NewInvalidRequestError("音声データがありません")
	}
	if int64(len(audioData)) > s.maxAudioSize {
		return nil, model.NewInvalidRequestError(
			fmt.Sprintf("音声データが大きすぎます（上限 %d バイト）", s.maxAudioSize))
	}

	if err := s.gate.Authorize(ctx, userID, serialNumber); err != nil {
		return nil, err
	}

	record := &model.RecordedAudio{
		ID:           uuid.NewString(),
		SerialNumber: serialNumber,
		Audio:        audioData,
	}

	if s.classifier != nil {
		if result, err := s.classifier.Classify(ctx, audioData); err != nil {
			slog.Warn("受信時の感情分類に失敗しました。バッチジョブで再試行します",
				slog.String("serial_number", serialNumber),
				slog.String("error", err.Error()),
			)
		} else {
			now := time.Now()
			record.Emotion = result.Emotion
			record.Confidence = &result.Confidence
			record.ClassifiedAt = &now
		}
	}

	if err := s.audioRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	s.collector.RecordAudioIngested()

	if err := s.enforcer.Enforce(ctx, s.audioRepo, serialNumber); err != nil {
		slog.Error("録音音声の保持上限適用に失敗しました",
			slog.String("serial_number", serialNumber),
			slog.String("error", err.Error()),
		)
	}

	return record, nil
}

// FetchLatest はウォッチの最新録音音声のメタデータを取得する。音声本体は含まない。
// レコードが存在しない場合はAUDIO_NOT_FOUNDエラーを返す。
func (s *Service) FetchLatest(ctx context.Context, userID, serialNumber string) (*model.RecordedAudio, error) {
	if serialNumber == "" {
		return nil, model.NewSerialRequiredError()
	}

	if err := s.gate.Authorize(ctx, userID, serialNumber); err != nil {
		return nil, err
	}

	record, err := s.audioRepo.FindLatestBySerial(ctx, serialNumber)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, model.NewAudioNotFoundError()
	}
	return record, nil
}

// GetFile は指定IDの録音音声を音声本体込みで取得する。
// 所有権はレコードに記録されたシリアル番号に対してチェックする。
func (s *Service) GetFile(ctx context.Context, userID, audioID string) (*model.RecordedAudio, error) {
	record, err := s.audioRepo.FindByID(ctx, audioID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, model.NewAudioNotFoundError()
	}

	if err := s.gate.Authorize(ctx, userID, record.SerialNumber); err != nil {
		return nil, err
	}

	return record, nil
}
