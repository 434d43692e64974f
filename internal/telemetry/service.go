// Package telemetry はウォッチテレメトリ（位置・バイタル）の受信と取得のドメインロジックを提供する。
package telemetry

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hitoshi/mimamori/internal/metrics"
	"github.com/hitoshi/mimamori/internal/model"
	"github.com/hitoshi/mimamori/internal/repository"
	"github.com/hitoshi/mimamori/internal/retention"
)

// OwnershipAuthorizer はウォッチ所有権チェックのインターフェース。
type OwnershipAuthorizer interface {
	Authorize(ctx context.Context, userID, serialNumber string) error
}

// Service はテレメトリ受信・取得のサービス層。
type Service struct {
	watchDataRepo repository.WatchDataRepository
	gate          OwnershipAuthorizer
	enforcer      *retention.Enforcer
	collector     metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	watchDataRepo repository.WatchDataRepository,
	gate OwnershipAuthorizer,
	enforcer *retention.Enforcer,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		watchDataRepo: watchDataRepo,
		gate:          gate,
		enforcer:      enforcer,
		collector:     collector,
	}
}

// SubmitParams はテレメトリ送信のパラメータ。
// バイタルと位置はウォッチ側の測定状況により欠落しうるため、すべて任意。
type SubmitParams struct {
	SerialNumber string
	HeartRate    *int
	StepCount    *int
	Longitude    *float64
	Latitude     *float64
	BatteryLevel *int
}

// validate は指定されたフィールドの値域を検証する。未指定のフィールドは検証しない。
func (p SubmitParams) validate() error {
	if p.SerialNumber == "" {
		return model.NewSerialRequiredError()
	}
	if p.HeartRate != nil && (*p.HeartRate < 0 || *p.HeartRate > 300) {
		return model.NewInvalidRequestError("心拍数が値域外です")
	}
	if p.StepCount != nil && *p.StepCount < 0 {
		return model.NewInvalidRequestError("歩数が値域外です")
	}
	if p.BatteryLevel != nil && (*p.BatteryLevel < 0 || *p.BatteryLevel > 100) {
		return model.NewInvalidRequestError("バッテリー残量が値域外です")
	}
	if p.Latitude != nil && (*p.Latitude < -90 || *p.Latitude > 90) {
		return model.NewInvalidRequestError("緯度が値域外です")
	}
	if p.Longitude != nil && (*p.Longitude < -180 || *p.Longitude > 180) {
		return model.NewInvalidRequestError("経度が値域外です")
	}
	return nil
}

// Submit はテレメトリを保存する。
// 保存後にシリアル番号ごとの保持上限を適用する。上限適用の失敗は保存の成功を覆さず、
// ログに記録して次回の保存時の適用に委ねる。
func (s *Service) Submit(ctx context.Context, userID string, params SubmitParams) (*model.WatchData, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	if err := s.gate.Authorize(ctx, userID, params.SerialNumber); err != nil {
		return nil, err
	}

	data := &model.WatchData{
		ID:           uuid.NewString(),
		SerialNumber: params.SerialNumber,
		HeartRate:    params.HeartRate,
		StepCount:    params.StepCount,
		Longitude:    params.Longitude,
		Latitude:     params.Latitude,
		BatteryLevel: params.BatteryLevel,
	}
	if err := s.watchDataRepo.Create(ctx, data); err != nil {
		return nil, err
	}

	s.collector.RecordTelemetryIngested()

	if err := s.enforcer.Enforce(ctx, s.watchDataRepo, params.SerialNumber); err != nil {
		slog.Error("テレメトリの保持上限適用に失敗しました",
			slog.String("serial_number", params.SerialNumber),
			slog.String("error", err.Error()),
		)
	}

	return data, nil
}

// FetchLatest はウォッチの最新テレメトリを取得する。
// レコードが存在しない場合はWATCH_DATA_NOT_FOUNDエラーを返す。
func (s *Service) FetchLatest(ctx context.Context, userID, serialNumber string) (*model.WatchData, error) {
	if serialNumber == "" {
		return nil, model.NewSerialRequiredError()
	}

	if err := s.gate.Authorize(ctx, userID, serialNumber); err != nil {
		return nil, err
	}

	data, err := s.watchDataRepo.FindLatestBySerial(ctx, serialNumber)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, model.NewWatchDataNotFoundError(serialNumber)
	}
	return data, nil
}
