// Package zone はウォッチごとの許可エリア管理のドメインロジックを提供する。
package zone

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/mimamori/internal/model"
	"github.com/hitoshi/mimamori/internal/repository"
	"github.com/hitoshi/mimamori/internal/security"
)

// OwnershipAuthorizer はウォッチ所有権チェックのインターフェース。
type OwnershipAuthorizer interface {
	Authorize(ctx context.Context, userID, serialNumber string) error
}

// Service は許可エリア管理のサービス層。
// すべての操作は呼び出しユーザーの所有権チェックを通過してから実行される。
type Service struct {
	zoneRepo  repository.ZoneRepository
	gate      OwnershipAuthorizer
	sanitizer security.InputSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	zoneRepo repository.ZoneRepository,
	gate OwnershipAuthorizer,
	sanitizer security.InputSanitizerService,
) *Service {
	return &Service{
		zoneRepo:  zoneRepo,
		gate:      gate,
		sanitizer: sanitizer,
	}
}

// AddParams は許可エリア追加のパラメータ。
type AddParams struct {
	SerialNumber string
	ZoneName     string
	CenterLat    float64
	CenterLng    float64
	RadiusMeters float64
}

// Add は許可エリアを追加する。
// エリア名、中心座標、半径がすべて妥当でない場合はINVALID_ZONE_PARAMSエラーを返す。
func (s *Service) Add(ctx context.Context, userID string, params AddParams) (*model.AllowedZone, error) {
	if params.SerialNumber == "" {
		return nil, model.NewSerialRequiredError()
	}

	zoneName := s.sanitizer.SanitizeText(params.ZoneName)
	if zoneName == "" || params.RadiusMeters <= 0 ||
		params.CenterLat < -90 || params.CenterLat > 90 ||
		params.CenterLng < -180 || params.CenterLng > 180 {
		return nil, model.NewInvalidZoneParamsError()
	}

	if err := s.gate.Authorize(ctx, userID, params.SerialNumber); err != nil {
		return nil, err
	}

	now := time.Now()
	zone := &model.AllowedZone{
		ID:           uuid.NewString(),
		SerialNumber: params.SerialNumber,
		ZoneName:     zoneName,
		CenterLat:    params.CenterLat,
		CenterLng:    params.CenterLng,
		RadiusMeters: params.RadiusMeters,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.zoneRepo.Create(ctx, zone); err != nil {
		return nil, err
	}

	slog.Info("allowed zone added",
		slog.String("serial_number", params.SerialNumber),
		slog.String("zone_id", zone.ID),
	)

	return zone, nil
}

// List はウォッチの許可エリア一覧を返す。
func (s *Service) List(ctx context.Context, userID, serialNumber string) ([]*model.AllowedZone, error) {
	if serialNumber == "" {
		return nil, model.NewSerialRequiredError()
	}
	if err := s.gate.Authorize(ctx, userID, serialNumber); err != nil {
		return nil, err
	}
	return s.zoneRepo.ListBySerial(ctx, serialNumber)
}

// Remove は指定IDの許可エリアを削除する。
// エリアが存在しない場合はZONE_NOT_FOUNDエラーを返す。
// 所有権はエリアに記録されたシリアル番号に対してチェックする。
func (s *Service) Remove(ctx context.Context, userID, zoneID string) error {
	zone, err := s.zoneRepo.FindByID(ctx, zoneID)
	if err != nil {
		return err
	}
	if zone == nil {
		return model.NewZoneNotFoundError(zoneID)
	}

	if err := s.gate.Authorize(ctx, userID, zone.SerialNumber); err != nil {
		return err
	}

	deleted, err := s.zoneRepo.DeleteByID(ctx, zoneID)
	if err != nil {
		return err
	}
	if deleted == 0 {
		// FindByIDとDeleteの間で消えた場合。結果としては削除済みなので正常とみなす。
		slog.Info("zone already deleted", slog.String("zone_id", zoneID))
	}

	return nil
}
