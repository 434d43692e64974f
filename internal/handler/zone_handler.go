package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/mimamori/internal/model"
	"github.com/hitoshi/mimamori/internal/zone"
)

// ZoneServiceInterface は許可エリアハンドラーが必要とするサービスインターフェース。
type ZoneServiceInterface interface {
	Add(ctx context.Context, userID string, params zone.AddParams) (*model.AllowedZone, error)
	List(ctx context.Context, userID, serialNumber string) ([]*model.AllowedZone, error)
	Remove(ctx context.Context, userID, zoneID string) error
}

// ZoneHandler は許可エリア管理のHTTPハンドラー。
type ZoneHandler struct {
	service ZoneServiceInterface
}

// NewZoneHandler はZoneHandlerを生成する。
func NewZoneHandler(service ZoneServiceInterface) *ZoneHandler {
	return &ZoneHandler{service: service}
}

// zoneRequest は許可エリア追加リクエストのボディ。
type zoneRequest struct {
	SerialNumber string  `json:"serialNumber"`
	ZoneName     string  `json:"zoneName"`
	CenterLat    float64 `json:"centerLat"`
	CenterLng    float64 `json:"centerLng"`
	RadiusMeters float64 `json:"radiusMeters"`
}

// zoneResponse は許可エリアのレスポンス。
type zoneResponse struct {
	ID           string    `json:"id"`
	SerialNumber string    `json:"serialNumber"`
	ZoneName     string    `json:"zoneName"`
	CenterLat    float64   `json:"centerLat"`
	CenterLng    float64   `json:"centerLng"`
	RadiusMeters float64   `json:"radiusMeters"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newZoneResponse(z *model.AllowedZone) zoneResponse {
	return zoneResponse{
		ID:           z.ID,
		SerialNumber: z.SerialNumber,
		ZoneName:     z.ZoneName,
		CenterLat:    z.CenterLat,
		CenterLng:    z.CenterLng,
		RadiusMeters: z.RadiusMeters,
		CreatedAt:    z.CreatedAt,
	}
}

// Add は許可エリアを追加する。
// POST /api/allowed-zone
func (h *ZoneHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req zoneRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	created, err := h.service.Add(r.Context(), userID, zone.AddParams{
		SerialNumber: req.SerialNumber,
		ZoneName:     req.ZoneName,
		CenterLat:    req.CenterLat,
		CenterLng:    req.CenterLng,
		RadiusMeters: req.RadiusMeters,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, newZoneResponse(created))
}

// List はウォッチの許可エリア一覧を返す。
// GET /api/allowed-zone/{serialNumber}
func (h *ZoneHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	serialNumber := chi.URLParam(r, "serialNumber")

	zones, err := h.service.List(r.Context(), userID, serialNumber)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]zoneResponse, 0, len(zones))
	for _, z := range zones {
		resp = append(resp, newZoneResponse(z))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Remove は指定IDの許可エリアを削除する。
// DELETE /api/allowed-zone/{zoneId}
func (h *ZoneHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	zoneID := chi.URLParam(r, "zoneId")

	if err := h.service.Remove(r.Context(), userID, zoneID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
