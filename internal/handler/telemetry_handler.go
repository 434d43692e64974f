package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/mimamori/internal/model"
	"github.com/hitoshi/mimamori/internal/telemetry"
)

// TelemetryServiceInterface はテレメトリハンドラーが必要とするサービスインターフェース。
type TelemetryServiceInterface interface {
	Submit(ctx context.Context, userID string, params telemetry.SubmitParams) (*model.WatchData, error)
	FetchLatest(ctx context.Context, userID, serialNumber string) (*model.WatchData, error)
}

// TelemetryHandler はテレメトリ受信・取得のHTTPハンドラー。
type TelemetryHandler struct {
	service TelemetryServiceInterface
}

// NewTelemetryHandler はTelemetryHandlerを生成する。
func NewTelemetryHandler(service TelemetryServiceInterface) *TelemetryHandler {
	return &TelemetryHandler{service: service}
}

// watchDataRequest はテレメトリ送信リクエストのボディ。
// バイタルと位置はウォッチ側の測定状況により省略されうる。
type watchDataRequest struct {
	SerialNumber string   `json:"serialNumber"`
	HeartRate    *int     `json:"heartRate,omitempty"`
	StepCount    *int     `json:"stepCount,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	BatteryLevel *int     `json:"batteryLevel,omitempty"`
}

// watchDataResponse はテレメトリのレスポンス。
type watchDataResponse struct {
	ID           string    `json:"id"`
	SerialNumber string    `json:"serialNumber"`
	HeartRate    *int      `json:"heartRate,omitempty"`
	StepCount    *int      `json:"stepCount,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty"`
	BatteryLevel *int      `json:"batteryLevel,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newWatchDataResponse(data *model.WatchData) watchDataResponse {
	return watchDataResponse{
		ID:           data.ID,
		SerialNumber: data.SerialNumber,
		HeartRate:    data.HeartRate,
		StepCount:    data.StepCount,
		Longitude:    data.Longitude,
		Latitude:     data.Latitude,
		BatteryLevel: data.BatteryLevel,
		CreatedAt:    data.CreatedAt,
	}
}

// Submit はウォッチからのテレメトリを受信する。
// POST /api/watch-data
func (h *TelemetryHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req watchDataRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	data, err := h.service.Submit(r.Context(), userID, telemetry.SubmitParams{
		SerialNumber: req.SerialNumber,
		HeartRate:    req.HeartRate,
		StepCount:    req.StepCount,
		Longitude:    req.Longitude,
		Latitude:     req.Latitude,
		BatteryLevel: req.BatteryLevel,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"id": data.ID})
}

// GetLatest はウォッチの最新テレメトリを返す。
// GET /api/watch-data/{serialNumber}
func (h *TelemetryHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	userID, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	serialNumber := chi.URLParam(r, "serialNumber")

	data, err := h.service.FetchLatest(r.Context(), userID, serialNumber)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, newWatchDataResponse(data))
}
