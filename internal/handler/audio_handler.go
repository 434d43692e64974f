package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/mimamori/internal/model"
)

// AudioServiceInterface は録音音声ハンドラーが必要とするサービスインターフェース。
type AudioServiceInterface interface {
	Submit(ctx context.Context, userID, serialNumber string, audioData []byte) (*model.RecordedAudio, error)
	FetchLatest(ctx context.Context, userID, serialNumber string) (*model.RecordedAudio, error)
	GetFile(ctx context.Context, userID, audioID string) (*model.RecordedAudio, error)
}

// AudioHandler は録音音声のHTTPハンドラー。
type AudioHandler struct {
	service AudioServiceInterface
}

// NewAudioHandler はAudioHandlerを生成する。
func NewAudioHandler(service AudioServiceInterface) *AudioHandler {
	return &AudioHandler{service: service}
}

// audioSubmitRequest は録音音声送信リクエストのボディ。
// audioはbase64エンコードされた音声データ。
type audioSubmitRequest struct {
	SerialNumber string `json:"serialNumber"`
	Audio        []byte `json:"audio"`
}

// audioMetadataResponse は録音音声のメタデータレスポンス。音声本体は含まない。
type audioMetadataResponse struct {
	ID           string     `json:"id"`
	SerialNumber string     `json:"serialNumber"`
	Emotion      string     `json:"emotion,omitempty"`
	Confidence   *float64   `json:"confidence,omitempty"`
	ClassifiedAt *time.Time `json:"classifiedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func newAudioMetadataResponse(record *model.RecordedAudio) audioMetadataResponse {
	return audioMetadataResponse{
		ID:           record.ID,
		SerialNumber: record.SerialNumber,
		Emotion:      record.Emotion,
		Confidence:   record.Confidence,
		ClassifiedAt: record.ClassifiedAt,
		CreatedAt:    record.CreatedAt,
	}
}

// Submit はウォッチからの録音音声を受信する。
// POST /api/audio
func (h *AudioHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req audioSubmitRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	record, err := h.service.Submit(r.Context(), userID, req.SerialNumber, req.Audio)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"id": record.ID})
}

// GetLatest はウォッチの最新録音音声のメタデータを返す。
// GET /api/audio/{serialNumber}
func (h *AudioHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	userID, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	serialNumber := chi.URLParam(r, "serialNumber")

	record, err := h.service.FetchLatest(r.Context(), userID, serialNumber)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, newAudioMetadataResponse(record))
}

// GetFile は指定IDの録音音声本体を返す。
// GET /api/audio/file/{audioId}
func (h *AudioHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	audioID := chi.URLParam(r, "audioId")

	record, err := h.service.GetFile(r.Context(), userID, audioID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(record.Audio)
}
