// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/mimamori/internal/middleware"
	"github.com/hitoshi/mimamori/internal/model"
)

// userResponse は保護者アカウントのレスポンス。パスワードハッシュは含まない。
type userResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PhotoURL      string    `json:"photoUrl,omitempty"`
	SerialNumbers []string  `json:"serialNumbers"`
	CreatedAt     time.Time `json:"createdAt"`
}

func newUserResponse(user *model.User) userResponse {
	serials := user.SerialNumbers
	if serials == nil {
		serials = []string{}
	}
	return userResponse{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		PhotoURL:      user.PhotoURL,
		SerialNumbers: serials,
		CreatedAt:     user.CreatedAt,
	}
}

// respondJSON はJSONレスポンスを書き込む。
func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// APIError以外のエラーは詳細をログに残し、一般的な500レスポンスを返す。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized,
		model.ErrCodeInvalidCredentials,
		model.ErrCodeInvalidRefreshToken,
		model.ErrCodeUserNotFound:
		return http.StatusUnauthorized
	case model.ErrCodeNotWatchOwner:
		return http.StatusForbidden
	case model.ErrCodeInvalidRequest,
		model.ErrCodeSerialRequired,
		model.ErrCodeInvalidZoneParams,
		model.ErrCodeInvalidPhotoURL:
		return http.StatusBadRequest
	case model.ErrCodeEmailInUse,
		model.ErrCodeWatchAlreadyLinked:
		return http.StatusConflict
	case model.ErrCodeZoneNotFound,
		model.ErrCodeAudioNotFound,
		model.ErrCodeWatchDataNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// identityOrUnauthorized はコンテキストから認証済みユーザーIDを取得する。
// 認証ミドルウェアを通過していないリクエストには401を書き込み、falseを返す。
func identityOrUnauthorized(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return "", false
	}
	return userID, true
}

// decodeJSONBody はリクエストボディをJSONとしてデコードする。
// デコード失敗時は400を書き込み、falseを返す。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("JSONのデコードに失敗しました"))
		return false
	}
	return true
}

// decodeJSONBodyLenient はボディをJSONとしてデコードするが、失敗してもエラーレスポンスを書かない。
// ボディが任意のエンドポイント（トークン再発行など）で使用する。
func decodeJSONBodyLenient(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
