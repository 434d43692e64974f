package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/mimamori/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, name, photoURL *string) (*model.User, error)
	LinkWatch(ctx context.Context, userID, serialNumber string) (*model.User, error)
	Withdraw(ctx context.Context, userID string) error
}

// CookieClearer はリフレッシュトークンCookieの削除インターフェース。
// 退会時にAuthHandlerのCookie設定を共有するために使う。
type CookieClearer interface {
	clearRefreshCookie(w http.ResponseWriter)
}

// UserHandler はプロフィール管理とウォッチ紐付けのHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	cookies CookieClearer
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, cookies CookieClearer) *UserHandler {
	return &UserHandler{
		service: service,
		cookies: cookies,
	}
}

// Me は現在のログインユーザーのプロフィールを返す。
// GET /api/user/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, newUserResponse(user))
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
// nilのフィールドは変更しない。photoUrlに空文字列を指定すると画像を削除する。
type updateProfileRequest struct {
	Name     *string `json:"name,omitempty"`
	PhotoURL *string `json:"photoUrl,omitempty"`
}

// UpdateProfile は表示名とプロフィール画像URLを更新する。
// PATCH /api/user/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, req.Name, req.PhotoURL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, newUserResponse(user))
}

// linkWatchRequest はウォッチ紐付けリクエストのボディ。
type linkWatchRequest struct {
	SerialNumber string `json:"serialNumber"`
}

// LinkWatch はユーザーにウォッチを紐付ける。
// POST /api/link-watch
func (h *UserHandler) LinkWatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req linkWatchRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	user, err := h.service.LinkWatch(r.Context(), userID, req.SerialNumber)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"serialNumbers": user.SerialNumbers,
	})
}

// Withdraw はユーザーの退会処理を実行し、リフレッシュトークンCookieをクリアする。
// DELETE /api/user/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := identityOrUnauthorized(w, r)
	if !ok {
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	h.cookies.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
