package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/mimamori/internal/middleware"
	"github.com/hitoshi/mimamori/internal/model"
	"github.com/hitoshi/mimamori/internal/token"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, name, email, password string) (*model.User, *token.Pair, error)
	Login(ctx context.Context, email, password string) (*model.User, *token.Pair, error)
}

// RefreshRotator はリフレッシュトークンから新しいトークンペアを発行するインターフェース。
type RefreshRotator interface {
	RotateRefresh(ctx context.Context, raw string) (*token.Pair, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain        string
	CookieSecure        bool
	RefreshCookieMaxAge int // リフレッシュトークンCookieの有効期間（秒）
}

// AuthHandler は登録・ログイン・トークン再発行のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	rotator RefreshRotator
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, rotator RefreshRotator, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		rotator: rotator,
		config:  config,
	}
}

// tokenPairResponse はトークンペアを含むレスポンス。
type tokenPairResponse struct {
	Token        string        `json:"token"`
	RefreshToken string        `json:"refreshToken"`
	User         *userResponse `json:"user,omitempty"`
}

// registerRequest は新規登録リクエストのボディ。
type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register は保護者アカウントを新規登録する。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	user, pair, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)

	userResp := newUserResponse(user)
	respondJSON(w, http.StatusCreated, tokenPairResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         &userResp,
	})
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login はメールアドレスとパスワードで認証する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	user, pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)

	userResp := newUserResponse(user)
	respondJSON(w, http.StatusOK, tokenPairResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         &userResp,
	})
}

// Logout はリフレッシュトークンCookieをクリアする。
// トークンはステートレスなためサーバー側の破棄処理はない。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearRefreshCookie(w)
	respondJSON(w, http.StatusOK, map[string]string{"message": "ログアウトしました。"})
}

// refreshRequest はトークン再発行リクエストのボディ。
// トークンはヘッダまたはCookieで渡すこともできる。
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken はリフレッシュトークンから新しいトークンペアを発行する。
// トークン欠落・不正・期限切れ・種別不一致・主体消失はすべて同一の401レスポンスを返す。
// POST /api/auth/refresh-token
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	// ボディは任意。デコード失敗は「ボディ指定なし」として扱う。
	var req refreshRequest
	if r.Body != nil {
		_ = decodeJSONBodyLenient(r, &req)
	}

	raw := token.ExtractRefreshToken(r, req.RefreshToken)
	if raw == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidRefreshTokenError())
		return
	}

	pair, err := h.rotator.RotateRefresh(r.Context(), raw)
	if err != nil {
		// 検証エラーの内訳は応答に含めない
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidRefreshTokenError())
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)

	respondJSON(w, http.StatusOK, tokenPairResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// setRefreshCookie はリフレッシュトークンをHTTP Only Cookieとして設定する。
func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     token.RefreshCookieName,
		Value:    refreshToken,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.RefreshCookieMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearRefreshCookie はリフレッシュトークンCookieを削除する。
func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     token.RefreshCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}
