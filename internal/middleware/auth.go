// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/mimamori/internal/metrics"
	"github.com/hitoshi/mimamori/internal/model"
	"github.com/hitoshi/mimamori/internal/token"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに認証済み本人性を格納するためのキー。
var identityContextKey = contextKey("identity")

// AccessVerifier はアクセストークン検証に必要なインターフェース。
// token.Lifecycleの部分集合として定義する。
type AccessVerifier interface {
	VerifyAccess(raw string) (*token.Identity, error)
}

// NewAuthMiddleware はAuthorizationヘッダのBearerトークンを検証するミドルウェアを返す。
// 検証済みの本人性をリクエストコンテキストに注入する。
// トークンの欠落・不正・期限切れ・種別不一致はすべて同一の401レスポンスを返す。
func NewAuthMiddleware(verifier AccessVerifier, collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := token.BearerToken(r)
			if raw == "" {
				collector.RecordAuthFailure("unauthorized")
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			identity, err := verifier.VerifyAccess(raw)
			if err != nil {
				collector.RecordAuthFailure("unauthorized")
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext はリクエストコンテキストから認証済み本人性を取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (*token.Identity, error) {
	identity, ok := ctx.Value(identityContextKey).(*token.Identity)
	if !ok || identity == nil || identity.UserID == "" {
		return nil, fmt.Errorf("identity not found in context")
	}
	return identity, nil
}

// UserIDFromContext はリクエストコンテキストから認証済みユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	identity, err := IdentityFromContext(ctx)
	if err != nil {
		return "", err
	}
	return identity.UserID, nil
}

// ContextWithIdentity はコンテキストに本人性を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity *token.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
