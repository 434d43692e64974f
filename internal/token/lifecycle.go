package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/mimamori/internal/model"
)

// RefreshCookieName はリフレッシュトークンを保持するCookie名。
const RefreshCookieName = "refreshToken"

// ライフサイクル操作のエラー。
var (
	// ErrTokenClassMismatch は操作が期待する種別と異なるトークンを表す。
	// アクセストークンをリフレッシュに使う、またはその逆を拒否する。
	ErrTokenClassMismatch = errors.New("token class mismatch")
	// ErrUnknownSubject はトークンの主体がすでに存在しないことを表す。
	ErrUnknownSubject = errors.New("token subject no longer exists")
)

// Identity は検証済みトークンから復元された本人性を表す。
type Identity struct {
	UserID string
	Email  string
}

// UserFinder はリフレッシュ時に主体の存在を確認するためのインターフェース。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// LifecycleConfig はトークンの有効期間を設定する。
type LifecycleConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Lifecycle はトークンペアの発行・検証・再発行を管理する。
type Lifecycle struct {
	codec  *Codec
	users  UserFinder
	config LifecycleConfig
	now    func() time.Time
}

// NewLifecycle はLifecycleを生成する。
func NewLifecycle(codec *Codec, users UserFinder, config LifecycleConfig) *Lifecycle {
	return &Lifecycle{
		codec:  codec,
		users:  users,
		config: config,
		now:    time.Now,
	}
}

// Pair はアクセストークンとリフレッシュトークンの組。
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// IssuePair は同一主体に対するアクセス・リフレッシュトークンの組を発行する。
// 両トークンは同一の発行時刻を持ち、有効期間のみ異なる。
func (l *Lifecycle) IssuePair(userID, email string) (*Pair, error) {
	now := l.now()

	access, err := l.codec.Encode(Claims{
		UserID:    userID,
		Email:     email,
		Class:     ClassAccess,
		IssuedAt:  now,
		ExpiresAt: now.Add(l.config.AccessTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refresh, err := l.codec.Encode(Claims{
		UserID:    userID,
		Email:     email,
		Class:     ClassRefresh,
		IssuedAt:  now,
		ExpiresAt: now.Add(l.config.RefreshTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess はアクセストークンを検証し、本人性を返す。
// リフレッシュトークンを渡した場合はErrTokenClassMismatchを返す。
func (l *Lifecycle) VerifyAccess(raw string) (*Identity, error) {
	claims, err := l.codec.Decode(raw)
	if err != nil {
		return nil, err
	}
	if claims.Class != ClassAccess {
		return nil, ErrTokenClassMismatch
	}
	return &Identity{UserID: claims.UserID, Email: claims.Email}, nil
}

// RotateRefresh はリフレッシュトークンを検証し、新しいトークンペアを発行する。
// 主体のアカウントが削除されている場合はErrUnknownSubjectを返す。
// 新しいペアのクレームは保存済みアカウント情報から再構築する（トークン内のemailは使わない）。
func (l *Lifecycle) RotateRefresh(ctx context.Context, raw string) (*Pair, error) {
	claims, err := l.codec.Decode(raw)
	if err != nil {
		return nil, err
	}
	if claims.Class != ClassRefresh {
		return nil, ErrTokenClassMismatch
	}

	user, err := l.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		return nil, ErrUnknownSubject
	}

	return l.IssuePair(user.ID, user.Email)
}

// ExtractRefreshToken はリクエストからリフレッシュトークンを取り出す。
// 優先順位はAuthorizationヘッダ、Cookie、リクエストボディの順。
// bodyTokenはハンドラがデコード済みのボディから渡す値で、空なら無視される。
// 見つからない場合は空文字列を返す。
func ExtractRefreshToken(r *http.Request, bodyToken string) string {
	if raw := BearerToken(r); raw != "" {
		return raw
	}
	if cookie, err := r.Cookie(RefreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return bodyToken
}

// BearerToken はAuthorizationヘッダからBearerトークンを取り出す。
// ヘッダがない、またはBearer形式でない場合は空文字列を返す。
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, raw, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(raw)
}
