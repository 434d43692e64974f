// Package token はアクセストークンとリフレッシュトークンの発行・検証を提供する。
// トークンは共通シークレットで署名されたJWTであり、サーバー側に状態を持たない。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Class はトークンの種別を表す。
// アクセストークンとリフレッシュトークンは相互に流用できない。
type Class string

const (
	// ClassAccess はAPIアクセス用の短命トークン。
	ClassAccess Class = "access"
	// ClassRefresh はトークン再発行用の長命トークン。
	ClassRefresh Class = "refresh"
)

// Claims はトークンに埋め込まれる本人性クレームを表す。
// 署名後は不変であり、有効期限の判定は検証時に行う。
type Claims struct {
	UserID    string
	Email     string
	Class     Class
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// デコード失敗の理由を表すエラー。
var (
	// ErrTokenMalformed は期待するエンコーディングでないトークンを表す。
	ErrTokenMalformed = errors.New("token is malformed")
	// ErrTokenSignatureInvalid は署名検証に失敗したトークンを表す。
	ErrTokenSignatureInvalid = errors.New("token signature is invalid")
	// ErrTokenExpired は有効期限切れのトークンを表す。
	ErrTokenExpired = errors.New("token is expired")
)

// jwtClaims はJWTのワイヤフォーマット。
// sub/email/type/iat/expのクレーム名を使用する。
type jwtClaims struct {
	Email string `json:"email,omitempty"`
	Type  string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// Codec はクレームと署名付きトークン文字列の相互変換を行う。
// 副作用を持たず、同一クレーム・同一シークレット・同一秒であれば同一のトークンを生成する。
type Codec struct {
	secret []byte
}

// NewCodec はCodecを生成する。
// シークレットが空の場合はエラーを返す（設定エラーとして起動時に検出すべきもの）。
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Encode はクレームをHS256署名付きのJWT文字列にエンコードする。
func (c *Codec) Encode(claims Claims) (string, error) {
	jc := jwtClaims{
		Email: claims.Email,
		Type:  string(claims.Class),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jc).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode はトークン文字列を検証してクレームを復元する。
// 失敗理由はErrTokenMalformed、ErrTokenSignatureInvalid、ErrTokenExpiredのいずれかに分類される。
// 有効期限は署名が正しい場合でもデコード時点の現在時刻で判定される。
func (c *Codec) Decode(raw string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	var jc jwtClaims
	_, err := parser.ParseWithClaims(raw, &jc, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, classifyDecodeError(err)
	}

	claims := &Claims{
		UserID: jc.Subject,
		Email:  jc.Email,
		Class:  Class(jc.Type),
	}
	if jc.IssuedAt != nil {
		claims.IssuedAt = jc.IssuedAt.Time
	}
	if jc.ExpiresAt != nil {
		claims.ExpiresAt = jc.ExpiresAt.Time
	}

	return claims, nil
}

// classifyDecodeError はjwtライブラリのエラーをデコード失敗理由に分類する。
// 期限切れは署名不正より優先して報告する（jwt/v5は両方を同時に返すことがある）。
func classifyDecodeError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignatureInvalid
	default:
		return ErrTokenMalformed
	}
}
