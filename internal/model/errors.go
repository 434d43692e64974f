// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, conflict, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeNotWatchOwner       = "NOT_WATCH_OWNER"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeSerialRequired      = "SERIAL_REQUIRED"
	ErrCodeInvalidZoneParams   = "INVALID_ZONE_PARAMS"
	ErrCodeInvalidPhotoURL     = "INVALID_PHOTO_URL"
	ErrCodeEmailInUse          = "EMAIL_IN_USE"
	ErrCodeWatchAlreadyLinked  = "WATCH_ALREADY_LINKED"
	ErrCodeZoneNotFound        = "ZONE_NOT_FOUND"
	ErrCodeAudioNotFound       = "AUDIO_NOT_FOUND"
	ErrCodeWatchDataNotFound   = "WATCH_DATA_NOT_FOUND"
)

// NewUnauthorizedError は認証エラーを生成する。
// トークンの欠落・不正・期限切れのいずれも同一レスポンスとする。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// メールアドレス未登録とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidRefreshTokenError はリフレッシュトークン不正エラーを生成する。
// トークン欠落・署名不正・期限切れ・種別不一致のいずれも同一レスポンスとする。
func NewInvalidRefreshTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRefreshToken,
		Message:  "リフレッシュトークンが無効です。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewNotWatchOwnerError は所有していないウォッチへのアクセスエラーを生成する。
func NewNotWatchOwnerError(serialNumber string) *APIError {
	return &APIError{
		Code:     ErrCodeNotWatchOwner,
		Message:  fmt.Sprintf("このウォッチへのアクセス権がありません: %s", serialNumber),
		Category: "auth",
		Action:   "ウォッチの紐付けを確認してください。",
	}
}

// NewInvalidRequestError はリクエスト形式不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewSerialRequiredError はシリアル番号未指定エラーを生成する。
func NewSerialRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeSerialRequired,
		Message:  "シリアル番号を指定してください。",
		Category: "validation",
		Action:   "ウォッチのシリアル番号を指定して再度お試しください。",
	}
}

// NewInvalidZoneParamsError は許可エリアのパラメータ不正エラーを生成する。
func NewInvalidZoneParamsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidZoneParams,
		Message:  "許可エリアのパラメータがすべて指定されていません。",
		Category: "validation",
		Action:   "エリア名、中心座標、半径をすべて指定してください。",
	}
}

// NewInvalidPhotoURLError はプロフィール画像URL不正エラーを生成する。
func NewInvalidPhotoURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPhotoURL,
		Message:  fmt.Sprintf("プロフィール画像のURLが不正です: %s", reason),
		Category: "validation",
		Action:   "公開されているhttps URLを指定してください。",
	}
}

// NewEmailInUseError はメールアドレス重複エラーを生成する。
func NewEmailInUseError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailInUse,
		Message:  "このメールアドレスは既に使用されています。",
		Category: "conflict",
		Action:   "別のメールアドレスで登録するか、ログインしてください。",
	}
}

// NewWatchAlreadyLinkedError はウォッチ重複紐付けエラーを生成する。
func NewWatchAlreadyLinkedError(serialNumber string) *APIError {
	return &APIError{
		Code:     ErrCodeWatchAlreadyLinked,
		Message:  fmt.Sprintf("このウォッチは既に紐付け済みです: %s", serialNumber),
		Category: "conflict",
		Action:   "紐付け済みウォッチの一覧を確認してください。",
	}
}

// NewZoneNotFoundError は許可エリア未検出エラーを生成する。
func NewZoneNotFoundError(zoneID string) *APIError {
	return &APIError{
		Code:     ErrCodeZoneNotFound,
		Message:  fmt.Sprintf("指定された許可エリアが見つかりません: %s", zoneID),
		Category: "validation",
		Action:   "エリアIDを確認してください。",
	}
}

// NewAudioNotFoundError は録音音声未検出エラーを生成する。
func NewAudioNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeAudioNotFound,
		Message:  "録音音声が見つかりません。",
		Category: "validation",
		Action:   "ウォッチから音声が送信されているか確認してください。",
	}
}

// NewWatchDataNotFoundError はテレメトリ未検出エラーを生成する。
func NewWatchDataNotFoundError(serialNumber string) *APIError {
	return &APIError{
		Code:     ErrCodeWatchDataNotFound,
		Message:  fmt.Sprintf("このウォッチのデータがまだありません: %s", serialNumber),
		Category: "validation",
		Action:   "ウォッチからデータが送信されるまでお待ちください。",
	}
}
