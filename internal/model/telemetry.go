// Package model はドメインモデルを定義する。
package model

import "time"

// WatchData はウォッチから送信されたテレメトリ（位置・バイタル）を表す。
// 1回の送信につき1レコード作成され、以後更新されない。
// 保持上限を超えた古いレコードは保持ポリシーにより削除される。
type WatchData struct {
	ID           string
	SerialNumber string
	Seq          int64 // 挿入順。created_atが同時刻の場合のタイブレークに使用する
	HeartRate    *int
	StepCount    *int
	Longitude    *float64
	Latitude     *float64
	BatteryLevel *int
	CreatedAt    time.Time
}

// RecordedAudio はウォッチから送信された録音音声を表す。
// EmotionとConfidenceは外部の感情分類サービスによる付加情報で、
// 分類に失敗した場合は未設定のまま保存される。
type RecordedAudio struct {
	ID           string
	SerialNumber string
	Seq          int64
	Audio        []byte
	Emotion      string
	Confidence   *float64
	ClassifiedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
