// Package model はドメインモデルを定義する。
package model

import "time"

// AllowedZone はウォッチごとの許可エリア定義を表す。
// 定義の保存のみを行い、位置の内外判定はサーバー側では行わない。
type AllowedZone struct {
	ID           string
	SerialNumber string
	ZoneName     string
	CenterLat    float64
	CenterLng    float64
	RadiusMeters float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
