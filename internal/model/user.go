// Package model はドメインモデルを定義する。
package model

import "time"

// User は保護者アカウントを表す。
// SerialNumbersには紐付け済みウォッチのシリアル番号を保持する。
type User struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  string
	PhotoURL      string
	SerialNumbers []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OwnsWatch は指定シリアル番号のウォッチがこのユーザーに紐付いているかを返す。
func (u *User) OwnsWatch(serialNumber string) bool {
	for _, sn := range u.SerialNumbers {
		if sn == serialNumber {
			return true
		}
	}
	return false
}
