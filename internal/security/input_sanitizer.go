// Package security は入力値のサニタイズと外部URLの安全性検証を提供する。
//
// InputSanitizerService はユーザーが入力する表示用文字列（アカウント名や
// 許可エリア名）からHTMLをすべて除去する。これらの値はモバイルアプリと
// 管理画面の両方に表示されるため、タグの混入を許さない。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// InputSanitizerService は表示用文字列のサニタイズ機能のインターフェースを定義する。
type InputSanitizerService interface {
	// SanitizeText は文字列からHTMLタグをすべて除去し、前後の空白を取り除く。
	// scriptタグの中身も含めて除去される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// inputSanitizer はInputSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type inputSanitizer struct {
	policy *bluemonday.Policy
}

// NewInputSanitizer はInputSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはタグを一切許可しないため、表示用文字列にはこれで十分。
func NewInputSanitizer() *inputSanitizer {
	return &inputSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText は文字列からHTMLタグをすべて除去し、前後の空白を取り除く。
func (s *inputSanitizer) SanitizeText(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
