// Package security はアプリケーションのセキュリティ機能を提供する。
//
// InputSanitizerService は管理サイトから入力される自由記述テキスト
// （住所、ロール名、パーミッションの説明等）からHTMLを除去し、
// 保存データを常にプレーンテキストに保つ。
// bluemondayのStrictPolicyを使用し、全タグ・全属性を除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// InputSanitizerService はテキスト入力のサニタイズ機能のインターフェースを定義する。
// 管理サイトの作成・更新系ハンドラーが保存前に使用する。
type InputSanitizerService interface {
	// Sanitize は入力文字列から全てのHTMLタグと属性を除去し、
	// 前後の空白をトリムして返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(input string) string
}

// inputSanitizer はInputSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type inputSanitizer struct {
	policy *bluemonday.Policy
}

// NewInputSanitizer はInputSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは許可リストが空のポリシーで、全てのタグを除去する。
func NewInputSanitizer() *inputSanitizer {
	return &inputSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力文字列から全てのHTMLタグと属性を除去して返す。
func (s *inputSanitizer) Sanitize(input string) string {
	return strings.TrimSpace(s.policy.Sanitize(input))
}
