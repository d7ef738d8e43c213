// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は出品のタイトルや説明などの自由記述から
// HTMLマークアップを取り除き、プレーンテキストとして保存できる形にする。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxSanitizePasses はエンティティ展開後に再びタグが現れる入力に対する再処理の上限。
const maxSanitizePasses = 3

// TextSanitizerService はプレーンテキストのサニタイズ機能のインターフェース。
type TextSanitizerService interface {
	// Clean は入力からタグを全て除去し、前後の空白を取り除いたテキストを返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Clean(raw string) string
}

// textSanitizer はbluemondayのStrictPolicyを用いたTextSanitizerServiceの実装。
// ポリシーはスレッドセーフなので並行に呼び出してよい。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean はタグを除去したプレーンテキストを返す。
// StrictPolicyは & や ' をエンティティに変換するため、出力は元の文字に戻す。
// 戻した結果に "&lt;b&gt;" 由来のタグが現れた場合は再度除去する。
func (s *textSanitizer) Clean(raw string) string {
	out := raw
	for i := 0; i < maxSanitizePasses; i++ {
		out = html.UnescapeString(s.policy.Sanitize(out))
		if !strings.ContainsAny(out, "<>") {
			break
		}
	}
	return strings.TrimSpace(out)
}
