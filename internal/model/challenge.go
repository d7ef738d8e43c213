// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// Challenge はセッションにひも付くCAPTCHAチャレンジのレコード。
// 発行から消費（成功、または失敗時の再発行）までの間だけ存在する。
type Challenge struct {
	ID        string
	SessionID string
	Text      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired は指定時刻の時点でチャレンジが期限切れかどうかを返す。
func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Matches は入力値がチャレンジ文字列と大文字小文字を区別せず一致するかを返す。
// どちらかが空の場合は常にfalse。
func (c *Challenge) Matches(candidate string) bool {
	if c == nil || c.Text == "" || candidate == "" {
		return false
	}
	return strings.EqualFold(c.Text, candidate)
}
