// Package model はドメインモデルを定義する。
package model

import "time"

// Identity は学籍ログインIDにひも付く利用者を表す。
// 初回ログイン時に作成され、以後は変更も削除もされない。
type Identity struct {
	ID          string
	LoginID     string
	DisplayName *string // 任意。ログインフローでは設定しない
	CreatedAt   time.Time
}

// OwnerProjection は出品情報に埋め込む出品者の公開ビュー。
type OwnerProjection struct {
	ID      string
	LoginID string
	Name    string
}

// Projection はIdentityから公開してよい項目だけを取り出す。
func (i *Identity) Projection() OwnerProjection {
	p := OwnerProjection{ID: i.ID, LoginID: i.LoginID}
	if i.DisplayName != nil {
		p.Name = *i.DisplayName
	}
	return p
}
