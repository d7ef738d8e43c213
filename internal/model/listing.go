// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// Listing は出品物を表す。
// IsSoldはfalse→trueの一方向にのみ変化し、変化させるのは販売確定処理だけ。
type Listing struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Price       float64
	Category    Category
	Condition   Condition
	Location    string
	Phone       string
	Media       []string // 画像の参照パス。現行の契約では最大1件
	IsSold      bool
	BuyerID     *string
	SoldAt      *time.Time
	CreatedAt   time.Time
}

// ListingWithOwner は出品物と出品者の公開ビューを結合したモデル。
// 読み出し時にidentitiesを明示的に参照して組み立てる。
type ListingWithOwner struct {
	Listing
	Owner OwnerProjection
}

// ListingState は出品物の販売状態を表す。
type ListingState string

const (
	// ListingStateActive は販売中。初期状態。
	ListingStateActive ListingState = "active"
	// ListingStateSold は販売済み。終端状態。
	ListingStateSold ListingState = "sold"
)

// State はIsSoldから現在の状態を返す。
func (l *Listing) State() ListingState {
	if l.IsSold {
		return ListingStateSold
	}
	return ListingStateActive
}

// MaxListingMedia は1件の出品に添付できる画像の上限数。
const MaxListingMedia = 1

// Category は出品カテゴリ。閉じた列挙型。
type Category string

const (
	CategoryBooks       Category = "Books"
	CategoryElectronics Category = "Electronics"
	CategoryFurniture   Category = "Furniture"
	CategoryStationery  Category = "Stationery"
	CategoryNotes       Category = "Notes"
	CategoryServices    Category = "Services"
	CategoryOther       Category = "Other"
)

// Categories は有効なカテゴリの一覧。
var Categories = []Category{
	CategoryBooks,
	CategoryElectronics,
	CategoryFurniture,
	CategoryStationery,
	CategoryNotes,
	CategoryServices,
	CategoryOther,
}

// ParseCategory は文字列をCategoryに変換する。未知の値の場合はfalseを返す。
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Condition は出品物の状態。閉じた列挙型。
type Condition string

const (
	ConditionNew         Condition = "New"
	ConditionUsedLikeNew Condition = "Used - Like New"
	ConditionUsedGood    Condition = "Used - Good"
	ConditionUsedFair    Condition = "Used - Fair"
)

// Conditions は有効な状態の一覧。
var Conditions = []Condition{
	ConditionNew,
	ConditionUsedLikeNew,
	ConditionUsedGood,
	ConditionUsedFair,
}

// conditionAliases はハイフン区切りの短縮表記から正規の値への対応表。
var conditionAliases = map[string]Condition{
	"used-like-new": ConditionUsedLikeNew,
	"used-good":     ConditionUsedGood,
	"used-fair":     ConditionUsedFair,
}

// ParseCondition は文字列をConditionに変換する。
// "Used-Like-New" のような短縮表記も受け付ける。未知の値の場合はfalseを返す。
func ParseCondition(s string) (Condition, bool) {
	for _, c := range Conditions {
		if string(c) == s {
			return c, true
		}
	}
	if c, ok := conditionAliases[strings.ToLower(s)]; ok {
		return c, true
	}
	return "", false
}
