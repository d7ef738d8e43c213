// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/campusmarket/internal/model"
)

// IdentityRepository はログインIDとidentityの対応の永続化インターフェース。
type IdentityRepository interface {
	// FindByID は指定IDのidentityを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Identity, error)

	// FindByLoginID はログインIDでidentityを検索する。見つからない場合はnilを返す。
	FindByLoginID(ctx context.Context, loginID string) (*model.Identity, error)

	// Create はログインIDに対応するidentityを作成する。
	// 同じログインIDが既に存在する場合は既存のidentityを返す（冪等）。
	Create(ctx context.Context, loginID string) (*model.Identity, error)
}

// ChallengeRepository はCAPTCHAチャレンジの永続化インターフェース。
// チャレンジはセッションIDごとに高々1件で、期限切れのものは参照できない。
type ChallengeRepository interface {
	// Replace はセッションIDのチャレンジを新しいものに置き換える。
	Replace(ctx context.Context, challenge *model.Challenge) error

	// FindActive はセッションIDに対応する有効期限内のチャレンジを取得する。
	// 存在しないか期限切れの場合はnilを返す。
	FindActive(ctx context.Context, sessionID string, now time.Time) (*model.Challenge, error)

	// Redeem は回答が一致する有効期限内のチャレンジを削除し、削除できたかを返す。
	// 照合と削除を1文で行うため、同じ回答が2回成功することはない。
	Redeem(ctx context.Context, sessionID, answer string, now time.Time) (bool, error)

	// DeleteExpired は期限切れのチャレンジを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ListingRepository は出品データの永続化インターフェース。
type ListingRepository interface {
	// Create は出品を作成する。
	Create(ctx context.Context, listing *model.Listing) error

	// FindByID は指定IDの出品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Listing, error)

	// ListActive は販売中の出品をcreated_at降順で取得する。
	ListActive(ctx context.Context) ([]*model.Listing, error)

	// MarkSold は販売中かつ出品者以外が購入者である場合に限り出品を販売済みにする。
	// 条件を満たさず更新されなかった場合はnilを返す。
	MarkSold(ctx context.Context, id, buyerID string, soldAt time.Time) (*model.Listing, error)
}
