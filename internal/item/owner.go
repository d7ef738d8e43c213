package item

import (
	"context"
	"fmt"

	"github.com/hitoshi/campusmarket/internal/model"
	"github.com/hitoshi/campusmarket/internal/repository"
)

// withOwner は出品に出品者の公開ビューを結合する。
// 出品者のidentityが見つからない場合はIDのみのビューを使う。
func withOwner(ctx context.Context, identities repository.IdentityRepository, l *model.Listing) (*model.ListingWithOwner, error) {
	owner, err := identities.FindByID(ctx, l.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load listing owner: %w", err)
	}

	projection := model.OwnerProjection{ID: l.OwnerID}
	if owner != nil {
		projection = owner.Projection()
	}

	return &model.ListingWithOwner{Listing: *l, Owner: projection}, nil
}
