package item

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hitoshi/campusmarket/internal/metrics"
	"github.com/hitoshi/campusmarket/internal/model"
	"github.com/hitoshi/campusmarket/internal/repository"
)

// SaleService は出品の販売確定（販売中→販売済み）を提供する。
// 状態遷移は一方向で、販売済みから戻す操作は存在しない。
type SaleService struct {
	listings   repository.ListingRepository
	identities repository.IdentityRepository
	metrics    metrics.MetricsCollector
	now        func() time.Time
}

// NewSaleService はSaleServiceを生成する。mcがnilの場合はメトリクスを記録しない。
func NewSaleService(
	listings repository.ListingRepository,
	identities repository.IdentityRepository,
	mc metrics.MetricsCollector,
) *SaleService {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &SaleService{
		listings:   listings,
		identities: identities,
		metrics:    mc,
		now:        time.Now,
	}
}

// ConfirmSale はactorIDを購入者として出品を販売済みにする。
//
// 遷移は条件付きUPDATE1文で行い、同時に確定しても成功するのは1件だけになる。
// 更新できなかった場合のみ出品を読み直し、NotFound、販売済み、出品者本人の順に原因を判定する。
func (s *SaleService) ConfirmSale(ctx context.Context, listingID, actorID string) (*model.ListingWithOwner, error) {
	sold, err := s.listings.MarkSold(ctx, listingID, actorID, s.now())
	if err != nil {
		s.metrics.RecordSaleAttempt(metrics.SaleError)
		return nil, err
	}
	if sold != nil {
		s.metrics.RecordSaleAttempt(metrics.SaleSold)
		slog.Info("listing sold",
			slog.String("listing_id", sold.ID),
			slog.String("buyer_id", actorID),
		)
		return withOwner(ctx, s.identities, sold)
	}

	return nil, s.classifyRejection(ctx, listingID, actorID)
}

// classifyRejection は条件付き更新が0件だった理由をエラーに変換する。
func (s *SaleService) classifyRejection(ctx context.Context, listingID, actorID string) error {
	current, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		s.metrics.RecordSaleAttempt(metrics.SaleError)
		return err
	}

	switch {
	case current == nil:
		s.metrics.RecordSaleAttempt(metrics.SaleNotFound)
		return model.NewListingNotFoundError(listingID)
	case current.IsSold:
		s.metrics.RecordSaleAttempt(metrics.SaleAlreadySold)
		joined, err := withOwner(ctx, s.identities, current)
		if err != nil {
			return err
		}
		return model.NewAlreadySoldError(joined)
	case current.OwnerID == actorID:
		s.metrics.RecordSaleAttempt(metrics.SaleForbidden)
		slog.Warn("owner attempted to confirm own sale",
			slog.String("listing_id", listingID),
			slog.String("user_id", actorID),
		)
		return model.NewForbiddenSaleError()
	default:
		s.metrics.RecordSaleAttempt(metrics.SaleError)
		return errors.New("failed to confirm sale: listing was not updated")
	}
}
