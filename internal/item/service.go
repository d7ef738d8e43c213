// Package item は出品の作成・参照と販売確定のビジネスロジックを提供する。
package item

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"

	"github.com/hitoshi/campusmarket/internal/media"
	"github.com/hitoshi/campusmarket/internal/metrics"
	"github.com/hitoshi/campusmarket/internal/model"
	"github.com/hitoshi/campusmarket/internal/repository"
	"github.com/hitoshi/campusmarket/internal/security"
)

// DefaultMaxMediaBytes は画像1件あたりのサイズ上限のデフォルト値（5MiB）。
const DefaultMaxMediaBytes int64 = 5 << 20

// Service は出品カタログの作成・一覧・取得を提供する。
type Service struct {
	listings      repository.ListingRepository
	identities    repository.IdentityRepository
	store         media.Store
	sanitizer     security.TextSanitizerService
	metrics       metrics.MetricsCollector
	maxMediaBytes int64
	now           func() time.Time
}

// NewService はServiceを生成する。
// maxMediaBytesが0以下の場合はDefaultMaxMediaBytesを、mcがnilの場合はNopCollectorを使う。
func NewService(
	listings repository.ListingRepository,
	identities repository.IdentityRepository,
	store media.Store,
	sanitizer security.TextSanitizerService,
	mc metrics.MetricsCollector,
	maxMediaBytes int64,
) *Service {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	if maxMediaBytes <= 0 {
		maxMediaBytes = DefaultMaxMediaBytes
	}
	return &Service{
		listings:      listings,
		identities:    identities,
		store:         store,
		sanitizer:     sanitizer,
		metrics:       mc,
		maxMediaBytes: maxMediaBytes,
		now:           time.Now,
	}
}

// Create は出品者ownerIDの出品を作成し、出品者情報を結合して返す。
//
// 自由記述はマークアップを除去してから検証するため、タグだけの入力は未入力として扱う。
// 画像は任意で、検証を通過した場合のみ保存する。
func (s *Service) Create(ctx context.Context, ownerID string, in CreateListingInput, upload *MediaUpload) (*model.ListingWithOwner, error) {
	in = s.clean(in)

	if err := in.Validate(); err != nil {
		var internal validation.InternalError
		if errors.As(err, &internal) {
			return nil, fmt.Errorf("failed to validate listing: %w", err)
		}
		return nil, model.NewValidationError(err.Error())
	}
	if err := s.checkUpload(upload); err != nil {
		return nil, err
	}

	// Validate済みなのでパースは失敗しない
	price, _ := parsePrice(in.Price)
	category, _ := model.ParseCategory(in.Category)
	condition, _ := model.ParseCondition(in.Condition)

	now := s.now()
	mediaRefs := []string{}
	if upload != nil {
		ref, err := s.store.Save(ctx, upload.Data, upload.ContentType)
		if err != nil {
			return nil, fmt.Errorf("failed to store listing media: %w", err)
		}
		mediaRefs = append(mediaRefs, ref)
	}

	listing := &model.Listing{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Price:       price,
		Category:    category,
		Condition:   condition,
		Location:    in.Location,
		Phone:       normalizePhone(in.Phone),
		Media:       mediaRefs,
		CreatedAt:   now,
	}
	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, err
	}

	s.metrics.RecordListingCreated(string(category))
	slog.Info("listing created",
		slog.String("listing_id", listing.ID),
		slog.String("user_id", ownerID),
		slog.String("category", string(category)),
	)

	return withOwner(ctx, s.identities, listing)
}

// List は販売中の出品を新しい順に返す。
// rangeのたびに独立した読み出しを行うため、何度でも走査し直せる。
func (s *Service) List(ctx context.Context) iter.Seq2[*model.ListingWithOwner, error] {
	return func(yield func(*model.ListingWithOwner, error) bool) {
		listings, err := s.listings.ListActive(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, l := range listings {
			joined, err := withOwner(ctx, s.identities, l)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(joined, nil) {
				return
			}
		}
	}
}

// Get は指定IDの出品を返す。存在しない場合やIDがUUIDでない場合はNotFoundエラーを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.ListingWithOwner, error) {
	listing, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, model.NewListingNotFoundError(id)
	}
	return withOwner(ctx, s.identities, listing)
}

func (s *Service) clean(in CreateListingInput) CreateListingInput {
	return CreateListingInput{
		Title:       s.sanitizer.Clean(in.Title),
		Description: s.sanitizer.Clean(in.Description),
		Price:       strings.TrimSpace(in.Price),
		Category:    strings.TrimSpace(in.Category),
		Condition:   strings.TrimSpace(in.Condition),
		Location:    s.sanitizer.Clean(in.Location),
		Phone:       strings.TrimSpace(in.Phone),
	}
}

// checkUpload は画像の種類とサイズを検証する。uploadがnilの場合は何もしない。
func (s *Service) checkUpload(upload *MediaUpload) error {
	if upload == nil {
		return nil
	}
	if _, ok := media.Extension(upload.ContentType); !ok {
		return model.NewUploadRejectedError("Only JPEG, PNG, GIF and WEBP images are allowed")
	}
	if len(upload.Data) == 0 {
		return model.NewUploadRejectedError("Uploaded file is empty")
	}
	if int64(len(upload.Data)) > s.maxMediaBytes {
		return model.NewUploadRejectedError(fmt.Sprintf("File too large (max %d bytes)", s.maxMediaBytes))
	}
	return nil
}
