package item

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/campusmarket/internal/media"
	"github.com/hitoshi/campusmarket/internal/metrics"
	"github.com/hitoshi/campusmarket/internal/model"
	"github.com/hitoshi/campusmarket/internal/repository"
)

// --- モック定義 ---

// memListingRepo はPostgresListingRepoと同じ条件で販売確定するインメモリ実装。
type memListingRepo struct {
	mu       sync.Mutex
	listings map[string]*model.Listing

	createErr error
}

var _ repository.ListingRepository = (*memListingRepo)(nil)

func newMemListingRepo() *memListingRepo {
	return &memListingRepo{listings: make(map[string]*model.Listing)}
}

func (r *memListingRepo) Create(_ context.Context, l *model.Listing) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.listings[l.ID] = &cp
	return nil
}

func (r *memListingRepo) FindByID(_ context.Context, id string) (*model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *memListingRepo) ListActive(_ context.Context) ([]*model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Listing
	for _, l := range r.listings {
		if !l.IsSold {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memListingRepo) MarkSold(_ context.Context, id, buyerID string, soldAt time.Time) (*model.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok || l.IsSold || l.OwnerID == buyerID {
		return nil, nil
	}
	l.IsSold = true
	l.BuyerID = &buyerID
	l.SoldAt = &soldAt
	cp := *l
	return &cp, nil
}

func (r *memListingRepo) put(l *model.Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listings[l.ID] = l
}

type mockIdentityRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.Identity, error)
}

var _ repository.IdentityRepository = (*mockIdentityRepo)(nil)

func (m *mockIdentityRepo) FindByID(ctx context.Context, id string) (*model.Identity, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return &model.Identity{ID: id, LoginID: "2023123456@student.annauniv.edu"}, nil
}

func (m *mockIdentityRepo) FindByLoginID(context.Context, string) (*model.Identity, error) {
	return nil, nil
}

func (m *mockIdentityRepo) Create(_ context.Context, loginID string) (*model.Identity, error) {
	return &model.Identity{ID: "new", LoginID: loginID}, nil
}

type mockStore struct {
	saveFn func(ctx context.Context, data []byte, contentType string) (string, error)
	calls  int
}

var _ media.Store = (*mockStore)(nil)

func (m *mockStore) Save(ctx context.Context, data []byte, contentType string) (string, error) {
	m.calls++
	if m.saveFn != nil {
		return m.saveFn(ctx, data, contentType)
	}
	return "/uploads/image-1-test.png", nil
}

type recordingMetrics struct {
	metrics.NopCollector
	mu      sync.Mutex
	sales   []string
	created []string
}

func (r *recordingMetrics) RecordSaleAttempt(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales = append(r.sales, outcome)
}

func (r *recordingMetrics) RecordListingCreated(category string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, category)
}
