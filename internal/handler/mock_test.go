package handler

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/hitoshi/campusmarket/internal/auth"
	"github.com/hitoshi/campusmarket/internal/item"
	"github.com/hitoshi/campusmarket/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	issueChallengeFn func(ctx context.Context, sessionID string) (string, error)
	loginFn          func(ctx context.Context, sessionID, loginID, captchaAnswer string) (*auth.LoginResult, error)
}

var _ AuthServiceInterface = (*mockAuthService)(nil)
var _ AuthServiceInterface = (*auth.Service)(nil)

func (m *mockAuthService) IssueChallenge(ctx context.Context, sessionID string) (string, error) {
	if m.issueChallengeFn != nil {
		return m.issueChallengeFn(ctx, sessionID)
	}
	return "Ab3dE9", nil
}

func (m *mockAuthService) Login(ctx context.Context, sessionID, loginID, captchaAnswer string) (*auth.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, sessionID, loginID, captchaAnswer)
	}
	return nil, errors.New("not implemented")
}

type mockItemService struct {
	createFn func(ctx context.Context, ownerID string, in item.CreateListingInput, upload *item.MediaUpload) (*model.ListingWithOwner, error)
	listFn   func(ctx context.Context) iter.Seq2[*model.ListingWithOwner, error]
	getFn    func(ctx context.Context, id string) (*model.ListingWithOwner, error)
}

var _ ItemServiceInterface = (*mockItemService)(nil)
var _ ItemServiceInterface = (*item.Service)(nil)

func (m *mockItemService) Create(ctx context.Context, ownerID string, in item.CreateListingInput, upload *item.MediaUpload) (*model.ListingWithOwner, error) {
	if m.createFn != nil {
		return m.createFn(ctx, ownerID, in, upload)
	}
	return nil, errors.New("not implemented")
}

func (m *mockItemService) List(ctx context.Context) iter.Seq2[*model.ListingWithOwner, error] {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return func(func(*model.ListingWithOwner, error) bool) {}
}

func (m *mockItemService) Get(ctx context.Context, id string) (*model.ListingWithOwner, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewListingNotFoundError(id)
}

type mockSaleService struct {
	confirmSaleFn func(ctx context.Context, listingID, actorID string) (*model.ListingWithOwner, error)
}

var _ SaleServiceInterface = (*mockSaleService)(nil)
var _ SaleServiceInterface = (*item.SaleService)(nil)

func (m *mockSaleService) ConfirmSale(ctx context.Context, listingID, actorID string) (*model.ListingWithOwner, error) {
	if m.confirmSaleFn != nil {
		return m.confirmSaleFn(ctx, listingID, actorID)
	}
	return nil, errors.New("not implemented")
}

// failingSessionStore はSaveが必ず失敗するsessions.Store。
type failingSessionStore struct{}

func (s *failingSessionStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return s.New(r, name)
}

func (s *failingSessionStore) New(_ *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	session.IsNew = true
	return session, nil
}

func (s *failingSessionStore) Save(*http.Request, http.ResponseWriter, *sessions.Session) error {
	return errors.New("cookie store unavailable")
}

func testSessionStore() *sessions.CookieStore {
	return NewSessionStore(AuthHandlerConfig{SessionSecret: "test-session-secret-32bytes-long!"})
}

func sampleListing(id string) *model.ListingWithOwner {
	return &model.ListingWithOwner{
		Listing: model.Listing{
			ID:          id,
			OwnerID:     "owner-1",
			Title:       "Desk Lamp",
			Description: "Works fine",
			Price:       250,
			Category:    model.CategoryElectronics,
			Condition:   model.ConditionUsedGood,
			Location:    "Library",
			Phone:       "9876543210",
			Media:       []string{"/uploads/image-1-a.png"},
			CreatedAt:   time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		},
		Owner: model.OwnerProjection{ID: "owner-1", LoginID: "2023123456@student.annauniv.edu"},
	}
}

func listOf(listings ...*model.ListingWithOwner) iter.Seq2[*model.ListingWithOwner, error] {
	return func(yield func(*model.ListingWithOwner, error) bool) {
		for _, l := range listings {
			if !yield(l, nil) {
				return
			}
		}
	}
}
