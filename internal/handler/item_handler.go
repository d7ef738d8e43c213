package handler

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/campusmarket/internal/item"
	"github.com/hitoshi/campusmarket/internal/middleware"
	"github.com/hitoshi/campusmarket/internal/model"
)

const (
	// imageFormField は出品画像を受け取るマルチパートのフィールド名。
	imageFormField = "image"
	// multipartOverhead は画像以外のフォーム値とマルチパートの境界に許容するバイト数。
	multipartOverhead = 1 << 20
	// multipartMaxMemory はParseMultipartFormがメモリに保持する上限。超えた分は一時ファイルになる。
	multipartMaxMemory = 8 << 20
)

// ItemServiceInterface は出品ハンドラーが必要とするカタログサービスのインターフェース。
type ItemServiceInterface interface {
	Create(ctx context.Context, ownerID string, in item.CreateListingInput, upload *item.MediaUpload) (*model.ListingWithOwner, error)
	List(ctx context.Context) iter.Seq2[*model.ListingWithOwner, error]
	Get(ctx context.Context, id string) (*model.ListingWithOwner, error)
}

// SaleServiceInterface は販売確定サービスのインターフェース。
type SaleServiceInterface interface {
	ConfirmSale(ctx context.Context, listingID, actorID string) (*model.ListingWithOwner, error)
}

// ItemHandler は出品のHTTPハンドラー。
type ItemHandler struct {
	service        ItemServiceInterface
	sales          SaleServiceInterface
	maxUploadBytes int64
}

// NewItemHandler はItemHandlerを生成する。
// maxUploadBytesは画像1件のサイズ上限で、0以下の場合はitem.DefaultMaxMediaBytesを使う。
func NewItemHandler(service ItemServiceInterface, sales SaleServiceInterface, maxUploadBytes int64) *ItemHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = item.DefaultMaxMediaBytes
	}
	return &ItemHandler{
		service:        service,
		sales:          sales,
		maxUploadBytes: maxUploadBytes,
	}
}

// --- レスポンス型 ---

// ownerResponse は出品者の公開ビュー。
type ownerResponse struct {
	ID      string `json:"id"`
	LoginID string `json:"loginId"`
	Name    string `json:"name,omitempty"`
}

// listingResponse は出品のレスポンス。
type listingResponse struct {
	ID          string        `json:"id"`
	User        ownerResponse `json:"user"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Price       float64       `json:"price"`
	Category    string        `json:"category"`
	Condition   string        `json:"condition"`
	Location    string        `json:"location"`
	Phone       string        `json:"phone"`
	Images      []string      `json:"images"`
	IsSold      bool          `json:"isSold"`
	SoldAt      *time.Time    `json:"soldAt,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

func newListingResponse(l *model.ListingWithOwner) listingResponse {
	images := l.Media
	if images == nil {
		images = []string{}
	}
	return listingResponse{
		ID: l.ID,
		User: ownerResponse{
			ID:      l.Owner.ID,
			LoginID: l.Owner.LoginID,
			Name:    l.Owner.Name,
		},
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		Category:    string(l.Category),
		Condition:   string(l.Condition),
		Location:    l.Location,
		Phone:       l.Phone,
		Images:      images,
		IsSold:      l.IsSold,
		SoldAt:      l.SoldAt,
		CreatedAt:   l.CreatedAt,
	}
}

// CreateItem は出品を作成する。
// POST /items （multipart/form-data、画像は任意で image フィールドに1件）
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	ownerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError("no token"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMaxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewUploadRejectedError("File too large"))
			return
		}
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Malformed form data"))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	upload, apiErr := h.readUpload(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	in := item.CreateListingInput{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Price:       r.PostFormValue("price"),
		Category:    r.PostFormValue("category"),
		Condition:   r.PostFormValue("condition"),
		Location:    r.PostFormValue("location"),
		Phone:       r.PostFormValue("phone"),
	}

	created, err := h.service.Create(r.Context(), ownerID, in, upload)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newListingResponse(created))
}

// readUpload はフォームから画像を読み出す。画像が無い場合はnilを返す。
func (h *ItemHandler) readUpload(r *http.Request) (*item.MediaUpload, *model.APIError) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[imageFormField]
	if len(headers) == 0 {
		return nil, nil
	}
	if len(headers) > model.MaxListingMedia {
		return nil, model.NewUploadRejectedError("Only one image can be attached")
	}

	fh := headers[0]
	if fh.Size > h.maxUploadBytes {
		return nil, model.NewUploadRejectedError("File too large")
	}

	data, err := readFormFile(fh, h.maxUploadBytes)
	if err != nil {
		slog.Warn("failed to read uploaded file", slog.String("error", err.Error()))
		return nil, model.NewUploadRejectedError("Could not read uploaded file")
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	return &item.MediaUpload{
		Filename:    fh.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// readFormFile はアップロードされたファイルを最大limit+1バイトまで読み込む。
// 上限を超えたかどうかの判定は呼び出し側のサイズ検証に任せる。
func readFormFile(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit+1))
}

// ListItems は販売中の出品を新しい順に返す。
// GET /items
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items := []listingResponse{}
	for l, err := range h.service.List(r.Context()) {
		if err != nil {
			handleServiceError(w, err)
			return
		}
		items = append(items, newListingResponse(l))
	}

	writeJSON(w, http.StatusOK, items)
}

// GetItem は出品の詳細を返す。
// GET /items/:id
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	listing, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newListingResponse(listing))
}

// SellItem は購入者として出品の受け取りを確認し、販売済みにする。
// PUT /items/:id/sell
func (h *ItemHandler) SellItem(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError("no token"))
		return
	}

	sold, err := h.sales.ConfirmSale(r.Context(), chi.URLParam(r, "id"), actorID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newListingResponse(sold))
}
