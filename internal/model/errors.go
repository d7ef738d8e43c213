// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, listing, upload, system
	Action   string // ユーザー向け対処方法

	// NewCaptchaText はCAPTCHA検証に失敗した際に再発行したチャレンジ。
	NewCaptchaText string
	// Listing は販売済みエラーの際に返す現在の出品情報。
	Listing *ListingWithOwner
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeCaptchaMissing  = "CAPTCHA_MISSING"
	ErrCodeCaptchaInvalid  = "CAPTCHA_INVALID"
	ErrCodeInvalidLoginID  = "INVALID_LOGIN_ID"
	ErrCodeUnauthenticated = "UNAUTHENTICATED"
	ErrCodeForbiddenSale   = "FORBIDDEN_SELF_SALE"
	ErrCodeListingNotFound = "LISTING_NOT_FOUND"
	ErrCodeAlreadySold     = "ALREADY_SOLD"
	ErrCodeUploadRejected  = "UPLOAD_REJECTED"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// NewValidationError は入力値エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認して再度送信してください。",
	}
}

// NewCaptchaMissingError はチャレンジ未発行・期限切れエラーを生成する。
// 再試行用に新しいチャレンジを添付する。
func NewCaptchaMissingError(newCaptchaText string) *APIError {
	return &APIError{
		Code:           ErrCodeCaptchaMissing,
		Message:        "CAPTCHA not found in session or has expired. Please refresh CAPTCHA.",
		Category:       "auth",
		Action:         "表示された新しいCAPTCHAを入力してください。",
		NewCaptchaText: newCaptchaText,
	}
}

// NewCaptchaInvalidError はCAPTCHA不一致エラーを生成する。
// 再試行用に新しいチャレンジを添付する。
func NewCaptchaInvalidError(newCaptchaText string) *APIError {
	return &APIError{
		Code:           ErrCodeCaptchaInvalid,
		Message:        "Invalid CAPTCHA. A new one has been generated.",
		Category:       "auth",
		Action:         "表示された新しいCAPTCHAを入力してください。",
		NewCaptchaText: newCaptchaText,
	}
}

// NewInvalidLoginIDError はログインIDの形式・年度エラーを生成する。
func NewInvalidLoginIDError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidLoginID,
		Message:  reason,
		Category: "validation",
		Action:   "学籍番号10桁と大学ドメインからなるログインIDを入力してください。",
	}
}

// NewUnauthenticatedError は未認証エラーを生成する。
func NewUnauthenticatedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "Not authorized, " + reason,
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewForbiddenSaleError は出品者自身による販売確定を拒否するエラーを生成する。
func NewForbiddenSaleError() *APIError {
	return &APIError{
		Code:     ErrCodeForbiddenSale,
		Message:  "Sellers cannot mark their own items as sold using this action.",
		Category: "listing",
		Action:   "購入者が受け取りを確認すると販売済みになります。",
	}
}

// NewListingNotFoundError は出品未検出エラーを生成する。
func NewListingNotFoundError(listingID string) *APIError {
	return &APIError{
		Code:     ErrCodeListingNotFound,
		Message:  fmt.Sprintf("Item not found: %s", listingID),
		Category: "listing",
		Action:   "出品IDを確認してください。",
	}
}

// NewAlreadySoldError は販売済みエラーを生成する。
// クライアント表示用に現在の出品情報を添付する。
func NewAlreadySoldError(current *ListingWithOwner) *APIError {
	return &APIError{
		Code:     ErrCodeAlreadySold,
		Message:  "This item is already marked as sold.",
		Category: "listing",
		Action:   "他の出品を探してください。",
		Listing:  current,
	}
}

// NewUploadRejectedError は画像アップロードの拒否エラーを生成する。
func NewUploadRejectedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUploadRejected,
		Message:  "File upload error: " + reason,
		Category: "upload",
		Action:   "5MB以下のJPEG、PNG、GIF、WEBP画像を選択してください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "指定された時間をおいてから再度お試しください。",
	}
}

// NewInternalError は内部エラーの汎用レスポンスを生成する。
// 詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Server Error",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
