package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/campusmarket/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
// CAPTCHAエラーでは再発行したチャレンジを、販売済みエラーでは現在の出品を添付する。
type ErrorResponseBody struct {
	Code           string `json:"code"`
	Message        string `json:"msg"`
	Category       string `json:"category"`
	Action         string `json:"action"`
	NewCaptchaText string `json:"newCaptchaText,omitempty"`
	Item           any    `json:"item,omitempty"`
}

// NewErrorResponseBody はAPIErrorからレスポンスボディを組み立てる。
// Itemは表現形式がハンドラーごとに異なるため呼び出し側で設定する。
func NewErrorResponseBody(apiErr *model.APIError) ErrorResponseBody {
	return ErrorResponseBody{
		Code:           apiErr.Code,
		Message:        apiErr.Message,
		Category:       apiErr.Category,
		Action:         apiErr.Action,
		NewCaptchaText: apiErr.NewCaptchaText,
	}
}

// WriteErrorBody はレスポンスボディをそのままJSONで書き込む。
func WriteErrorBody(w http.ResponseWriter, statusCode int, body ErrorResponseBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode error response", slog.String("error", err.Error()))
	}
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	WriteErrorBody(w, statusCode, NewErrorResponseBody(apiErr))
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}
