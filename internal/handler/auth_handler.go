// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/hitoshi/campusmarket/internal/auth"
	"github.com/hitoshi/campusmarket/internal/model"
)

const (
	// sessionName はCAPTCHAのセッション識別子を運ぶCookie名。
	sessionName = "campusmarket_session"
	// sessionIDKey はセッションに保存するセッション識別子のキー。
	sessionIDKey = "sid"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	IssueChallenge(ctx context.Context, sessionID string) (string, error)
	Login(ctx context.Context, sessionID, loginID, captchaAnswer string) (*auth.LoginResult, error)
}

// AuthHandlerConfig はセッションCookieの設定。
type AuthHandlerConfig struct {
	SessionSecret string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// NewSessionStore はCAPTCHAのセッション識別子を保存する署名付きCookieストアを生成する。
func NewSessionStore(cfg AuthHandlerConfig) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	maxAge := cfg.SessionMaxAge
	if maxAge <= 0 {
		maxAge = 86400
	}
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// AuthHandler はCAPTCHA取得とログインのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	store   sessions.Store
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, store sessions.Store) *AuthHandler {
	return &AuthHandler{
		service: service,
		store:   store,
	}
}

// --- リクエスト・レスポンス型 ---

type captchaResponse struct {
	CaptchaText string `json:"captchaText"`
}

type loginRequest struct {
	LoginID          string `json:"loginId"`
	UserCaptchaInput string `json:"userCaptchaInput"`
}

type loginUserResponse struct {
	ID      string `json:"id"`
	LoginID string `json:"loginId"`
}

type loginResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      loginUserResponse `json:"user"`
}

// Captcha はセッションに新しいCAPTCHAチャレンジを発行する。
// GET /auth/captcha
func (h *AuthHandler) Captcha(w http.ResponseWriter, r *http.Request) {
	sid, err := h.sessionID(w, r)
	if err != nil {
		slog.Error("failed to save session", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
		return
	}

	text, err := h.service.IssueChallenge(r.Context(), sid)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, captchaResponse{CaptchaText: text})
}

// Login はログインIDとCAPTCHAの回答を検証し、トークンを発行する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Login ID and CAPTCHA are required"))
		return
	}

	sid, err := h.sessionID(w, r)
	if err != nil {
		slog.Error("failed to save session", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
		return
	}

	result, err := h.service.Login(r.Context(), sid, req.LoginID, req.UserCaptchaInput)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User: loginUserResponse{
			ID:      result.Identity.ID,
			LoginID: result.Identity.LoginID,
		},
	})
}

// sessionID はリクエストのセッション識別子を返す。
// セッションが無い場合や改ざんされている場合は新しい識別子を発行してCookieに保存する。
func (h *AuthHandler) sessionID(w http.ResponseWriter, r *http.Request) (string, error) {
	// 復号に失敗した場合も新しいセッションが返るため、エラーは無視する
	session, err := h.store.Get(r, sessionName)
	if session == nil {
		return "", err
	}

	if sid, ok := session.Values[sessionIDKey].(string); ok && sid != "" {
		return sid, nil
	}

	sid := uuid.NewString()
	session.Values[sessionIDKey] = sid
	if err := session.Save(r, w); err != nil {
		return "", err
	}
	return sid, nil
}
