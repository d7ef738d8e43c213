// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/campusmarket/internal/auth"
	"github.com/hitoshi/campusmarket/internal/model"
)

// legacyTokenHeader は旧クライアントがトークンを送るヘッダー名。
const legacyTokenHeader = "x-auth-token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに認証済みidentityを格納するためのキー。
var identityContextKey = contextKey("identity")

// TokenVerifier はベアラートークンの検証に必要なインターフェース。
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// IdentityFinder はidentityの検索に必要なインターフェース。
// repository.IdentityRepositoryの部分集合として定義する。
type IdentityFinder interface {
	FindByID(ctx context.Context, id string) (*model.Identity, error)
}

// NewAuthMiddleware はリクエストのトークンを検証し、identityを解決するミドルウェアを返す。
//
// トークンは Authorization: Bearer <token> を優先し、無い場合は x-auth-token ヘッダーを使う。
// トークンが無い、署名や有効期限の検証に失敗した、identityが存在しない場合は401を返す。
func NewAuthMiddleware(verifier TokenVerifier, identities IdentityFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. トークンの取り出し
			token := tokenFromRequest(r)
			if token == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError("no token"))
				return
			}

			// 2. 署名と有効期限の検証
			claims, err := verifier.Verify(token)
			if err != nil {
				if !errors.Is(err, auth.ErrInvalidToken) {
					slog.Error("failed to verify token", slog.String("error", err.Error()))
				}
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError("token failed"))
				return
			}

			// 3. identityの解決
			identity, err := identities.FindByID(r.Context(), claims.User.ID)
			if err != nil {
				slog.Error("failed to resolve identity",
					slog.String("user_id", claims.User.ID),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if identity == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError("user not found"))
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}

// tokenFromRequest はAuthorizationヘッダー、x-auth-tokenヘッダーの順にトークンを探す。
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			if token = strings.TrimSpace(token); token != "" {
				return token
			}
		}
	}
	return strings.TrimSpace(r.Header.Get(legacyTokenHeader))
}

// ContextWithIdentity はコンテキストに認証済みidentityを注入する。
// ロギングミドルウェアの内側で呼ばれた場合はリクエストログにもユーザーIDを記録する。
func ContextWithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	if info, ok := ctx.Value(requestInfoContextKey).(*requestInfo); ok {
		info.setUserID(identity.ID)
	}
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext はリクエストコンテキストから認証済みidentityを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (*model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*model.Identity)
	return identity, ok && identity != nil
}

// UserIDFromContext はリクエストコンテキストから認証済みユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	identity, ok := IdentityFromContext(ctx)
	if !ok || identity.ID == "" {
		return "", errors.New("user ID not found in context")
	}
	return identity.ID, nil
}
