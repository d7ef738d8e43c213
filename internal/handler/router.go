package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"github.com/hitoshi/campusmarket/internal/metrics"
	"github.com/hitoshi/campusmarket/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenVerifier     middleware.TokenVerifier
	IdentityFinder    middleware.IdentityFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector

	// ヘルスチェック・メトリクス
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService  AuthServiceInterface
	SessionStore sessions.Store

	// 出品
	ItemService    ItemServiceInterface
	SaleService    SaleServiceInterface
	MaxUploadBytes int64
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → Logging → Metrics → Recovery → SecurityHeaders → CORS
//	  /auth/*  : LoginRateLimit
//	  /items/* : (書き込み系のみ) Auth → GeneralRateLimit
//
// 全てのAPIルートは旧クライアント互換のため /api 配下にも同じものを配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	mc := deps.Metrics
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(mc))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	api := newAPIRouter(deps)
	r.Mount("/api", api)
	r.Mount("/", api)

	return r
}

// newAPIRouter は認証と出品のルートを持つサブルーターを返す。
func newAPIRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	authHandler := NewAuthHandler(deps.AuthService, deps.SessionStore)
	itemHandler := NewItemHandler(deps.ItemService, deps.SaleService, deps.MaxUploadBytes)
	requireAuth := middleware.NewAuthMiddleware(deps.TokenVerifier, deps.IdentityFinder)

	// --- 認証ルート（IP単位のレート制限） ---
	r.Route("/auth", func(r chi.Router) {
		r.Use(deps.RateLimiter.LoginMiddleware())
		r.Get("/captcha", authHandler.Captcha)
		r.Post("/login", authHandler.Login)
	})

	// --- 出品ルート ---
	r.Route("/items", func(r chi.Router) {
		r.With(deps.RateLimiter.GeneralMiddleware()).Get("/", itemHandler.ListItems)
		r.With(deps.RateLimiter.GeneralMiddleware()).Get("/{id}", itemHandler.GetItem)

		// ミドルウェアスタック: Auth → RateLimit(General)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(deps.RateLimiter.GeneralMiddleware())
			r.Post("/", itemHandler.CreateItem)
			r.Put("/{id}/sell", itemHandler.SellItem)
		})
	})

	return r
}
