package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/mimamori/internal/metrics"
	"github.com/hitoshi/mimamori/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	AccessVerifier    middleware.AccessVerifier
	RateLimiter       *middleware.RateLimiter
	Collector         metrics.MetricsCollector
	Gatherer          prometheus.Gatherer
	CORSAllowedOrigin string
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	Rotator     RefreshRotator
	AuthConfig  AuthHandlerConfig

	// テレメトリ・録音音声
	TelemetryService TelemetryServiceInterface
	AudioService     AudioServiceInterface

	// 許可エリア
	ZoneService ZoneServiceInterface

	// ユーザー
	UserService UserServiceInterface

	// ヘルスチェック
	DB Pinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → Logging → Auth(Bearer) → RateLimit(General)
//
// 認証ルート（/api/auth/*）、/health、/metricsは認証ミドルウェアの外に配置する。
// テレメトリ・音声の受信ルートにはさらに受信専用のレート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	authHandler := NewAuthHandler(deps.AuthService, deps.Rotator, deps.AuthConfig)
	telemetryHandler := NewTelemetryHandler(deps.TelemetryService)
	audioHandler := NewAudioHandler(deps.AudioService)
	zoneHandler := NewZoneHandler(deps.ZoneService)
	userHandler := NewUserHandler(deps.UserService, authHandler)
	healthHandler := NewHealthHandler(deps.DB)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler.Check)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Post("/refresh-token", authHandler.RefreshToken)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth(Bearer) → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.AccessVerifier, deps.Collector))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// テレメトリ（受信は受信専用レート制限を追加）
		r.Route("/api/watch-data", func(r chi.Router) {
			r.With(deps.RateLimiter.IngestMiddleware()).Post("/", telemetryHandler.Submit)
			r.Get("/{serialNumber}", telemetryHandler.GetLatest)
		})

		// 録音音声
		r.Route("/api/audio", func(r chi.Router) {
			r.With(deps.RateLimiter.IngestMiddleware()).Post("/", audioHandler.Submit)
			r.Get("/{serialNumber}", audioHandler.GetLatest)
			r.Get("/file/{audioId}", audioHandler.GetFile)
		})

		// ウォッチ紐付け
		r.Post("/api/link-watch", userHandler.LinkWatch)

		// 許可エリア
		r.Route("/api/allowed-zone", func(r chi.Router) {
			r.Post("/", zoneHandler.Add)
			r.Get("/{serialNumber}", zoneHandler.List)
			r.Delete("/{zoneId}", zoneHandler.Remove)
		})

		// プロフィール
		r.Route("/api/user/me", func(r chi.Router) {
			r.Get("/", userHandler.Me)
			r.Patch("/", userHandler.UpdateProfile)
			r.Delete("/", userHandler.Withdraw)
		})
	})

	return r
}
