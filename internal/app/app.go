// Package app はアプリケーションの起動と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/mimamori/internal/audio"
	"github.com/hitoshi/mimamori/internal/auth"
	"github.com/hitoshi/mimamori/internal/config"
	"github.com/hitoshi/mimamori/internal/database"
	"github.com/hitoshi/mimamori/internal/handler"
	"github.com/hitoshi/mimamori/internal/inference"
	"github.com/hitoshi/mimamori/internal/logger"
	"github.com/hitoshi/mimamori/internal/metrics"
	"github.com/hitoshi/mimamori/internal/middleware"
	"github.com/hitoshi/mimamori/internal/ownership"
	"github.com/hitoshi/mimamori/internal/repository"
	"github.com/hitoshi/mimamori/internal/retention"
	"github.com/hitoshi/mimamori/internal/security"
	"github.com/hitoshi/mimamori/internal/telemetry"
	"github.com/hitoshi/mimamori/internal/token"
	"github.com/hitoshi/mimamori/internal/user"
	"github.com/hitoshi/mimamori/internal/worker/classify"
	"github.com/hitoshi/mimamori/internal/worker/cleanup"
	"github.com/hitoshi/mimamori/internal/zone"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	watchDataRepo := repository.NewPostgresWatchDataRepo(db)
	audioRepo := repository.NewPostgresAudioRepo(db)
	zoneRepo := repository.NewPostgresZoneRepo(db)

	// 3. メトリクスとセキュリティサービスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	sanitizer := security.NewInputSanitizer()
	urlGuard := security.NewURLGuard()

	// 4. トークンと所有権ゲートの初期化
	codec, err := token.NewCodec(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}
	lifecycle := token.NewLifecycle(codec, userRepo, token.LifecycleConfig{
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	gate := ownership.NewGate(userRepo)

	// 5. 保持上限の初期化（ストリームごとに独立したインスタンス）
	telemetryEnforcer := retention.NewEnforcer(cfg.RetentionCap, "watch_data", collector, slog.Default())
	audioEnforcer := retention.NewEnforcer(cfg.RetentionCap, "recorded_audio", collector, slog.Default())

	// 6. 感情分類クライアント（CLASSIFIER_URL未設定の場合は受信時分類を行わない）
	var classifier inference.ClassifierService
	if cfg.ClassifierURL != "" {
		classifier = inference.NewClient(
			cfg.ClassifierURL,
			urlGuard.NewSafeClient(cfg.ClassifierTimeout),
			slog.Default(),
			collector,
		)
	}

	// 7. ドメインサービスの初期化
	authService := auth.NewService(userRepo, lifecycle, sanitizer, collector, cfg.BcryptCost)
	userService := user.NewService(userRepo, sanitizer, urlGuard)
	telemetryService := telemetry.NewService(watchDataRepo, gate, telemetryEnforcer, collector)
	audioService := audio.NewService(audioRepo, gate, audioEnforcer, classifier, collector, cfg.MaxAudioSize)
	zoneService := zone.NewService(zoneRepo, gate, sanitizer)

	// 8. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(rateLimiterConfig(cfg))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		AccessVerifier:    lifecycle,
		RateLimiter:       rateLimiter,
		Collector:         collector,
		Gatherer:          registry,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Logger:            slog.Default(),

		AuthService: authService,
		Rotator:     lifecycle,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:        cfg.CookieDomain,
			CookieSecure:        cfg.CookieSecure,
			RefreshCookieMaxAge: int(cfg.RefreshTokenTTL.Seconds()),
		},

		TelemetryService: telemetryService,
		AudioService:     audioService,
		ZoneService:      zoneService,
		UserService:      userService,
		DB:               db,
	})

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 未分類音声の感情分類バッチジョブと、保持日数超過レコードの日次クリーンアップを実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリとメトリクスの初期化
	watchDataRepo := repository.NewPostgresWatchDataRepo(db)
	audioRepo := repository.NewPostgresAudioRepo(db)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(watchDataRepo, audioRepo, slog.Default())
	cleanupJob.RetentionDays = cfg.RetentionDays

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	// 4. 感情分類バッチジョブ（CLASSIFIER_URL未設定の場合はスキップ）
	if cfg.ClassifierURL != "" {
		urlGuard := security.NewURLGuard()
		classifier := inference.NewClient(
			cfg.ClassifierURL,
			urlGuard.NewSafeClient(cfg.ClassifierTimeout),
			slog.Default(),
			collector,
		)
		batchJob := classify.NewBatchJob(audioRepo, classifier, slog.Default(), classify.BatchConfig{
			BatchInterval:    cfg.ClassifyBatchInterval,
			APIInterval:      cfg.ClassifyAPIInterval,
			MaxCallsPerCycle: cfg.ClassifyMaxCallsPerCycle,
		})
		go batchJob.Start(ctx)
	} else {
		slog.Info("CLASSIFIER_URLが未設定のため感情分類バッチジョブをスキップします")
	}

	slog.Info("worker starting",
		slog.Int("retention_days", cfg.RetentionDays),
		slog.Bool("classifier_enabled", cfg.ClassifierURL != ""),
	)

	// 5. クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	cleanupJob.Start(ctx)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// rateLimiterConfig はConfigのreq/min設定をレートリミッターの設定に変換する。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	c := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		c.GeneralRate = rateLimitPerSecond(cfg.RateLimitGeneral)
		c.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitIngest > 0 {
		c.IngestRate = rateLimitPerSecond(cfg.RateLimitIngest)
		c.IngestBurst = cfg.RateLimitIngest
	}
	return c
}

func rateLimitPerSecond(perMinute int) rate.Limit {
	return rate.Limit(float64(perMinute) / 60.0)
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
