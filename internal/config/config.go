package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Token
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Telemetry retention
	RetentionCap  int // ウォッチごとの保持レコード数上限
	RetentionDays int // 日次クリーンアップの保持日数

	// Audio
	MaxAudioSize int64 // 録音音声の最大サイズ（バイト）

	// Classifier（感情分類サービス）
	ClassifierURL            string // 空の場合は分類を行わない
	ClassifierTimeout        time.Duration
	ClassifyBatchInterval    time.Duration
	ClassifyAPIInterval      time.Duration
	ClassifyMaxCallsPerCycle int

	// Rate Limit
	RateLimitGeneral int // req/min/user
	RateLimitIngest  int // req/min/serial

	// Password
	BcryptCost int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
// 署名シークレットの欠落は設定エラーであり、リクエスト単位ではなく起動時に失敗させる。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.AccessTokenTTL = getEnvDuration("ACCESS_TOKEN_TTL", time.Hour)
	cfg.RefreshTokenTTL = getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	cfg.RetentionCap = getEnvInt("TELEMETRY_RETENTION_CAP", 10)
	cfg.RetentionDays = getEnvInt("TELEMETRY_RETENTION_DAYS", 180)
	cfg.MaxAudioSize = getEnvInt64("MAX_AUDIO_SIZE", 5242880)
	cfg.ClassifierURL = getEnvString("CLASSIFIER_URL", "")
	cfg.ClassifierTimeout = getEnvDuration("CLASSIFIER_TIMEOUT", 10*time.Second)
	cfg.ClassifyBatchInterval = getEnvDuration("CLASSIFY_BATCH_INTERVAL", 10*time.Minute)
	cfg.ClassifyAPIInterval = getEnvDuration("CLASSIFY_API_INTERVAL", 5*time.Second)
	cfg.ClassifyMaxCallsPerCycle = getEnvInt("CLASSIFY_MAX_CALLS_PER_CYCLE", 100)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitIngest = getEnvInt("RATE_LIMIT_INGEST", 60)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if cfg.RetentionCap < 1 {
		return nil, fmt.Errorf("TELEMETRY_RETENTION_CAP must be >= 1, got %d", cfg.RetentionCap)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
