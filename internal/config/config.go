package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// MediaBackend は画像の保存先の種別。
type MediaBackend string

const (
	// MediaBackendLocal はローカルディスクに保存する。
	MediaBackendLocal MediaBackend = "local"
	// MediaBackendS3 はS3互換オブジェクトストレージに保存する。
	MediaBackendS3 MediaBackend = "s3"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Token
	JWTSecret string
	TokenTTL  time.Duration

	// Session（CAPTCHAのセッション識別子を運ぶCookie）
	SessionSecret string
	CookieSecure  bool

	// Login
	LoginIDDomain string
	LoginMinYear  int

	// Captcha
	CaptchaLength int
	CaptchaTTL    time.Duration

	// Media
	MediaBackend    MediaBackend
	UploadDir       string
	UploadURLPrefix string
	MediaMaxBytes   int64
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3PublicBaseURL string

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitLogin   int

	// Worker
	ChallengeCleanupInterval time.Duration

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// ConfigError は起動時に検出される致命的な設定不備を表す。
// リクエスト単位では回復できないため、プロセスは起動を中止する。
type ConfigError struct {
	Missing []string
	Reason  string
}

// Error はerrorインターフェースを実装する。
func (e *ConfigError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("required environment variables are not set: %v", e.Missing)
	}
	return "invalid configuration: " + e.Reason
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は*ConfigErrorを返す。
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

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	if len(missing) > 0 {
		return nil, &ConfigError{Missing: missing}
	}

	// Optional fields with defaults
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", 5*time.Hour)
	cfg.CookieSecure = getEnvBool("COOKIE_SECURE", false)
	cfg.LoginIDDomain = getEnvString("LOGIN_ID_DOMAIN", "student.annauniv.edu")
	cfg.LoginMinYear = getEnvInt("LOGIN_MIN_YEAR", 2000)
	cfg.CaptchaLength = getEnvInt("CAPTCHA_LENGTH", 6)
	cfg.CaptchaTTL = getEnvDuration("CAPTCHA_TTL", 10*time.Minute)
	cfg.MediaBackend = MediaBackend(strings.ToLower(getEnvString("MEDIA_BACKEND", string(MediaBackendLocal))))
	cfg.UploadDir = getEnvString("UPLOAD_DIR", "uploads")
	cfg.UploadURLPrefix = getEnvString("UPLOAD_URL_PREFIX", "/uploads")
	cfg.MediaMaxBytes = getEnvInt64("MEDIA_MAX_BYTES", 5242880)
	cfg.S3Bucket = os.Getenv("S3_BUCKET")
	cfg.S3Region = getEnvString("S3_REGION", "us-east-1")
	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3AccessKey = os.Getenv("S3_ACCESS_KEY")
	cfg.S3SecretKey = os.Getenv("S3_SECRET_KEY")
	cfg.S3PublicBaseURL = os.Getenv("S3_PUBLIC_BASE_URL")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 20)
	cfg.ChallengeCleanupInterval = getEnvDuration("CHALLENGE_CLEANUP_INTERVAL", time.Hour)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	if err := cfg.validateMedia(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateMedia は画像保存先の設定の整合性を検証する。
// S3を選択した場合はバケットと認証情報を必須とする。
func (c *Config) validateMedia() error {
	switch c.MediaBackend {
	case MediaBackendLocal:
		return nil
	case MediaBackendS3:
		var missing []string
		if c.S3Bucket == "" {
			missing = append(missing, "S3_BUCKET")
		}
		if c.S3AccessKey == "" {
			missing = append(missing, "S3_ACCESS_KEY")
		}
		if c.S3SecretKey == "" {
			missing = append(missing, "S3_SECRET_KEY")
		}
		if len(missing) > 0 {
			return &ConfigError{Missing: missing}
		}
		return nil
	default:
		return &ConfigError{Reason: fmt.Sprintf("unknown MEDIA_BACKEND %q", c.MediaBackend)}
	}
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

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
