package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	PSGC     PSGCConfig
	Uploads  UploadsConfig
	Drafts   DraftsConfig
	Reset    ResetConfig
	Portal   PortalConfig
	Exports  ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	CookieName string
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PSGCConfig points at the Philippine Standard Geographic Code API used for
// address cascades.
type PSGCConfig struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// UploadsConfig controls enrollment document storage and compression.
type UploadsConfig struct {
	StorageDir          string
	MaxPhotoSizeBytes   int64
	CompressTargetBytes int64
	MaxDimensionPx      int
	SignedURLSecret     string
	SignedURLTTL        time.Duration
}

// DraftsConfig governs the redis-backed enrollment draft sessions.
type DraftsConfig struct {
	TTL time.Duration
}

// ResetConfig governs the password reset code flow.
type ResetConfig struct {
	CodeTTL time.Duration
}

// PortalConfig tunes the read-side portal endpoints.
type PortalConfig struct {
	PendingCountTTL time.Duration
}

// ExportsConfig configures asynchronous registration exports.
type ExportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		CookieName: v.GetString("JWT_COOKIE_NAME"),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.PSGC = PSGCConfig{
		BaseURL:  v.GetString("PSGC_BASE_URL"),
		Timeout:  parseDuration(v.GetString("PSGC_TIMEOUT"), 10*time.Second),
		CacheTTL: parseDuration(v.GetString("PSGC_CACHE_TTL"), 12*time.Hour),
	}

	maxPhoto := v.GetInt64("UPLOADS_MAX_PHOTO_SIZE")
	if maxPhoto <= 0 {
		maxPhoto = 5 * 1024 * 1024
	}
	compressTarget := v.GetInt64("UPLOADS_COMPRESS_TARGET")
	if compressTarget <= 0 {
		compressTarget = 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		StorageDir:          v.GetString("UPLOADS_STORAGE_DIR"),
		MaxPhotoSizeBytes:   maxPhoto,
		CompressTargetBytes: compressTarget,
		MaxDimensionPx:      v.GetInt("UPLOADS_MAX_DIMENSION"),
		SignedURLSecret:     v.GetString("UPLOADS_SIGNED_URL_SECRET"),
		SignedURLTTL:        parseDuration(v.GetString("UPLOADS_SIGNED_URL_TTL"), 30*time.Minute),
	}

	cfg.Drafts = DraftsConfig{
		TTL: parseDuration(v.GetString("DRAFT_TTL"), 7*24*time.Hour),
	}

	cfg.Reset = ResetConfig{
		CodeTTL: parseDuration(v.GetString("RESET_CODE_TTL"), 10*time.Minute),
	}

	cfg.Portal = PortalConfig{
		PendingCountTTL: parseDuration(v.GetString("PORTAL_PENDING_COUNT_TTL"), 5*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		Enabled:           v.GetBool("ENABLE_EXPORTS"),
		StorageDir:        v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("EXPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("EXPORTS_WORKER_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "enrollment_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_COOKIE_NAME", "portal_session")
	v.SetDefault("JWT_ISSUER", "enroll-portal-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PSGC_BASE_URL", "https://psgc.gitlab.io/api")
	v.SetDefault("PSGC_TIMEOUT", "10s")
	v.SetDefault("PSGC_CACHE_TTL", "12h")

	v.SetDefault("UPLOADS_STORAGE_DIR", "./documents")
	v.SetDefault("UPLOADS_MAX_PHOTO_SIZE", 5*1024*1024)
	v.SetDefault("UPLOADS_COMPRESS_TARGET", 1024*1024)
	v.SetDefault("UPLOADS_MAX_DIMENSION", 1920)
	v.SetDefault("UPLOADS_SIGNED_URL_SECRET", "dev_uploads_secret")
	v.SetDefault("UPLOADS_SIGNED_URL_TTL", "30m")

	v.SetDefault("DRAFT_TTL", "168h")
	v.SetDefault("RESET_CODE_TTL", "10m")
	v.SetDefault("PORTAL_PENDING_COUNT_TTL", "5m")

	v.SetDefault("ENABLE_EXPORTS", false)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("EXPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("EXPORTS_WORKER_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
