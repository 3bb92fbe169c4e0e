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
	BaseURL   string

	Admin     AdminConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Dashboard DashboardConfig
	Notifier  NotifierConfig
	Uploads   UploadsConfig
	Assistant AssistantConfig
}

// AdminConfig identifies the single recognized administrator account.
// The role is assigned once at registration from this email and stored;
// it is never re-derived per request.
type AdminConfig struct {
	Email string
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
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DashboardConfig governs stat aggregation caching.
type DashboardConfig struct {
	CacheTTL time.Duration
}

// NotifierConfig configures the transactional-email collaborator and the
// outbox dispatch workers.
type NotifierConfig struct {
	Enabled           bool
	ServiceURL        string
	ServiceID         string
	TemplateID        string
	PublicKey         string
	RequestTimeout    time.Duration
	WorkerConcurrency int
	WorkerRetries     int
	RetryDelay        time.Duration
}

// UploadsConfig configures the MinIO photo store.
type UploadsConfig struct {
	Endpoint         string
	AccessKey        string
	SecretKey        string
	Bucket           string
	UseSSL           bool
	PublicURL        string
	MaxFileSizeBytes int64
}

// AssistantConfig configures the generative-language collaborator used by
// the Mindes chat and report summarization endpoints.
type AssistantConfig struct {
	Enabled        bool
	APIURL         string
	APIKey         string
	Model          string
	RequestTimeout time.Duration
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
	cfg.BaseURL = v.GetString("BASE_URL")

	cfg.Admin = AdminConfig{Email: strings.ToLower(v.GetString("ADMIN_EMAIL"))}

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
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Notifier = NotifierConfig{
		Enabled:           v.GetBool("NOTIFIER_ENABLED"),
		ServiceURL:        v.GetString("NOTIFIER_SERVICE_URL"),
		ServiceID:         v.GetString("NOTIFIER_SERVICE_ID"),
		TemplateID:        v.GetString("NOTIFIER_TEMPLATE_ID"),
		PublicKey:         v.GetString("NOTIFIER_PUBLIC_KEY"),
		RequestTimeout:    parseDuration(v.GetString("NOTIFIER_REQUEST_TIMEOUT"), 10*time.Second),
		WorkerConcurrency: v.GetInt("NOTIFIER_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("NOTIFIER_WORKER_RETRIES"),
		RetryDelay:        parseDuration(v.GetString("NOTIFIER_RETRY_DELAY"), 30*time.Second),
	}

	maxUploadSize := v.GetInt64("UPLOADS_MAX_FILE_SIZE")
	if maxUploadSize <= 0 {
		maxUploadSize = 5 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		Endpoint:         v.GetString("UPLOADS_ENDPOINT"),
		AccessKey:        v.GetString("UPLOADS_ACCESS_KEY"),
		SecretKey:        v.GetString("UPLOADS_SECRET_KEY"),
		Bucket:           v.GetString("UPLOADS_BUCKET"),
		UseSSL:           v.GetBool("UPLOADS_USE_SSL"),
		PublicURL:        v.GetString("UPLOADS_PUBLIC_URL"),
		MaxFileSizeBytes: maxUploadSize,
	}

	cfg.Assistant = AssistantConfig{
		Enabled:        v.GetBool("ASSISTANT_ENABLED"),
		APIURL:         v.GetString("ASSISTANT_API_URL"),
		APIKey:         v.GetString("ASSISTANT_API_KEY"),
		Model:          v.GetString("ASSISTANT_MODEL"),
		RequestTimeout: parseDuration(v.GetString("ASSISTANT_REQUEST_TIMEOUT"), 20*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("BASE_URL", "http://localhost:3000")

	v.SetDefault("ADMIN_EMAIL", "admin@desa.connect")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "aspirasi_desa")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("NOTIFIER_ENABLED", false)
	v.SetDefault("NOTIFIER_SERVICE_URL", "https://api.emailjs.com/api/v1.0/email/send")
	v.SetDefault("NOTIFIER_SERVICE_ID", "")
	v.SetDefault("NOTIFIER_TEMPLATE_ID", "")
	v.SetDefault("NOTIFIER_PUBLIC_KEY", "")
	v.SetDefault("NOTIFIER_REQUEST_TIMEOUT", "10s")
	v.SetDefault("NOTIFIER_WORKER_CONCURRENCY", 1)
	v.SetDefault("NOTIFIER_WORKER_RETRIES", 3)
	v.SetDefault("NOTIFIER_RETRY_DELAY", "30s")

	v.SetDefault("UPLOADS_ENDPOINT", "localhost:9000")
	v.SetDefault("UPLOADS_ACCESS_KEY", "minioadmin")
	v.SetDefault("UPLOADS_SECRET_KEY", "minioadmin")
	v.SetDefault("UPLOADS_BUCKET", "report-photos")
	v.SetDefault("UPLOADS_USE_SSL", false)
	v.SetDefault("UPLOADS_PUBLIC_URL", "")
	v.SetDefault("UPLOADS_MAX_FILE_SIZE", 5*1024*1024)

	v.SetDefault("ASSISTANT_ENABLED", false)
	v.SetDefault("ASSISTANT_API_URL", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("ASSISTANT_API_KEY", "")
	v.SetDefault("ASSISTANT_MODEL", "gemini-2.0-flash")
	v.SetDefault("ASSISTANT_REQUEST_TIMEOUT", "20s")
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
