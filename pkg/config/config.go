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
	Auth     AuthConfig
	CORS     CORSConfig
	Log      LogConfig
	Uploads  UploadsConfig
	Students StudentsConfig
}

// DatabaseConfig describes the embedded SQLite store.
type DatabaseConfig struct {
	Path        string
	BusyTimeout time.Duration
}

// AuthConfig carries the admin credential pair and token settings.
type AuthConfig struct {
	JWTSecret     string
	TokenExpiry   time.Duration
	Issuer        string
	AdminUser     string
	AdminPassword string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// UploadsConfig controls identity-document storage and validation.
type UploadsConfig struct {
	Dir              string
	AllowedExts      []string
	MaxFileSizeBytes int64
	SignedURLSecret  string
	SignedURLTTL     time.Duration
}

// StudentsConfig holds record-store leniency knobs.
type StudentsConfig struct {
	// StrictFees turns unparseable fee values into validation errors
	// instead of coercing them to zero.
	StrictFees bool
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
		Path:        v.GetString("DB_PATH"),
		BusyTimeout: parseDuration(v.GetString("DB_BUSY_TIMEOUT"), 5*time.Second),
	}

	cfg.Auth = AuthConfig{
		JWTSecret:     v.GetString("JWT_SECRET"),
		TokenExpiry:   parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:        v.GetString("JWT_ISSUER"),
		AdminUser:     v.GetString("ADMIN_USER"),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxUploadSize := v.GetInt64("UPLOADS_MAX_FILE_SIZE")
	if maxUploadSize <= 0 {
		maxUploadSize = 5 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		Dir:              v.GetString("UPLOADS_DIR"),
		AllowedExts:      splitAndTrim(v.GetString("UPLOADS_ALLOWED_EXTS")),
		MaxFileSizeBytes: maxUploadSize,
		SignedURLSecret:  v.GetString("UPLOADS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("UPLOADS_SIGNED_URL_TTL"), 30*time.Minute),
	}

	cfg.Students = StudentsConfig{
		StrictFees: v.GetBool("STRICT_FEES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_PATH", "./database/library.db")
	v.SetDefault("DB_BUSY_TIMEOUT", "5s")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "library-admin-api")
	v.SetDefault("ADMIN_USER", "admin")
	v.SetDefault("ADMIN_PASSWORD", "admin")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("UPLOADS_DIR", "./uploads")
	// Union of the allow-lists seen across revisions.
	v.SetDefault("UPLOADS_ALLOWED_EXTS", "png,jpg,jpeg,gif,webp")
	v.SetDefault("UPLOADS_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("UPLOADS_SIGNED_URL_SECRET", "dev_uploads_secret")
	v.SetDefault("UPLOADS_SIGNED_URL_TTL", "30m")

	v.SetDefault("STRICT_FEES", false)
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
