package config

import (
	"errors"
	"io/fs"
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

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Grading     GradingConfig
	Summary     SummaryConfig
	Identity    IdentityConfig
	Maintenance MaintenanceConfig
}

type DatabaseConfig struct {
	Driver       string
	DSN          string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Issuer            string
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

// GradingConfig lists the component types enabled for this deployment.
type GradingConfig struct {
	Components []string
}

// SummaryConfig tunes summary caching and background refresh.
type SummaryConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	Workers      int
	Concurrency  int
}

// IdentityConfig points at an optional hosted identity provider. Local credentials are used when URL is empty.
type IdentityConfig struct {
	URL        string
	ServiceKey string
	Timeout    time.Duration
}

// MaintenanceConfig schedules periodic housekeeping.
type MaintenanceConfig struct {
	TokenCleanupSchedule string
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Driver:       strings.ToLower(v.GetString("DB_DRIVER")),
		DSN:          v.GetString("DB_DSN"),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Grading = GradingConfig{Components: splitAndTrim(v.GetString("GRADING_COMPONENTS"))}

	cfg.Summary = SummaryConfig{
		CacheEnabled: v.GetBool("ENABLE_SUMMARY_CACHE"),
		CacheTTL:     parseDuration(v.GetString("SUMMARY_CACHE_TTL"), 10*time.Minute),
		Workers:      v.GetInt("SUMMARY_WORKERS"),
		Concurrency:  v.GetInt("SUMMARY_CONCURRENCY"),
	}

	cfg.Identity = IdentityConfig{
		URL:        strings.TrimRight(v.GetString("IDENTITY_PROVIDER_URL"), "/"),
		ServiceKey: v.GetString("IDENTITY_SERVICE_KEY"),
		Timeout:    parseDuration(v.GetString("IDENTITY_TIMEOUT"), 10*time.Second),
	}

	cfg.Maintenance = MaintenanceConfig{
		TokenCleanupSchedule: v.GetString("TOKEN_CLEANUP_SCHEDULE"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8000)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "grades_calculator")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "grades-calculator")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GRADING_COMPONENTS", "PARCIAL,ASIGNACION,PORTAFOLIO,SEMESTRAL,ASISTENCIA")

	v.SetDefault("ENABLE_SUMMARY_CACHE", false)
	v.SetDefault("SUMMARY_CACHE_TTL", "10m")
	v.SetDefault("SUMMARY_WORKERS", 2)
	v.SetDefault("SUMMARY_CONCURRENCY", 4)

	v.SetDefault("IDENTITY_PROVIDER_URL", "")
	v.SetDefault("IDENTITY_SERVICE_KEY", "")
	v.SetDefault("IDENTITY_TIMEOUT", "10s")

	v.SetDefault("TOKEN_CLEANUP_SCHEDULE", "@hourly")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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
