package config

import (
	"errors"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Local dataset backends.
const (
	DatasetSeed     = "seed"
	DatasetPostgres = "postgres"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Authority AuthorityConfig
	Sync      SyncConfig
	Cache     AggregateCacheConfig
	Reconcile ReconcileConfig
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
	Secret string
	Expiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AuthorityConfig describes how the remote statutory authority is reached.
type AuthorityConfig struct {
	BaseURL         string
	ServiceToken    string
	Timeout         time.Duration
	RetryAttempts   int
	RetryBaseDelay  time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration
}

// SyncConfig tunes the read path of the document engine.
type SyncConfig struct {
	RefreshInterval time.Duration
	DebounceWindow  time.Duration
	DefaultStation  string
	Timezone        string
	LocalDataset    string
}

// AggregateCacheConfig toggles Redis caching of the side aggregates.
type AggregateCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// ReconcileConfig sizes the outbox replay worker pool.
type ReconcileConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
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

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
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
		Secret: v.GetString("JWT_SECRET"),
		Expiry: parseDuration(v.GetString("JWT_EXPIRY"), time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Authority = AuthorityConfig{
		BaseURL:         strings.TrimRight(v.GetString("AUTHORITY_BASE_URL"), "/"),
		ServiceToken:    v.GetString("AUTHORITY_SERVICE_TOKEN"),
		Timeout:         parseDuration(v.GetString("AUTHORITY_TIMEOUT"), 15*time.Second),
		RetryAttempts:   positiveInt(v.GetInt("AUTHORITY_RETRY_ATTEMPTS"), 3),
		RetryBaseDelay:  parseDuration(v.GetString("AUTHORITY_RETRY_BASE_DELAY"), time.Second),
		BreakerFailures: positiveInt(v.GetInt("AUTHORITY_BREAKER_FAILURES"), 5),
		BreakerCooldown: parseDuration(v.GetString("AUTHORITY_BREAKER_COOLDOWN"), 30*time.Second),
	}

	cfg.Sync = SyncConfig{
		RefreshInterval: parseDuration(v.GetString("SYNC_REFRESH_INTERVAL"), 180*time.Second),
		DebounceWindow:  parseDuration(v.GetString("SYNC_DEBOUNCE"), 300*time.Millisecond),
		DefaultStation:  v.GetString("SYNC_DEFAULT_STATION"),
		Timezone:        v.GetString("SYNC_TIMEZONE"),
		LocalDataset:    strings.ToLower(v.GetString("LOCAL_DATASET")),
	}

	cfg.Cache = AggregateCacheConfig{
		Enabled: v.GetBool("ENABLE_AGGREGATE_CACHE"),
		TTL:     parseDuration(v.GetString("AGGREGATE_CACHE_TTL"), time.Minute),
	}

	cfg.Reconcile = ReconcileConfig{
		Workers:    positiveInt(v.GetInt("RECONCILE_WORKERS"), 1),
		MaxRetries: positiveInt(v.GetInt("RECONCILE_RETRIES"), 3),
		RetryDelay: parseDuration(v.GetString("RECONCILE_RETRY_DELAY"), 5*time.Second),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "station_compliance")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRY", "1h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("AUTHORITY_BASE_URL", "http://localhost:4000/api")
	v.SetDefault("AUTHORITY_SERVICE_TOKEN", "")
	v.SetDefault("AUTHORITY_TIMEOUT", "15000")
	v.SetDefault("AUTHORITY_RETRY_ATTEMPTS", 3)
	v.SetDefault("AUTHORITY_RETRY_BASE_DELAY", "1000")
	v.SetDefault("AUTHORITY_BREAKER_FAILURES", 5)
	v.SetDefault("AUTHORITY_BREAKER_COOLDOWN", "30s")

	v.SetDefault("SYNC_REFRESH_INTERVAL", "180000")
	v.SetDefault("SYNC_DEBOUNCE", "300")
	v.SetDefault("SYNC_DEFAULT_STATION", "")
	v.SetDefault("SYNC_TIMEZONE", "UTC")
	v.SetDefault("LOCAL_DATASET", DatasetSeed)

	v.SetDefault("ENABLE_AGGREGATE_CACHE", false)
	v.SetDefault("AGGREGATE_CACHE_TTL", "1m")

	v.SetDefault("RECONCILE_WORKERS", 1)
	v.SetDefault("RECONCILE_RETRIES", 3)
	v.SetDefault("RECONCILE_RETRY_DELAY", "5s")
}

// parseDuration accepts Go durations ("2s") and bare integers, read as milliseconds.
func parseDuration(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if ms <= 0 {
			return fallback
		}
		return time.Duration(ms) * time.Millisecond
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}

func positiveInt(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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
