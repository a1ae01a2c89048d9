package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション設定を表す
type Config struct {
	Env         string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Store       StoreConfig
	Reservation ReservationConfig
	Signing     SigningConfig
	Payment     PaymentConfig
	Events      EventsConfig
	Retry       RetryConfig
	Tracing     TracingConfig
	Metrics     MetricsConfig
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig はデータベース設定
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig はRedis設定
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// StoreConfig は台帳ストアのバックエンド設定
type StoreConfig struct {
	// Backend は "postgres" または "memory"
	Backend        string
	MigrationsPath string
}

// ReservationConfig は仮押さえと期限切れスイープの設定
type ReservationConfig struct {
	HoldTTL        time.Duration
	SweepInterval  time.Duration
	SweepBatchSize int
	LockTTL        time.Duration
	LockRetries    int
	LockRetryDelay time.Duration
}

// SigningConfig はチケット署名鍵の設定
type SigningConfig struct {
	KeyDir         string
	RetiredKeysDir string
}

// PaymentConfig は決済プロセッサの設定
// ProcessorURL が空の場合はサンドボックスを使う
type PaymentConfig struct {
	ProcessorURL string
	APIKey       string
	Timeout      time.Duration
	Currency     string
}

// EventsConfig はドメインイベント配信の設定
type EventsConfig struct {
	// Backend は "redis" または "memory"
	Backend string
}

// RetryConfig は一時的エラーのリトライ設定
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
}

// TracingConfig はトレーシング設定
type TracingConfig struct {
	JaegerEndpoint string
	ServiceName    string
}

// MetricsConfig は /metrics エンドポイントの Basic 認証設定
// 両方が設定されている場合のみ認証を要求する
type MetricsConfig struct {
	User     string
	Password string
}

// Load は環境変数から設定を読み込む
// DATABASE_URL / REDIS_URL が設定されている場合は個別の環境変数より優先する
func Load() *Config {
	cfg := load()
	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		applyDatabaseURL(&cfg.Database, raw)
	}
	if raw := os.Getenv("REDIS_URL"); raw != "" {
		applyRedisURL(&cfg.Redis, raw)
	}
	return cfg
}

func load() *Config {
	return &Config{
		Env: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "venuego"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Store: StoreConfig{
			Backend:        getEnv("STORE_BACKEND", "postgres"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Reservation: ReservationConfig{
			HoldTTL:        getDurationEnv("HOLD_TTL", 10*time.Minute),
			SweepInterval:  getDurationEnv("SWEEP_INTERVAL", 30*time.Second),
			SweepBatchSize: getIntEnv("SWEEP_BATCH_SIZE", 100),
			LockTTL:        getDurationEnv("LOCK_TTL", 5*time.Second),
			LockRetries:    getIntEnv("LOCK_RETRIES", 3),
			LockRetryDelay: getDurationEnv("LOCK_RETRY_DELAY", 50*time.Millisecond),
		},
		Signing: SigningConfig{
			KeyDir:         getEnv("SIGNING_KEY_DIR", "var/keys"),
			RetiredKeysDir: getEnv("SIGNING_RETIRED_KEYS_DIR", ""),
		},
		Payment: PaymentConfig{
			ProcessorURL: getEnv("PAYMENT_PROCESSOR_URL", ""),
			APIKey:       getEnv("PAYMENT_API_KEY", ""),
			Timeout:      getDurationEnv("PAYMENT_TIMEOUT", 5*time.Second),
			Currency:     getEnv("PAYMENT_CURRENCY", "INR"),
		},
		Events: EventsConfig{
			Backend: getEnv("EVENTS_BACKEND", "redis"),
		},
		Retry: RetryConfig{
			MaxAttempts:     getIntEnv("RETRY_MAX_ATTEMPTS", 3),
			InitialInterval: getDurationEnv("RETRY_INITIAL_INTERVAL", 100*time.Millisecond),
			MaxElapsedTime:  getDurationEnv("RETRY_MAX_ELAPSED", 2*time.Second),
		},
		Tracing: TracingConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", ""),
			ServiceName:    getEnv("SERVICE_NAME", "venuego"),
		},
		Metrics: MetricsConfig{
			User:     getEnv("METRICS_USER", ""),
			Password: getEnv("METRICS_PASSWORD", ""),
		},
	}
}

// DSN はPostgreSQL接続文字列を返す
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// Addr はRedis接続アドレスを返す
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// UsesPostgres は台帳ストアがPostgreSQLかを返す
func (c *StoreConfig) UsesPostgres() bool {
	return c.Backend != "memory"
}

// UsesRedis はイベント配信にRedis Streamsを使うかを返す
func (c *EventsConfig) UsesRedis() bool {
	return c.Backend != "memory"
}

// AuthEnabled は /metrics に認証が必要かを返す
func (c *MetricsConfig) AuthEnabled() bool {
	return c.User != "" && c.Password != ""
}

func applyDatabaseURL(c *DatabaseConfig, raw string) {
	u, err := url.Parse(raw)
	if err != nil {
		return
	}
	c.Host = u.Hostname()
	if p := u.Port(); p != "" {
		c.Port = p
	}
	if u.User != nil {
		c.User = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			c.Password = pw
		}
	}
	if name := strings.TrimPrefix(u.Path, "/"); name != "" {
		c.DBName = name
	}
	c.SSLMode = "require"
	if mode := u.Query().Get("sslmode"); mode != "" {
		c.SSLMode = mode
	}
}

func applyRedisURL(c *RedisConfig, raw string) {
	u, err := url.Parse(raw)
	if err != nil {
		return
	}
	c.Host = u.Hostname()
	if p := u.Port(); p != "" {
		c.Port = p
	}
	if u.User != nil {
		if pw, ok := u.User.Password(); ok {
			c.Password = pw
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
