package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Shop         ShopConfig
	Gateways     GatewayConfig
	Bus          BusConfig
	Notification NotificationConfig
	Worker       WorkerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values and the bay lock toggle.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	BayLockEnabled bool
	BayLockTTLSec  int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token verification parameters.
type AuthConfig struct {
	JWTSecret string
}

// ShopConfig describes the physical shop.
type ShopConfig struct {
	TotalBays int
}

// GatewayConfig holds collaborator base URLs. Empty means not configured.
type GatewayConfig struct {
	VehicleURL    string
	InventoryURL  string
	TechnicianURL string
	BillingURL    string
	CustomerURL   string
	TimeoutMillis int
}

// BusConfig selects the notification transport.
type BusConfig struct {
	Driver   string
	URL      string
	Exchange string
	Topic    string
}

// NotificationConfig holds stub notification settings for the in-memory bus.
type NotificationConfig struct {
	EmailFrom string
}

// WorkerConfig controls background reconciliation.
type WorkerConfig struct {
	WorkloadReconcileIntervalSec int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	totalBays, err := strconv.Atoi(getEnv("SHOP_TOTAL_BAYS", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHOP_TOTAL_BAYS: %w", err)
	}
	if totalBays <= 0 {
		return nil, fmt.Errorf("SHOP_TOTAL_BAYS must be positive, got %d", totalBays)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "service-request-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:       os.Getenv("REDIS_PASSWORD"),
			DB:             redisDB,
			BayLockEnabled: getEnvAsBool("REDIS_BAY_LOCK_ENABLED", false),
			BayLockTTLSec:  getEnvAsInt("REDIS_BAY_LOCK_TTL_SECONDS", 10),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", "dev-secret"),
		},
		Shop: ShopConfig{
			TotalBays: totalBays,
		},
		Gateways: GatewayConfig{
			VehicleURL:    os.Getenv("VEHICLE_SERVICE_URL"),
			InventoryURL:  os.Getenv("INVENTORY_SERVICE_URL"),
			TechnicianURL: os.Getenv("TECHNICIAN_SERVICE_URL"),
			BillingURL:    os.Getenv("BILLING_SERVICE_URL"),
			CustomerURL:   os.Getenv("CUSTOMER_SERVICE_URL"),
			TimeoutMillis: getEnvAsInt("GATEWAY_TIMEOUT_MS", 3000),
		},
		Bus: BusConfig{
			Driver:   getEnv("BUS_DRIVER", "memory"),
			URL:      os.Getenv("BUS_URL"),
			Exchange: getEnv("BUS_EXCHANGE", "service-shop.events"),
			Topic:    getEnv("BUS_TOPIC", "service-shop.notifications"),
		},
		Notification: NotificationConfig{
			EmailFrom: getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
		},
		Worker: WorkerConfig{
			WorkloadReconcileIntervalSec: getEnvAsInt("WORKLOAD_RECONCILE_INTERVAL_SECONDS", 60),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout bounds every collaborator call.
func (g GatewayConfig) Timeout() time.Duration {
	if g.TimeoutMillis <= 0 {
		return 3 * time.Second
	}
	return time.Duration(g.TimeoutMillis) * time.Millisecond
}

// BayLockTTL returns how long a Redis bay lock may be held.
func (r RedisConfig) BayLockTTL() time.Duration {
	if r.BayLockTTLSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(r.BayLockTTLSec) * time.Second
}

// ReconcileInterval returns zero when reconciliation is disabled.
func (w WorkerConfig) ReconcileInterval() time.Duration {
	if w.WorkloadReconcileIntervalSec <= 0 {
		return 0
	}
	return time.Duration(w.WorkloadReconcileIntervalSec) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
