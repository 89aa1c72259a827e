package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const PROD_STRING = "prod"

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	GatewaySandbox  = "sandbox"
	GatewayPayMongo = "paymongo"
)

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction      bool
	ProdOrigins       string
	HTTPAddr          string
	StoreDriver       string
	DBDSN             string
	MigrationsPath    string
	JWTSecret         string
	JWTAccessTokenTTL time.Duration

	// Reservation engine
	HoldTTL               time.Duration
	ReservationFeePerRoom int64
	MaxStayNights         int
	TxMaxAttempts         int
	TxBaseBackoff         time.Duration
	HoldSweepInterval     time.Duration

	// Redis (optional)
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	AvailabilityCacheTTL time.Duration
	IdempotencyTTL       time.Duration

	// RabbitMQ (optional)
	AMQPURL     string
	NotifyQueue string

	// Payment gateway
	PaymentGateway       string
	PaymentAPIURL        string
	PaymentSecretKey     string
	PaymentTimeout       time.Duration
	PaymentWebhookSecret string
	PaymentSuccessURL    string
	PaymentFailedURL     string

	LogLevel  string
	LogFormat string
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		logrus.Debugf("failed to load .env file: %v", err)
	}

	cfg := &Config{}

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	appEnvStr := getEnv("APP_ENV", "dev")
	cfg.IsProduction = appEnvStr == PROD_STRING

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	cfg.StoreDriver = getEnv("STORE_DRIVER", StoreDriverPostgres)
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		// Database DSN is required for the postgres store
		cfg.DBDSN = os.Getenv("DB_DSN")
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required")
		}
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", cfg.StoreDriver)
	}
	cfg.MigrationsPath = getEnv("MIGRATIONS_PATH", "file://migrations")

	// JWT secret is required for verifying tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.JWTAccessTokenTTL, err = getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}

	if cfg.HoldTTL, err = getEnvAsDuration("HOLD_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	fee, err := getEnvAsInt("RESERVATION_FEE_PER_ROOM", 50000)
	if err != nil {
		return nil, fmt.Errorf("invalid RESERVATION_FEE_PER_ROOM: %w", err)
	}
	if fee < 0 {
		return nil, fmt.Errorf("RESERVATION_FEE_PER_ROOM must not be negative")
	}
	cfg.ReservationFeePerRoom = int64(fee)

	if cfg.MaxStayNights, err = getEnvAsInt("MAX_STAY_NIGHTS", 30); err != nil {
		return nil, fmt.Errorf("invalid MAX_STAY_NIGHTS: %w", err)
	}
	if cfg.MaxStayNights < 1 {
		return nil, fmt.Errorf("MAX_STAY_NIGHTS must be at least 1")
	}

	if cfg.TxMaxAttempts, err = getEnvAsInt("TX_MAX_ATTEMPTS", 3); err != nil {
		return nil, fmt.Errorf("invalid TX_MAX_ATTEMPTS: %w", err)
	}
	if cfg.TxMaxAttempts < 1 {
		return nil, fmt.Errorf("TX_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.TxBaseBackoff, err = getEnvAsDuration("TX_BASE_BACKOFF", 50*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.HoldSweepInterval, err = getEnvAsDuration("HOLD_SWEEP_INTERVAL", 0); err != nil {
		return nil, err
	}

	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	if cfg.RedisDB, err = getEnvAsInt("REDIS_DB", 0); err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	if cfg.AvailabilityCacheTTL, err = getEnvAsDuration("AVAILABILITY_CACHE_TTL", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.IdempotencyTTL, err = getEnvAsDuration("IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return nil, err
	}

	cfg.AMQPURL = getEnv("AMQP_URL", "")
	cfg.NotifyQueue = getEnv("NOTIFY_QUEUE", "booking.events")

	cfg.PaymentGateway = getEnv("PAYMENT_GATEWAY", GatewaySandbox)
	cfg.PaymentAPIURL = getEnv("PAYMENT_API_URL", "https://api.paymongo.com/v1")
	cfg.PaymentSecretKey = getEnv("PAYMENT_SECRET_KEY", "")
	switch cfg.PaymentGateway {
	case GatewaySandbox:
	case GatewayPayMongo:
		if cfg.PaymentSecretKey == "" {
			return nil, fmt.Errorf("PAYMENT_SECRET_KEY is required for the %s gateway", GatewayPayMongo)
		}
	default:
		return nil, fmt.Errorf("invalid PAYMENT_GATEWAY %q", cfg.PaymentGateway)
	}
	if cfg.PaymentTimeout, err = getEnvAsDuration("PAYMENT_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	cfg.PaymentWebhookSecret = getEnv("PAYMENT_WEBHOOK_SECRET", "")
	cfg.PaymentSuccessURL = getEnv("PAYMENT_SUCCESS_URL", "")
	cfg.PaymentFailedURL = getEnv("PAYMENT_FAILED_URL", "")

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		// Return 0 and a wrapped error to provide context
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

// getEnvAsDuration parses values such as "15m" or "1h".
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	d, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
