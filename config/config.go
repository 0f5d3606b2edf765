package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	MySQL             MySQLConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Gateway           GatewayConfig
	Quota             QuotaConfig
	Wallet            WalletConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName string
	APIKey      string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type GatewayConfig struct {
	BaseURL         string
	MerchantID      string
	ClientID        string
	SigningKey      string
	ReturnURL       string
	MerchantLogoURL string
	RetryCount      int32
	HTTPTimeout     time.Duration
}

type QuotaConfig struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
	MaxAttempts int32
	RetryAfter  time.Duration
}

type WalletConfig struct {
	CooldownTTL     time.Duration
	AwaitingTimeout time.Duration
	JobBatchSize    int32
}

type JobsConfig struct {
	QuotaSyncInterval      time.Duration
	ExpireAwaitingInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "wallet-service"),
			APIKey:      getEnv("APP_API_KEY", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		Gateway: GatewayConfig{
			BaseURL:         getEnv("GATEWAY_BASE_URL", ""),
			MerchantID:      getEnv("GATEWAY_MERCHANT_ID", ""),
			ClientID:        getEnv("GATEWAY_CLIENT_ID", ""),
			SigningKey:      getEnv("GATEWAY_SIGNING_KEY", ""),
			ReturnURL:       getEnv("GATEWAY_RETURN_URL", ""),
			MerchantLogoURL: getEnv("GATEWAY_MERCHANT_LOGO_URL", ""),
			RetryCount:      int32(getIntEnv("GATEWAY_RETRY_COUNT", 3)),
			HTTPTimeout:     getSecondsEnv("GATEWAY_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Quota: QuotaConfig{
			BaseURL:     getEnv("QUOTA_BASE_URL", ""),
			APIKey:      getEnv("QUOTA_API_KEY", ""),
			HTTPTimeout: getSecondsEnv("QUOTA_HTTP_TIMEOUT_SECONDS", 10*time.Second),
			MaxAttempts: int32(getIntEnv("QUOTA_SYNC_MAX_ATTEMPTS", 10)),
			RetryAfter:  getMinutesEnv("QUOTA_SYNC_RETRY_INTERVAL_MINUTES", 5*time.Minute),
		},
		Wallet: WalletConfig{
			CooldownTTL:     getMinutesEnv("WALLET_COOLDOWN_TTL_MINUTES", 5*time.Minute),
			AwaitingTimeout: getMinutesEnv("WALLET_AWAITING_TIMEOUT_MINUTES", 24*time.Hour),
			JobBatchSize:    int32(getIntEnv("WALLET_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			QuotaSyncInterval:      getMinutesEnv("WALLET_QUOTA_SYNC_INTERVAL_MINUTES", time.Minute),
			ExpireAwaitingInterval: getMinutesEnv("WALLET_EXPIRE_AWAITING_INTERVAL_MINUTES", 5*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
