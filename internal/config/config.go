// Package config provides configuration management for the portfolio dashboard.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Prices   PricesConfig
	Chains   ChainsConfig
	Snapshot SnapshotConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// ClickHouseConfig holds ClickHouse configuration. The value history store is optional.
type ClickHouseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// CacheConfig holds cache lifetimes
type CacheConfig struct {
	AnalyticsTTL time.Duration
	PriceTTL     time.Duration
}

// PricesConfig holds price provider configuration
type PricesConfig struct {
	CoinGeckoBaseURL string
	RequestTimeout   time.Duration
	RateLimitBackoff time.Duration
}

// ChainsConfig holds RPC endpoints for wallet balance fetching. Multiple URLs per chain are
// tried in order.
type ChainsConfig struct {
	EVMRPCURLs     []string
	SolanaRPCURLs  []string
	HyperliquidURL string
	AlchemyAPIKey  string

	// compute units per second shared by every process using the key
	AlchemyCUBudget   int
	AlchemyCUReserved int
}

// SnapshotConfig holds snapshot scheduling configuration
type SnapshotConfig struct {
	MinInterval      time.Duration
	ScheduleInterval time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env is optional; environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RateLimitRPS:    getEnvAsFloat("RATE_LIMIT_RPS", 10),
			RateLimitBurst:  getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "portfolio"),
				User:           getEnv("POSTGRES_USER", "portfolio"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 20),
			},
			ClickHouse: ClickHouseConfig{
				Enabled:  getEnvAsBool("CLICKHOUSE_ENABLED", false),
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "portfolio"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Cache: CacheConfig{
			AnalyticsTTL: getEnvAsDuration("CACHE_ANALYTICS_TTL", 5*time.Minute),
			PriceTTL:     getEnvAsDuration("CACHE_PRICE_TTL", 24*time.Hour),
		},
		Prices: PricesConfig{
			CoinGeckoBaseURL: getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
			RequestTimeout:   getEnvAsDuration("PRICE_REQUEST_TIMEOUT", 10*time.Second),
			RateLimitBackoff: getEnvAsDuration("PRICE_RATE_LIMIT_BACKOFF", 60*time.Second),
		},
		Chains: ChainsConfig{
			EVMRPCURLs:     getEnvAsList("EVM_RPC_URLS", []string{"https://eth.llamarpc.com"}),
			SolanaRPCURLs:  getEnvAsList("SOLANA_RPC_URLS", []string{"https://api.mainnet-beta.solana.com"}),
			HyperliquidURL: getEnv("HYPERLIQUID_API_URL", "https://api.hyperliquid.xyz/info"),
			AlchemyAPIKey:  getEnv("ALCHEMY_API_KEY", ""),

			AlchemyCUBudget:   getEnvAsInt("ALCHEMY_CU_BUDGET", 330),
			AlchemyCUReserved: getEnvAsInt("ALCHEMY_CU_RESERVED", 200),
		},
		Snapshot: SnapshotConfig{
			MinInterval:      getEnvAsDuration("SNAPSHOT_MIN_INTERVAL", 48*time.Hour),
			ScheduleInterval: getEnvAsDuration("SNAPSHOT_INTERVAL", 48*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if key := config.Chains.AlchemyAPIKey; key != "" {
		config.Chains.EVMRPCURLs = append([]string{"https://eth-mainnet.g.alchemy.com/v2/" + key}, config.Chains.EVMRPCURLs...)
	}

	return config, nil
}

// PostgresURL returns the connection URL for the Postgres database
func (c PostgresConfig) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.User, c.Password, c.Host, c.Port, c.Database)
}

// RedisAddr returns the host:port address of the Redis server
func (c RedisConfig) RedisAddr() string {
	return c.Host + ":" + c.Port
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated environment variable, dropping empty entries
func getEnvAsList(key string, defaultValue []string) []string {
	var values []string
	for _, v := range strings.Split(getEnv(key, ""), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
