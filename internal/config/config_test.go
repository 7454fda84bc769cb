package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Snapshot.MinInterval != 48*time.Hour {
		t.Errorf("Snapshot.MinInterval = %v, want %v", cfg.Snapshot.MinInterval, 48*time.Hour)
	}
	if cfg.Cache.AnalyticsTTL != 5*time.Minute {
		t.Errorf("Cache.AnalyticsTTL = %v, want %v", cfg.Cache.AnalyticsTTL, 5*time.Minute)
	}
	if cfg.Cache.PriceTTL != 24*time.Hour {
		t.Errorf("Cache.PriceTTL = %v, want %v", cfg.Cache.PriceTTL, 24*time.Hour)
	}
	if cfg.Prices.RateLimitBackoff != 60*time.Second {
		t.Errorf("Prices.RateLimitBackoff = %v, want %v", cfg.Prices.RateLimitBackoff, 60*time.Second)
	}
	if cfg.Database.ClickHouse.Enabled {
		t.Error("Database.ClickHouse.Enabled = true, want false")
	}
	if cfg.Chains.AlchemyCUBudget != 330 || cfg.Chains.AlchemyCUReserved != 200 {
		t.Errorf("Alchemy CU budget = %d/%d, want 330/200", cfg.Chains.AlchemyCUBudget, cfg.Chains.AlchemyCUReserved)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("POSTGRES_HOST", "testhost")
	t.Setenv("CACHE_ANALYTICS_TTL", "30s")
	t.Setenv("CLICKHOUSE_ENABLED", "true")
	t.Setenv("EVM_RPC_URLS", "https://a.example, https://b.example,")
	t.Setenv("ALCHEMY_API_KEY", "key123")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %v, want %v", cfg.Server.Port, "9090")
	}
	if cfg.Database.Postgres.Host != "testhost" {
		t.Errorf("Database.Postgres.Host = %v, want %v", cfg.Database.Postgres.Host, "testhost")
	}
	if cfg.Cache.AnalyticsTTL != 30*time.Second {
		t.Errorf("Cache.AnalyticsTTL = %v, want %v", cfg.Cache.AnalyticsTTL, 30*time.Second)
	}
	if !cfg.Database.ClickHouse.Enabled {
		t.Error("Database.ClickHouse.Enabled = false, want true")
	}
	if cfg.Server.RateLimitRPS != 2.5 {
		t.Errorf("Server.RateLimitRPS = %v, want %v", cfg.Server.RateLimitRPS, 2.5)
	}

	want := []string{"https://eth-mainnet.g.alchemy.com/v2/key123", "https://a.example", "https://b.example"}
	if len(cfg.Chains.EVMRPCURLs) != len(want) {
		t.Fatalf("Chains.EVMRPCURLs = %v, want %v", cfg.Chains.EVMRPCURLs, want)
	}
	for i := range want {
		if cfg.Chains.EVMRPCURLs[i] != want[i] {
			t.Errorf("Chains.EVMRPCURLs[%d] = %v, want %v", i, cfg.Chains.EVMRPCURLs[i], want[i])
		}
	}
}

func TestConnectionStrings(t *testing.T) {
	pg := PostgresConfig{Host: "db", Port: "5432", Database: "portfolio", User: "u", Password: "p"}
	if got, want := pg.PostgresURL(), "postgres://u:p@db:5432/portfolio?sslmode=disable"; got != want {
		t.Errorf("PostgresURL() = %v, want %v", got, want)
	}

	redis := RedisConfig{Host: "cache", Port: "6380"}
	if got, want := redis.RedisAddr(), "cache:6380"; got != want {
		t.Errorf("RedisAddr() = %v, want %v", got, want)
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     int
	}{
		{"valid", "200", 200},
		{"invalid", "invalid", 100},
		{"not set", "", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.envValue)
			if got := getEnvAsInt("TEST_INT", 100); got != tt.want {
				t.Errorf("getEnvAsInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsFloatAndBool(t *testing.T) {
	t.Setenv("TEST_FLOAT", "1.25")
	t.Setenv("TEST_FLOAT_BAD", "x")
	t.Setenv("TEST_BOOL", "1")
	t.Setenv("TEST_BOOL_BAD", "maybe")

	if got := getEnvAsFloat("TEST_FLOAT", 9); got != 1.25 {
		t.Errorf("getEnvAsFloat() = %v, want %v", got, 1.25)
	}
	if got := getEnvAsFloat("TEST_FLOAT_BAD", 9); got != 9 {
		t.Errorf("getEnvAsFloat() = %v, want %v", got, 9)
	}
	if got := getEnvAsBool("TEST_BOOL", false); !got {
		t.Errorf("getEnvAsBool() = %v, want true", got)
	}
	if got := getEnvAsBool("TEST_BOOL_BAD", true); !got {
		t.Errorf("getEnvAsBool() = %v, want default true", got)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     time.Duration
	}{
		{"valid", "30s", 30 * time.Second},
		{"invalid", "invalid", 10 * time.Second},
		{"not set", "", 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.envValue)
			if got := getEnvAsDuration("TEST_DURATION", 10*time.Second); got != tt.want {
				t.Errorf("getEnvAsDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsList(t *testing.T) {
	t.Setenv("TEST_LIST", " a ,b,,c ")
	got := getEnvAsList("TEST_LIST", nil)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("getEnvAsList() = %v, want [a b c]", got)
	}

	t.Setenv("TEST_LIST", " , ")
	got = getEnvAsList("TEST_LIST", []string{"default"})
	if len(got) != 1 || got[0] != "default" {
		t.Errorf("getEnvAsList() = %v, want [default]", got)
	}
}
