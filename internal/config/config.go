package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Registry    RegistryConfig
	Redis       RedisConfig
	Session     SessionConfig
	Dashboard   DashboardConfig
	TenantCache TenantCacheConfig
	Login       LoginConfig
}

type ServerConfig struct {
	Port string
	Mode string
}

// RegistryConfig points at the central registry database holding the tenant
// directory. School data lives in per-tenant databases, not here.
type RegistryConfig struct {
	URL            string
	MaxConnections int
	MaxIdleConns   int
}

type RedisConfig struct {
	URL string
}

type SessionConfig struct {
	// TTL is the idle lifetime of a session; each request pushes expiry out
	// by this much.
	TTL time.Duration
}

type DashboardConfig struct {
	// Workers bounds the concurrent metric queries per request.
	Workers int
	// QueryTimeout bounds each individual metric query.
	QueryTimeout time.Duration
}

type TenantCacheConfig struct {
	TTL        time.Duration
	MaxEntries int64
}

type LoginConfig struct {
	RatePerMinute int
	Burst         int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.SetEnvPrefix("EDULANE")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("registry.maxconnections", 25)
	viper.SetDefault("registry.maxidleconns", 5)
	viper.SetDefault("session.ttl", "24h")
	viper.SetDefault("dashboard.workers", 6)
	viper.SetDefault("dashboard.querytimeout", "3s")
	viper.SetDefault("tenantcache.ttl", "30s")
	viper.SetDefault("tenantcache.maxentries", 1024)
	viper.SetDefault("login.rateperminute", 10)
	viper.SetDefault("login.burst", 5)

	var cfg Config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Override with environment variables
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Registry.URL = url
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}

	return &cfg, nil
}
