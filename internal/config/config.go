// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"SERVER_TIMEOUT_SECONDS"`

	// Database Configuration
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`

	// Redis (cache) Configuration
	RedisHost     string `mapstructure:"REDIS_HOST"`
	RedisPort     string `mapstructure:"REDIS_PORT"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// Cache TTLs per query shape. Trees change less often relative to how
	// frequently they are read, so they get the longest TTL.
	CacheTreeTTL   time.Duration `mapstructure:"CACHE_TREE_TTL_SECONDS"`
	CacheListTTL   time.Duration `mapstructure:"CACHE_LIST_TTL_SECONDS"`
	CacheDetailTTL time.Duration `mapstructure:"CACHE_DETAIL_TTL_SECONDS"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Application Specific Configuration
	MaxCategoryDepth int `mapstructure:"MAX_CATEGORY_DEPTH"`

	// Cron Jobs
	StatsReconcileJobSchedule string `mapstructure:"STATS_RECONCILE_JOB_SCHEDULE"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()

	// Set default values
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "catalog_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("CACHE_TREE_TTL_SECONDS", 1800)
	v.SetDefault("CACHE_LIST_TTL_SECONDS", 600)
	v.SetDefault("CACHE_DETAIL_TTL_SECONDS", 300)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("MAX_CATEGORY_DEPTH", 32)

	v.SetDefault("STATS_RECONCILE_JOB_SCHEDULE", "@daily")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	// Viper reads the *_SECONDS / *_MINUTES keys as bare integers. A
	// malformed value parses as 0, which would silently disable timeouts
	// and caching, so non-positive results fail the load.
	durations := []struct {
		key  string
		dst  *time.Duration
		unit time.Duration
	}{
		{"SERVER_TIMEOUT_SECONDS", &cfg.ServerTimeout, time.Second},
		{"DB_CONN_MAX_LIFETIME_MINUTES", &cfg.DBConnMaxLifetime, time.Minute},
		{"CACHE_TREE_TTL_SECONDS", &cfg.CacheTreeTTL, time.Second},
		{"CACHE_LIST_TTL_SECONDS", &cfg.CacheListTTL, time.Second},
		{"CACHE_DETAIL_TTL_SECONDS", &cfg.CacheDetailTTL, time.Second},
	}
	for _, d := range durations {
		raw := v.GetInt(d.key)
		if raw <= 0 {
			return nil, fmt.Errorf("config %s must be a positive integer, got %q", d.key, v.GetString(d.key))
		}
		*d.dst = time.Duration(raw) * d.unit
	}

	return &cfg, nil
}
