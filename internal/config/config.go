package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config captures all runtime configuration for the ratings service.
type Config struct {
	Port                 string
	JWTSecret            string
	DBURL                string
	DirectoryURL         string
	DirectoryAPIKey      string
	DirectoryTimeoutSecs int
	ReadTimeoutSecs      int
	WriteTimeoutSecs     int
	IdleTimeoutSecs      int
	DBMaxConns           int
	DBMinConns           int
	DBMaxIdleSecs        int
	DBMaxLifeSecs        int
	DBConnTimeoutSecs    int
	DBStatementCache     int
	SeedFile             string
}

// Load reads configuration from an optional env file merged with the process
// environment, applying defaults and validation. The env file path defaults
// to configs/config.env and can be overridden with CONFIG_FILE.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	path := v.GetString("CONFIG_FILE")
	if path == "" {
		path = "configs/config.env"
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.MergeInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("DIRECTORY_TIMEOUT_SECS", 5)
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 15)
	v.SetDefault("SERVER_IDLE_TIMEOUT", 60)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_MAX_CONN_IDLE_SECS", 300)
	v.SetDefault("DB_MAX_CONN_LIFETIME_SECS", 3600)
	v.SetDefault("DB_CONN_TIMEOUT_SECS", 10)
	v.SetDefault("DB_STATEMENT_CACHE_CAPACITY", 256)

	cfg := Config{
		Port:                 v.GetString("HTTP_PORT"),
		JWTSecret:            v.GetString("AUTH_JWT_SECRET"),
		DBURL:                v.GetString("DATABASE_URL"),
		DirectoryURL:         v.GetString("DIRECTORY_URL"),
		DirectoryAPIKey:      v.GetString("DIRECTORY_API_KEY"),
		DirectoryTimeoutSecs: v.GetInt("DIRECTORY_TIMEOUT_SECS"),
		ReadTimeoutSecs:      v.GetInt("SERVER_READ_TIMEOUT"),
		WriteTimeoutSecs:     v.GetInt("SERVER_WRITE_TIMEOUT"),
		IdleTimeoutSecs:      v.GetInt("SERVER_IDLE_TIMEOUT"),
		DBMaxConns:           v.GetInt("DB_MAX_CONNS"),
		DBMinConns:           v.GetInt("DB_MIN_CONNS"),
		DBMaxIdleSecs:        v.GetInt("DB_MAX_CONN_IDLE_SECS"),
		DBMaxLifeSecs:        v.GetInt("DB_MAX_CONN_LIFETIME_SECS"),
		DBConnTimeoutSecs:    v.GetInt("DB_CONN_TIMEOUT_SECS"),
		DBStatementCache:     v.GetInt("DB_STATEMENT_CACHE_CAPACITY"),
		SeedFile:             v.GetString("SEED_FILE"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.DirectoryURL == "" {
		return Config{}, fmt.Errorf("DIRECTORY_URL is required")
	}
	if cfg.DirectoryAPIKey == "" {
		return Config{}, fmt.Errorf("DIRECTORY_API_KEY is required")
	}
	if cfg.DirectoryTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("DIRECTORY_TIMEOUT_SECS must be positive")
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}

	return cfg, nil
}
