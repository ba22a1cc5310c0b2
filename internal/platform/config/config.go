package config

import (
	"os"
	"strconv"
	"time"
)

// Operator is the single identity allowed to authenticate. When PasswordHash
// is set it takes precedence over the plain Password.
type Operator struct {
	Username     string
	Password     string
	PasswordHash string
}

// RedisConfig captures connection settings for the optional Redis backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Config captures all runtime settings so main stays lean.
type Config struct {
	Addr          string
	SecureCookies bool

	JWTSigningKey  string
	Issuer         string
	AccessTokenTTL time.Duration

	RefreshTokenTTL time.Duration
	CleanupInterval time.Duration

	Operator Operator

	DirectorySheetURL string
	DirectoryCacheTTL time.Duration
	DirectoryTimeout  time.Duration

	DatabaseURL string
	Redis       RedisConfig
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:          getEnv("ROSTERD_ADDR", ":8080"),
		SecureCookies: getEnv("SECURE_COOKIES", "true") == "true",

		JWTSigningKey:  os.Getenv("JWT_SIGNING_KEY"),
		Issuer:         getEnv("JWT_ISSUER", "rosterd"),
		AccessTokenTTL: getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),

		RefreshTokenTTL: getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		CleanupInterval: getDuration("REFRESH_CLEANUP_INTERVAL", 0),

		Operator: Operator{
			Username:     getEnv("OPERATOR_USERNAME", "admin"),
			Password:     os.Getenv("OPERATOR_PASSWORD"),
			PasswordHash: os.Getenv("OPERATOR_PASSWORD_HASH"),
		},

		DirectorySheetURL: os.Getenv("DIRECTORY_SHEET_URL"),
		DirectoryCacheTTL: getDuration("DIRECTORY_CACHE_TTL", 30*time.Second),
		DirectoryTimeout:  getDuration("DIRECTORY_TIMEOUT", 10*time.Second),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
}

// MissingSettings lists required settings that were not provided. The caller
// logs these as startup warnings; the process still starts with dev fallbacks
// where one exists.
func (c Config) MissingSettings() []string {
	var missing []string
	if c.JWTSigningKey == "" {
		missing = append(missing, "JWT_SIGNING_KEY")
	}
	if c.Operator.Password == "" && c.Operator.PasswordHash == "" {
		missing = append(missing, "OPERATOR_PASSWORD")
	}
	if c.DirectorySheetURL == "" {
		missing = append(missing, "DIRECTORY_SHEET_URL")
	}
	return missing
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
