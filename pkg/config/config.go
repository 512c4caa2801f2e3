package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	AppEnv             string
	LogLevel           string
	DatabaseURL        string
	StorageBackend     string // "sql" or "redis"
	RedisURL           string
	JWTSecret          string
	AdminUsername      string
	AdminPassword      string
	AdminEmails        []string // Google accounts allowed to sign in as admin
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	FrontendURL        []string // Allowed CORS origins
	ReportTimezone     string
	TrendDays          int
	TopN               int
	LinkCacheTTL       time.Duration
	LoginRatePerSec    float64
	LoginRateBurst     int
}

func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	return &Config{
		Port:               getEnv("PORT", "5001"),
		AppEnv:             getEnv("APP_ENV", "local"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", "file:db.sqlite"),
		StorageBackend:     getEnv("STORAGE_BACKEND", "sql"),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:          getEnv("JWT_SECRET", "secret"),
		AdminUsername:      getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
		AdminEmails:        getEnvList("ADMIN_EMAILS", nil),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:5001/auth/google/callback"),
		FrontendURL:        getEnvList("FRONTEND_URL", []string{"http://localhost:3000", "http://127.0.0.1:3000"}),
		ReportTimezone:     getEnv("REPORT_TIMEZONE", "UTC"),
		TrendDays:          getEnvInt("TREND_DAYS", 30),
		TopN:               getEnvInt("TOP_N", 10),
		LinkCacheTTL:       getEnvDuration("LINK_CACHE_TTL", time.Minute),
		LoginRatePerSec:    getEnvFloat("LOGIN_RATE_PER_SEC", 0.2),
		LoginRateBurst:     getEnvInt("LOGIN_RATE_BURST", 5),
	}
}

// IsProduction reports whether cookies should be marked Secure.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
