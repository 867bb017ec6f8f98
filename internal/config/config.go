package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreSupabase = "supabase"
	StoreSQLite   = "sqlite"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port               int
	LogLevel           string
	CORSAllowedOrigins []string

	// HTTP client
	HTTPTimeout    time.Duration
	RequestTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Store
	StoreBackend       string
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	SQLiteDataDir      string

	// Investigation drafts
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DraftTTL      time.Duration

	// Text generation
	TextGenAPIURL  string
	TextGenTimeout time.Duration

	// Auth
	JWTSecret string
	DevAuth   bool // DEV_AUTH=true also accepts the X-User-ID header

	// Domain
	DefaultTargetLevel int
	CatalogPath        string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:               getEnvInt("PORT", 8080),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		HTTPTimeout:    getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 60*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", StoreSQLite)),
		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		SQLiteDataDir:      getEnv("SQLITE_DATA_DIR", "./data"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		DraftTTL:      getEnvDuration("DRAFT_TTL", 24*time.Hour),

		TextGenAPIURL:  getEnv("TEXTGEN_API_URL", "http://localhost:8090"),
		TextGenTimeout: getEnvDuration("TEXTGEN_TIMEOUT", 30*time.Second),

		JWTSecret: getEnv("JWT_SECRET", ""),
		DevAuth:   getEnv("DEV_AUTH", "false") == "true",

		DefaultTargetLevel: getEnvInt("DEFAULT_TARGET_LEVEL", 2),
		CatalogPath:        getEnv("CATALOG_PATH", ""),
	}
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreSQLite:
	case StoreSupabase:
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			return fmt.Errorf("config: STORE_BACKEND=supabase requires SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY")
		}
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.JWTSecret == "" && !c.DevAuth {
		return fmt.Errorf("config: JWT_SECRET is required unless DEV_AUTH=true")
	}
	if c.CacheTTL <= 0 || c.DraftTTL <= 0 {
		return fmt.Errorf("config: CACHE_TTL and DRAFT_TTL must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
