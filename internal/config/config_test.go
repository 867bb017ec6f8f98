package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_BACKEND", "DRAFT_TTL", "DEFAULT_TARGET_LEVEL", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
	cfg := config.Load()

	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.StoreBackend != config.StoreSQLite {
		t.Errorf("expected sqlite backend, got %q", cfg.StoreBackend)
	}
	if cfg.DraftTTL != 24*time.Hour {
		t.Errorf("expected 24h draft ttl, got %s", cfg.DraftTTL)
	}
	if cfg.DefaultTargetLevel != 2 {
		t.Errorf("expected default target 2, got %d", cfg.DefaultTargetLevel)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("unexpected CORS origins %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Supabase")
	t.Setenv("TEXTGEN_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("MAX_RETRIES", "not-a-number")

	cfg := config.Load()
	if cfg.StoreBackend != config.StoreSupabase {
		t.Errorf("expected lower-cased supabase, got %q", cfg.StoreBackend)
	}
	if cfg.TextGenTimeout != 5*time.Second {
		t.Errorf("expected 5s, got %s", cfg.TextGenTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("expected fallback retries 3, got %d", cfg.MaxRetries)
	}
}

func TestValidate(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{StoreBackend: config.StoreSQLite, JWTSecret: "s", CacheTTL: time.Minute, DraftTTL: time.Hour}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cases := map[string]func(c *config.Config){
		"unknown backend":        func(c *config.Config) { c.StoreBackend = "mongo" },
		"supabase without url":   func(c *config.Config) { c.StoreBackend = config.StoreSupabase },
		"no secret and no dev":   func(c *config.Config) { c.JWTSecret = "" },
		"non-positive cache ttl": func(c *config.Config) { c.CacheTTL = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	doc := "# comment\nexport DOTENV_A=\"one\"\nDOTENV_B=two\ngarbage\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOTENV_A", "")
	t.Setenv("DOTENV_B", "already-set")

	if err := config.LoadDotEnv(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("DOTENV_A"); got != "one" {
		t.Errorf("expected DOTENV_A=one, got %q", got)
	}
	if got := os.Getenv("DOTENV_B"); got != "already-set" {
		t.Errorf("expected env to win, got %q", got)
	}
}
