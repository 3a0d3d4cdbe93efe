package config

import (
	"os"
	"testing"
	"time"
)

var allKeys = []string{
	"HOST", "PORT", "STATIC_DIR", "DATABASE_URL", "LOCAL_STORE", "LOCAL_STORE_PATH",
	"REDIS_URL", "AUTH_PROVIDER", "AUTH_URL", "AUTH_API_KEY", "AUTH_SESSION_TTL",
	"REMOTE_TIMEOUT", "LIVE_RELOAD", "LOG_LEVEL", "LOG_FORMAT", "LOG_FILE",
}

// clearEnv unsets every key Load reads and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Host != "localhost" || cfg.Port != 8000 {
		t.Errorf("Addr = %q, want localhost:8000", cfg.Addr())
	}
	if cfg.StaticDir != "." {
		t.Errorf("StaticDir = %q, want %q", cfg.StaticDir, ".")
	}
	if cfg.LocalStore != "sqlite" || cfg.LocalTarget() != "gameworld.db" {
		t.Errorf("local store = %q %q", cfg.LocalStore, cfg.LocalTarget())
	}
	if cfg.AuthProvider != "memory" {
		t.Errorf("AuthProvider = %q, want memory", cfg.AuthProvider)
	}
	if cfg.RemoteTimeout != 10*time.Second {
		t.Errorf("RemoteTimeout = %v, want 10s", cfg.RemoteTimeout)
	}
	if !cfg.LiveReload {
		t.Error("LiveReload should default to true")
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("PORT", "3000")
	t.Setenv("DATABASE_URL", "postgres://localhost/gameworld")
	t.Setenv("LOCAL_STORE", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("AUTH_PROVIDER", "gotrue")
	t.Setenv("AUTH_URL", "https://example.supabase.co/auth/v1")
	t.Setenv("REMOTE_TIMEOUT", "3s")
	t.Setenv("LIVE_RELOAD", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Addr() != "0.0.0.0:3000" {
		t.Errorf("Addr = %q, want %q", cfg.Addr(), "0.0.0.0:3000")
	}
	if cfg.DatabaseURL != "postgres://localhost/gameworld" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.LocalTarget() != "redis://localhost:6379/0" {
		t.Errorf("LocalTarget = %q", cfg.LocalTarget())
	}
	if cfg.RemoteTimeout != 3*time.Second {
		t.Errorf("RemoteTimeout = %v, want 3s", cfg.RemoteTimeout)
	}
	if cfg.LiveReload {
		t.Error("LiveReload should be false")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "abc")

	if _, err := Load(); err == nil {
		t.Error("Load() should fail on a non-numeric PORT")
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	base, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store", func(c *Config) { c.LocalStore = "floppy" }},
		{"redis without url", func(c *Config) { c.LocalStore = "redis" }},
		{"unknown provider", func(c *Config) { c.AuthProvider = "ldap" }},
		{"gotrue without url", func(c *Config) { c.AuthProvider = "gotrue" }},
		{"port out of range", func(c *Config) { c.Port = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}
