package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Host      string `env:"HOST" envDefault:"localhost"`
	Port      int    `env:"PORT" envDefault:"8000"`
	StaticDir string `env:"STATIC_DIR" envDefault:"."`

	DatabaseURL string `env:"DATABASE_URL"`

	LocalStore     string `env:"LOCAL_STORE" envDefault:"sqlite"` // memory, sqlite or redis
	LocalStorePath string `env:"LOCAL_STORE_PATH" envDefault:"gameworld.db"`
	RedisURL       string `env:"REDIS_URL"`

	AuthProvider   string        `env:"AUTH_PROVIDER" envDefault:"memory"` // memory or gotrue
	AuthURL        string        `env:"AUTH_URL"`
	AuthAPIKey     string        `env:"AUTH_API_KEY"`
	AuthSessionTTL time.Duration `env:"AUTH_SESSION_TTL" envDefault:"1h"`

	RemoteTimeout time.Duration `env:"REMOTE_TIMEOUT" envDefault:"10s"`
	LiveReload    bool          `env:"LIVE_RELOAD" envDefault:"true"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogFile   string `env:"LOG_FILE"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.LocalStore {
	case "memory", "sqlite":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("LOCAL_STORE=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown LOCAL_STORE %q", c.LocalStore)
	}
	switch c.AuthProvider {
	case "memory":
	case "gotrue":
		if c.AuthURL == "" {
			return fmt.Errorf("AUTH_PROVIDER=gotrue requires AUTH_URL")
		}
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	return nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// LocalTarget is the path or URL handed to the local store backend.
func (c Config) LocalTarget() string {
	if c.LocalStore == "redis" {
		return c.RedisURL
	}
	return c.LocalStorePath
}
