// Package config собирает настройки сервера из окружения и файла .env.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort       = "8080"
	defaultSQLitePath = "ecosocial.db"
	defaultCurrency   = "usd"
	defaultSessionTTL = 24 * time.Hour

	// devJWTSecret используется только когда JWT_SECRET не задан.
	devJWTSecret = "ecosocial-dev-secret"
)

// Config - настройки сервера.
type Config struct {
	Port        string
	Storage     string
	DatabaseURL string
	SQLitePath  string
	LogSQL      bool

	JWTSecret    string
	SessionTTL   time.Duration
	CookieSecure bool
	AdminAPIKey  string

	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string
}

// Load читает необязательный .env и переменные окружения.
// storage - значение флага -storage.
func Load(storage string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv(storage, os.Getenv)
}

// FromEnv строит конфигурацию из функции чтения переменных.
func FromEnv(storage string, getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Port:                withDefault(getenv("PORT"), defaultPort),
		Storage:             storage,
		DatabaseURL:         getenv("DATABASE_URL"),
		SQLitePath:          withDefault(getenv("SQLITE_PATH"), defaultSQLitePath),
		JWTSecret:           getenv("JWT_SECRET"),
		AdminAPIKey:         getenv("ADMIN_API_KEY"),
		StripeSecretKey:     getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:            withDefault(getenv("CURRENCY"), defaultCurrency),
		SessionTTL:          defaultSessionTTL,
	}

	var err error
	if cfg.LogSQL, err = parseBool(getenv, "LOG_SQL"); err != nil {
		return nil, err
	}
	if cfg.CookieSecure, err = parseBool(getenv, "COOKIE_SECURE"); err != nil {
		return nil, err
	}
	if v := getenv("SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("SESSION_TTL must be a positive duration, got %q", v)
		}
		cfg.SessionTTL = ttl
	}

	switch cfg.Storage {
	case "in-memory", "sqlite":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL must be set for postgres storage")
		}
	default:
		return nil, fmt.Errorf("unknown storage type %q (in-memory, postgres or sqlite)", cfg.Storage)
	}

	if cfg.JWTSecret == "" {
		log.Printf("[config] JWT_SECRET is not set, using the development secret")
		cfg.JWTSecret = devJWTSecret
	}
	return cfg, nil
}

// PaymentsEnabled сообщает, настроен ли ключ платежной системы.
func (c *Config) PaymentsEnabled() bool {
	return c.StripeSecretKey != ""
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func parseBool(getenv func(string) string, key string) (bool, error) {
	v := getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}
