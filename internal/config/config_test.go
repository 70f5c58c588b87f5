package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv("in-memory", envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "ecosocial.db", cfg.SQLitePath)
	assert.Equal(t, "usd", cfg.Currency)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.False(t, cfg.PaymentsEnabled())
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv("postgres", envOf(map[string]string{
		"PORT":              "9000",
		"DATABASE_URL":      "postgres://localhost/eco",
		"JWT_SECRET":        "s3cret",
		"SESSION_TTL":       "2h",
		"COOKIE_SECURE":     "true",
		"LOG_SQL":           "1",
		"STRIPE_SECRET_KEY": "sk_test_123",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.CookieSecure)
	assert.True(t, cfg.LogSQL)
	assert.True(t, cfg.PaymentsEnabled())
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name    string
		storage string
		env     map[string]string
	}{
		{"postgres without dsn", "postgres", nil},
		{"unknown storage", "mongo", nil},
		{"bad ttl", "in-memory", map[string]string{"SESSION_TTL": "soon"}},
		{"negative ttl", "in-memory", map[string]string{"SESSION_TTL": "-1h"}},
		{"bad bool", "in-memory", map[string]string{"COOKIE_SECURE": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(tt.storage, envOf(tt.env))
			assert.Error(t, err)
		})
	}
}
