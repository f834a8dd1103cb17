package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("AUTH_TOKEN_TTL", "")
	t.Setenv("AUTH_BCRYPT_COST", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, cfg.Auth.TokenTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, "blog-service", cfg.Auth.Issuer)
	assert.Greater(t, cfg.Auth.HashWorkers, 0)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AUTH_TOKEN_TTL", "2h")
	t.Setenv("AUTH_BCRYPT_COST", "11")
	t.Setenv("BLOG_API_URL", "http://example.test/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 11, cfg.Auth.BcryptCost)
	assert.Equal(t, "http://example.test", cfg.Client.BaseURL)
}

func TestLoad_RejectsWeakBcryptCost(t *testing.T) {
	t.Setenv("AUTH_BCRYPT_COST", "4")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_BCRYPT_COST")
}

func TestValidate_ProductionSecret(t *testing.T) {
	cfg := &Config{
		App:  AppConfig{Env: "production"},
		Auth: AuthConfig{JWTSecret: devSecret, TokenTTL: time.Hour, BcryptCost: 12, HashWorkers: 1},
	}
	require.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = "short"
	require.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	require.NoError(t, cfg.Validate())
}

func TestAppConfig_Helpers(t *testing.T) {
	app := AppConfig{Host: "127.0.0.1", Port: "9090", RequestTimeoutSeconds: 5}
	assert.Equal(t, "127.0.0.1:9090", app.Addr())
	assert.Equal(t, 5*time.Second, app.RequestTimeout())

	app.RequestTimeoutSeconds = 0
	assert.Zero(t, app.RequestTimeout())
}

func TestLoadClient_IgnoresServerSettings(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_BCRYPT_COST", "4")
	t.Setenv("BLOG_API_URL", "https://blog.example.com/")
	t.Setenv("BLOG_SESSION_PATH", "/tmp/session.db")

	client, logger := LoadClient()
	assert.Equal(t, "https://blog.example.com", client.BaseURL)
	assert.Equal(t, "/tmp/session.db", client.SessionPath)
	assert.Equal(t, 10*time.Second, client.Timeout)
	assert.Equal(t, "stderr", logger.Output)
}
