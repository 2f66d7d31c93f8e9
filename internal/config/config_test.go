package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	require.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	require.Equal(t, 24*time.Hour, cfg.Auth.AccessTokenTTL)
	require.Equal(t, 7*24*time.Hour, cfg.Auth.InvitationTTL)
	require.Equal(t, time.Hour, cfg.Auth.PasswordResetMaxAge)
	require.Equal(t, "s3cret", cfg.Auth.TokenSecret, "token codec falls back to the jwt secret")
	require.Equal(t, "certification:events", cfg.Notification.EventStream)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_TOKEN_SECRET", "codec")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL", "15m")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("MAIL_SERVER", "smtp.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "codec", cfg.Auth.TokenSecret)
	require.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	require.False(t, cfg.Postgres.RunMigrations)
	require.True(t, cfg.Notification.SMTPEnabled())
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("AUTH_ACCESS_TOKEN_TTL", "forever")

	_, err := Load()
	require.Error(t, err)
}

func TestRequestTimeoutDisabled(t *testing.T) {
	require.Zero(t, AppConfig{RequestTimeoutSeconds: 0}.RequestTimeout())
}
