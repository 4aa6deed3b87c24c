package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsApplied(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
server:
  port: 9090
jwt:
  secret: abc
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "abc", cfg.JWT.Secret)
	assert.Equal(t, 100, cfg.Stripe.PageSize)
	assert.Equal(t, 12, cfg.Sync.DefaultMonths)
	assert.Equal(t, 15*time.Minute, cfg.Sync.LeaseTTL)
	assert.Equal(t, 3, cfg.RateLimit.BurstLimit)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.BurstWindow)
	assert.Equal(t, 12, cfg.RateLimit.HourlyLimit)
	assert.Equal(t, time.Hour, cfg.RateLimit.HourlyWindow)
}

func TestLoad_PrefersLocalConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", "server:\n  port: 1000\n")
	writeConfig(t, dir, "config.local.yaml", "server:\n  port: 2000\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyDefaults_CapsPageSize(t *testing.T) {
	cfg := &Config{Stripe: StripeConfig{PageSize: 500}}
	cfg.ApplyDefaults()
	assert.Equal(t, 100, cfg.Stripe.PageSize)

	cfg = &Config{Stripe: StripeConfig{PageSize: 25}}
	cfg.ApplyDefaults()
	assert.Equal(t, 25, cfg.Stripe.PageSize)
}
