package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"LISTEN_ADDR", "REDIS_ADDR", "TURN_TIMEOUT", "BOT_DELAY", "EXTRA_TURN_ON_HIT", "MATCH_TTL", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 120*time.Second, cfg.TurnTimeout)
	assert.Equal(t, time.Second, cfg.BotDelay)
	assert.False(t, cfg.ExtraTurnOnHit)
	assert.Equal(t, 24*time.Hour, cfg.MatchTTL)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TURN_TIMEOUT", "30s")
	t.Setenv("BOT_DELAY", "250ms")
	t.Setenv("EXTRA_TURN_ON_HIT", "true")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := LoadConfig()
	assert.Equal(t, 30*time.Second, cfg.TurnTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.BotDelay)
	assert.True(t, cfg.ExtraTurnOnHit)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestLoadConfigInvalidValuesFallBack(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TURN_TIMEOUT", "forever")
	t.Setenv("EXTRA_TURN_ON_HIT", "maybe")

	cfg := LoadConfig()
	assert.Equal(t, 120*time.Second, cfg.TurnTimeout)
	assert.False(t, cfg.ExtraTurnOnHit)
}

func TestLoadConfigReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	// godotenv never overrides variables that are already present.
	for _, key := range []string{"LISTEN_ADDR", "BOT_DELAY"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LISTEN_ADDR=:9090\nBOT_DELAY=2s\n"), 0o644))

	cfg := LoadConfig()
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 2*time.Second, cfg.BotDelay)
}
