package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"SYNCBEAT_TRANSPORT", "HOST_BROADCAST_INTERVAL", "DRIFT_CHECK_INTERVAL", "JOIN_DELAY", "DRIFT_THRESHOLD", "REDIS_HOST", "REDIS_PORT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg := fromEnv()
	assert.Equal(t, TransportMemory, cfg.Transport)
	assert.Equal(t, 2*time.Second, cfg.HostBroadcastInterval)
	assert.Equal(t, time.Second, cfg.DriftCheckInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.JoinDelay)
	assert.Equal(t, 2.0, cfg.DriftThreshold)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SYNCBEAT_TRANSPORT", TransportRedis)
	t.Setenv("HOST_BROADCAST_INTERVAL", "5s")
	t.Setenv("DRIFT_THRESHOLD", "1.5")
	t.Setenv("REDIS_DB", "3")

	cfg := fromEnv()
	assert.Equal(t, TransportRedis, cfg.Transport)
	assert.Equal(t, 5*time.Second, cfg.HostBroadcastInterval)
	assert.Equal(t, 1.5, cfg.DriftThreshold)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestFromEnvIgnoresBadValues(t *testing.T) {
	t.Setenv("DRIFT_CHECK_INTERVAL", "soon")
	t.Setenv("DRIFT_THRESHOLD", "-1")
	t.Setenv("REDIS_DB", "x")

	cfg := fromEnv()
	assert.Equal(t, time.Second, cfg.DriftCheckInterval)
	assert.Equal(t, 2.0, cfg.DriftThreshold)
	assert.Equal(t, 0, cfg.RedisDB)
}

func TestWatchReloads(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=info\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 4)
	require.NoError(t, Watch(ctx, path, func(c *Config) { got <- c.LogLevel }))

	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=debug\n"), 0644))

	select {
	case level := <-got:
		assert.Equal(t, "debug", level)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}
}
