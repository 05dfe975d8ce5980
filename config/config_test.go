package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.Equal(t, 1000, cfg.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.RetryWait)
	assert.Equal(t, time.Second, cfg.AcquireWarnThreshold)
	assert.Equal(t, 5*time.Second, cfg.ExecWarnThreshold)
	assert.Equal(t, "dlock.events", cfg.EventsTopic)
	assert.False(t, cfg.EventsEnabled(), "Events should be disabled without brokers")
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REDIS_URL", "redis://cache:6380/2")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOCK_KEY_PREFIX", "billing:")
	t.Setenv("LOCK_TTL", "2s")
	t.Setenv("LOCK_MAX_ATTEMPTS", "5")
	t.Setenv("LOCK_RETRY_WAIT", "250ms")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "redis://cache:6380/2", cfg.RedisURL)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "billing:", cfg.KeyPrefix)
	assert.Equal(t, 2*time.Second, cfg.LockTTL)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryWait)
	assert.Equal(t, []string{"kafka-1:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.EventsEnabled())
}

func TestLoadConfig_MultipleBrokers(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers, "Brokers should be split on commas")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a,b", " c "}))
	assert.Empty(t, splitList([]string{"", " , "}))
	assert.Empty(t, splitList(nil))
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("max attempts", func(t *testing.T) {
		t.Setenv("LOCK_MAX_ATTEMPTS", "0")
		_, err := load(viper.New())
		assert.Error(t, err)
	})

	t.Run("gin mode", func(t *testing.T) {
		t.Setenv("GIN_MODE", "production")
		_, err := load(viper.New())
		assert.Error(t, err)
	})
}

func TestGetLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, getLogLevel("warn"))
	assert.Equal(t, slog.LevelError, getLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, getLogLevel("verbose"))
}
