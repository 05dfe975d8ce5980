package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config represents the comprehensive application configuration
type Config struct {
	ServerPort string `validate:"required"`
	LogLevel   slog.Level
	GinMode    string `validate:"required,oneof=debug release test"`
	RedisURL   string `validate:"required,url"`

	// Lock defaults
	KeyPrefix            string
	LockTTL              time.Duration `validate:"gte=1ms"`
	MaxAttempts          int           `validate:"gte=1"`
	RetryWait            time.Duration `validate:"gte=0"`
	AcquireWarnThreshold time.Duration `validate:"gt=0"`
	ExecWarnThreshold    time.Duration `validate:"gt=0"`

	// Lock events are published only when brokers are configured
	KafkaBrokers []string
	EventsTopic  string `validate:"required"`

	TraceStdout bool
}

// Validate performs structural validation on the configuration
func (c *Config) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// EventsEnabled reports whether lock events should be published
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// LoadConfig loads and validates the application configuration
func LoadConfig() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	// Set defaults
	v.SetDefault("server_port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("gin_mode", "release")
	v.SetDefault("redis_url", "redis://localhost:6379/0")

	// Lock defaults
	v.SetDefault("lock.key_prefix", "")
	v.SetDefault("lock.ttl", "30s")
	v.SetDefault("lock.max_attempts", 1000)
	v.SetDefault("lock.retry_wait", "10ms")
	v.SetDefault("lock.acquire_warn_threshold", "1s")
	v.SetDefault("lock.exec_warn_threshold", "5s")

	// Event and tracing defaults
	v.SetDefault("kafka_brokers", []string{})
	v.SetDefault("events_topic", "dlock.events")
	v.SetDefault("trace_stdout", false)

	// Configure config file search paths
	v.SetConfigName(".env") // name of config file (without extension)
	v.SetConfigType("env")  // REQUIRED if the config file does not have the extension in the name
	v.AddConfigPath(".")    // path to look for the config file in
	v.AddConfigPath("./config")

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		// It's okay if no config file is found
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Tell Viper to automatically override values from environment variables
	v.AutomaticEnv()

	// Bind environment variables
	envVars := []struct {
		key, envName string
	}{
		{"server_port", "SERVER_PORT"},
		{"log_level", "LOG_LEVEL"},
		{"gin_mode", "GIN_MODE"},
		{"redis_url", "REDIS_URL"},
		{"lock.key_prefix", "LOCK_KEY_PREFIX"},
		{"lock.ttl", "LOCK_TTL"},
		{"lock.max_attempts", "LOCK_MAX_ATTEMPTS"},
		{"lock.retry_wait", "LOCK_RETRY_WAIT"},
		{"lock.acquire_warn_threshold", "LOCK_ACQUIRE_WARN_THRESHOLD"},
		{"lock.exec_warn_threshold", "LOCK_EXEC_WARN_THRESHOLD"},
		{"kafka_brokers", "KAFKA_BROKERS"},
		{"events_topic", "EVENTS_TOPIC"},
		{"trace_stdout", "TRACE_STDOUT"},
	}

	for _, ev := range envVars {
		if err := v.BindEnv(ev.key, ev.envName); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable %s: %w", ev.envName, err)
		}
	}

	// Prepare configuration
	config := &Config{
		ServerPort:           v.GetString("server_port"),
		LogLevel:             getLogLevel(v.GetString("log_level")),
		GinMode:              v.GetString("gin_mode"),
		RedisURL:             v.GetString("redis_url"),
		KeyPrefix:            v.GetString("lock.key_prefix"),
		LockTTL:              v.GetDuration("lock.ttl"),
		MaxAttempts:          v.GetInt("lock.max_attempts"),
		RetryWait:            v.GetDuration("lock.retry_wait"),
		AcquireWarnThreshold: v.GetDuration("lock.acquire_warn_threshold"),
		ExecWarnThreshold:    v.GetDuration("lock.exec_warn_threshold"),
		KafkaBrokers:         splitList(v.GetStringSlice("kafka_brokers")),
		EventsTopic:          v.GetString("events_topic"),
		TraceStdout:          v.GetBool("trace_stdout"),
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// splitList flattens comma separated entries, as given in KAFKA_BROKERS, and drops blanks
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// getLogLevel converts string log level to slog.Level
func getLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
