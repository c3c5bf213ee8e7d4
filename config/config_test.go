package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv registers cleanup for keys and unsets them for the test.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

var managedKeys = []string{
	"TELEGRAM_BOT_TOKEN", "TOKEN", "TELEGRAM_MODE", "TELEGRAM_WEBHOOK_URL",
	"TELEGRAM_RATE_LIMIT_WHITELIST", "STORE_DRIVER", "STORE_PATH", "DATABASE_URL",
	"LOCK_DRIVER", "SCHEDULER_RESET_CRON", "SCHEDULER_WAKE_SWEEP_INTERVAL",
	"HTTP_ENABLED", "HTTP_PORT", "LOG_LEVEL", "LOG_FORMAT", "IMAGES_PATH",
	"APP_ENV", "METRICS_ENABLED", "SCHEDULER_ENABLED", "STORE_SQLITE_PATH",
	"TELEGRAM_USER_RATE_LIMIT",
}

func missingDotenv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t, managedKeys...)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := LoadFiles(missingDotenv(t))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.BotToken())
	assert.Equal(t, ModePolling, cfg.Telegram.Mode)
	assert.Equal(t, StoreFile, cfg.Store.Driver)
	assert.Equal(t, "pepegotchi_db.json", cfg.Store.Path)
	assert.Equal(t, "images", cfg.Store.ImagesPath)
	assert.Equal(t, LockLocal, cfg.Store.LockDriver)
	assert.Equal(t, "0 0 * * *", cfg.Scheduler.ResetCron)
	assert.Equal(t, time.Minute, cfg.Scheduler.WakeSweepInterval)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.False(t, cfg.UsesRedis())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_LegacyTokenFromDotenv(t *testing.T) {
	clearEnv(t, managedKeys...)

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TOKEN=legacy-token\nSTORE_DRIVER=sqlite\n"), 0o600))

	cfg, err := LoadFiles(path)
	require.NoError(t, err)

	assert.Empty(t, cfg.Telegram.Token)
	assert.Equal(t, "legacy-token", cfg.Telegram.BotToken())
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
}

func TestLoad_EnvironmentWinsOverDotenv(t *testing.T) {
	clearEnv(t, managedKeys...)
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TELEGRAM_BOT_TOKEN=from-file\n"), 0o600))

	cfg, err := LoadFiles(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.BotToken())
}

func TestLoad_MissingToken(t *testing.T) {
	clearEnv(t, managedKeys...)

	_, err := LoadFiles(missingDotenv(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN (or TOKEN) is required")
}

func TestLoad_Whitelist(t *testing.T) {
	clearEnv(t, managedKeys...)
	t.Setenv("TELEGRAM_BOT_TOKEN", "x")
	t.Setenv("TELEGRAM_RATE_LIMIT_WHITELIST", "10,20")

	cfg, err := LoadFiles(missingDotenv(t))
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{10: true, 20: true}, cfg.RateLimitWhitelist())
}

func validConfig() *Config {
	return &Config{
		Telegram:      TelegramConfig{Token: "x", Mode: ModePolling, UserRateLimit: 30},
		Store:         StoreConfig{Driver: StoreFile, Path: "db.json", LockDriver: LockLocal},
		Scheduler:     SchedulerConfig{Enabled: true, ResetCron: "0 0 * * *", WakeSweepInterval: time.Minute},
		HTTP:          HTTPConfig{Enabled: true, Port: 8080},
		Observability: ObservabilityConfig{LogLevel: "info", LogFormat: "json"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "webhook without url",
			mutate:  func(c *Config) { c.Telegram.Mode = ModeWebhook },
			wantErr: "TELEGRAM_WEBHOOK_URL is required",
		},
		{
			name: "webhook without http",
			mutate: func(c *Config) {
				c.Telegram.Mode = ModeWebhook
				c.Telegram.WebhookURL = "https://example.org/telegram/webhook"
				c.HTTP.Enabled = false
			},
			wantErr: "HTTP_ENABLED must be true",
		},
		{
			name: "production webhook without secret",
			mutate: func(c *Config) {
				c.App.Environment = EnvProduction
				c.Telegram.Mode = ModeWebhook
				c.Telegram.WebhookURL = "https://example.org/telegram/webhook"
			},
			wantErr: "TELEGRAM_WEBHOOK_SECRET is required",
		},
		{
			name: "production webhook with secret",
			mutate: func(c *Config) {
				c.App.Environment = EnvProduction
				c.Telegram.Mode = ModeWebhook
				c.Telegram.WebhookURL = "https://example.org/telegram/webhook"
				c.Telegram.WebhookSecret = "s3cret"
			},
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Telegram.Mode = "pigeon" },
			wantErr: "TELEGRAM_MODE must be polling or webhook",
		},
		{
			name:    "postgres without url",
			mutate:  func(c *Config) { c.Store.Driver = StorePostgres },
			wantErr: "DATABASE_URL is required",
		},
		{
			name:    "unknown store",
			mutate:  func(c *Config) { c.Store.Driver = "mongo" },
			wantErr: "STORE_DRIVER must be",
		},
		{
			name:    "unknown lock",
			mutate:  func(c *Config) { c.Store.LockDriver = "etcd" },
			wantErr: "LOCK_DRIVER must be",
		},
		{
			name:    "bad cron",
			mutate:  func(c *Config) { c.Scheduler.ResetCron = "every day" },
			wantErr: "SCHEDULER_RESET_CRON is invalid",
		},
		{
			name: "bad cron ignored when scheduler off",
			mutate: func(c *Config) {
				c.Scheduler.Enabled = false
				c.Scheduler.ResetCron = "every day"
			},
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.HTTP.Port = 70000 },
			wantErr: "HTTP_PORT must be 1-65535",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Observability.LogLevel = "loud" },
			wantErr: "LOG_LEVEL must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUsesRedis(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.UsesRedis())

	cfg.Store.LockDriver = LockRedis
	assert.True(t, cfg.UsesRedis())

	cfg = validConfig()
	cfg.Store.Driver = StoreRedis
	assert.True(t, cfg.UsesRedis())
}
