package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, "sqlite", cfg.Alarm.Backend)
	assert.Equal(t, 10*time.Second, cfg.WakeLockTimeout())
	assert.Equal(t, "¿Registraste tus gastos?", cfg.Reminder.Title)
	assert.Equal(t, []time.Duration{0, 500 * time.Millisecond, 200 * time.Millisecond, 500 * time.Millisecond}, cfg.VibrationPattern())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileWithEnvExpansion(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEST_TG_TOKEN", "secret-token")

	path := filepath.Join(dir, "config.yaml")
	content := `
database:
  path: ` + filepath.Join(dir, "db", "expenses.db") + `
reminder:
  timezone: Europe/Madrid
  wake_lock_timeout_seconds: 5
telegram:
  bot_token: ${TEST_TG_TOKEN}
  chat_id: 42
alarm:
  backend: redis
redis:
  address: localhost:6379
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.Telegram.BotToken)
	assert.Equal(t, int64(42), cfg.Telegram.ChatID)
	assert.Equal(t, 5*time.Second, cfg.WakeLockTimeout())
	assert.DirExists(t, filepath.Join(dir, "db"))

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Madrid", loc.String())
	assert.NoError(t, cfg.Validate())
}

func TestValidate_CollectsProblems(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Alarm.Backend = "etcd"
	cfg.Reminder.Timezone = "Mars/Olympus"
	cfg.Telegram.BotToken = "x"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid alarm backend")
	assert.Contains(t, err.Error(), "invalid reminder timezone")
	assert.Contains(t, err.Error(), "telegram.chat_id")
}

func TestValidate_RedisBackendNeedsAddress(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Alarm.Backend = "redis"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.address is required")
}
