package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("BOT_TELEGRAM_TOKEN", "env-token")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "hivebot.db", cfg.Database.Path)
	assert.Equal(t, "sqlite", cfg.Session.Backend)
	assert.Equal(t, 10*time.Second, cfg.Push.SendTimeout)
	assert.Empty(t, cfg.Push.ParseMode, "pushes default to plain text")
	assert.Equal(t, time.Local, cfg.Scheduler.Location())
	assert.Equal(t, TaskConfig{Enabled: true, Schedule: "0 * * * * *"}, cfg.Scheduler.Tasks["push_messages"])
	assert.True(t, cfg.Scheduler.Tasks["sql_maintenance"].Enabled)
	assert.Equal(t, "Welcome %s to the group!", cfg.Messages.WelcomeMember)
	assert.NotEmpty(t, cfg.Messages.Texts().NotAuthorized)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("BOT_LOGGER_LEVEL", "warn")

	path := writeConfig(t, `
telegram:
  token: file-token
logger:
  level: debug
  json: true
session:
  backend: redis
  redis_addr: localhost:6379
scheduler:
  timezone: UTC
  tasks:
    push_messages:
      enabled: true
      schedule: "30 * * * * *"
push:
  send_timeout: 3s
  parse_mode: MarkdownV2
messages:
  access_denied: Admins only
  welcome_parse_mode: HTML
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Telegram.Token)
	assert.Equal(t, "warn", cfg.Logger.Level, "environment overrides the file")
	assert.True(t, cfg.Logger.JSON)
	assert.Equal(t, "redis", cfg.Session.Backend)
	assert.Equal(t, "localhost:6379", cfg.Session.RedisAddr)
	assert.Equal(t, time.UTC, cfg.Scheduler.Location())
	assert.Equal(t, "30 * * * * *", cfg.Scheduler.Tasks["push_messages"].Schedule)
	assert.Equal(t, 3*time.Second, cfg.Push.SendTimeout)
	assert.Equal(t, "MarkdownV2", cfg.Push.ParseMode)
	assert.Equal(t, "HTML", cfg.Messages.WelcomeParseMode)
	assert.Equal(t, "Admins only", cfg.Messages.Texts().AccessDenied)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing token", body: "logger:\n  level: info\n"},
		{name: "bad log level", body: "telegram:\n  token: x\nlogger:\n  level: loud\n"},
		{name: "redis without address", body: "telegram:\n  token: x\nsession:\n  backend: redis\n"},
		{name: "unknown backend", body: "telegram:\n  token: x\nsession:\n  backend: etcd\n"},
		{name: "unknown push parse mode", body: "telegram:\n  token: x\npush:\n  parse_mode: rtf\n"},
		{name: "unknown welcome parse mode", body: "telegram:\n  token: x\nmessages:\n  welcome_parse_mode: bbcode\n"},
		{name: "send timeout too short", body: "telegram:\n  token: x\npush:\n  send_timeout: 10ms\n"},
		{name: "bad timezone", body: "telegram:\n  token: x\nscheduler:\n  timezone: Mars/Olympus\n"},
		{name: "enabled task without schedule", body: "telegram:\n  token: x\nscheduler:\n  tasks:\n    extra:\n      enabled: true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BOT_TELEGRAM_TOKEN", "")
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
