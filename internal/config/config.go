// Package config loads and validates the bot configuration from a YAML file,
// an optional .env file, and BOT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/edgard/hivebot/internal/conversation"
)

// Config is the root configuration.
type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Session   SessionConfig   `mapstructure:"session"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Push      PushConfig      `mapstructure:"push"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// TelegramConfig holds the bot credentials. BotInfo is filled at startup.
type TelegramConfig struct {
	Token   string       `mapstructure:"token" validate:"required"`
	BotInfo *models.User `mapstructure:"-"`
}

// LoggerConfig selects the log level and whether output is JSON.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig locates the SQLite file. StateTTL bounds how long idle
// conversation states are kept by the maintenance task.
type DatabaseConfig struct {
	Path     string        `mapstructure:"path"      validate:"required"`
	StateTTL time.Duration `mapstructure:"state_ttl" validate:"min=0"`
}

// SessionConfig selects where conversation states live.
type SessionConfig struct {
	Backend       string        `mapstructure:"backend"        validate:"oneof=sqlite redis"`
	RedisAddr     string        `mapstructure:"redis_addr"     validate:"required_if=Backend redis"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"       validate:"min=0"`
	RedisPrefix   string        `mapstructure:"redis_prefix"`
	TTL           time.Duration `mapstructure:"ttl"            validate:"min=0"`
}

// SchedulerConfig configures gocron jobs by task name.
type SchedulerConfig struct {
	Timezone string                `mapstructure:"timezone"`
	Tasks    map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`

	location *time.Location
}

// TaskConfig enables a task and sets its cron schedule (with seconds).
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// PushConfig bounds each outbound send of a push tick. ParseMode is the
// Telegram formatting applied to pushed bodies; empty sends plain text.
type PushConfig struct {
	SendTimeout time.Duration `mapstructure:"send_timeout" validate:"min=1s,max=5m"`
	ParseMode   string        `mapstructure:"parse_mode"   validate:"omitempty,oneof=MarkdownV2 HTML Markdown"`
}

// MessagesConfig holds the user-facing texts operators may override.
type MessagesConfig struct {
	NotAuthorized  string `mapstructure:"not_authorized"  validate:"required"`
	AccessDenied   string `mapstructure:"access_denied"   validate:"required"`
	GenericFailure string `mapstructure:"generic_failure" validate:"required"`
	UnknownCommand string `mapstructure:"unknown_command" validate:"required"`
	SessionEnded   string `mapstructure:"session_ended"   validate:"required"`
	GroupGreeting  string `mapstructure:"group_greeting"  validate:"required"`
	GroupInitError string `mapstructure:"group_init_error" validate:"required"`
	// WelcomeMember is a format string taking the member's first name.
	WelcomeMember string `mapstructure:"welcome_member" validate:"required"`
	// WelcomeParseMode formats new-member welcomes; the member name is escaped for it.
	WelcomeParseMode string `mapstructure:"welcome_parse_mode" validate:"omitempty,oneof=MarkdownV2 HTML Markdown"`
}

// Location returns the time zone used to match schedule entries.
func (s *SchedulerConfig) Location() *time.Location {
	if s.location == nil {
		return time.Local
	}
	return s.location
}

// Texts converts the message overrides for the conversation machine.
func (m MessagesConfig) Texts() conversation.Texts {
	return conversation.Texts{
		NotAuthorized:  m.NotAuthorized,
		AccessDenied:   m.AccessDenied,
		GenericFailure: m.GenericFailure,
		UnknownCommand: m.UnknownCommand,
		SessionEnded:   m.SessionEnded,
	}
}

// LoadConfig reads configuration from path, applies defaults and BOT_*
// environment overrides, and validates the result. A missing file is not an
// error; every required value can come from the environment.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Scheduler.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Scheduler.Timezone, err)
		}
		cfg.Scheduler.location = loc
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Registered so that BOT_TELEGRAM_TOKEN is seen by Unmarshal.
	v.SetDefault("telegram.token", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", false)

	v.SetDefault("database.path", "hivebot.db")
	v.SetDefault("database.state_ttl", 7*24*time.Hour)

	v.SetDefault("session.backend", "sqlite")
	v.SetDefault("session.redis_addr", "")
	v.SetDefault("session.redis_password", "")
	v.SetDefault("session.redis_db", 0)
	v.SetDefault("session.redis_prefix", "hivebot:conv:")
	v.SetDefault("session.ttl", 7*24*time.Hour)

	v.SetDefault("scheduler.timezone", "")
	v.SetDefault("scheduler.tasks.push_messages.enabled", true)
	v.SetDefault("scheduler.tasks.push_messages.schedule", "0 * * * * *")
	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sql_maintenance.schedule", "0 30 4 * * *")

	v.SetDefault("push.send_timeout", 10*time.Second)
	v.SetDefault("push.parse_mode", "")

	texts := conversation.DefaultTexts()
	v.SetDefault("messages.not_authorized", texts.NotAuthorized)
	v.SetDefault("messages.access_denied", texts.AccessDenied)
	v.SetDefault("messages.generic_failure", texts.GenericFailure)
	v.SetDefault("messages.unknown_command", texts.UnknownCommand)
	v.SetDefault("messages.session_ended", texts.SessionEnded)
	v.SetDefault("messages.group_greeting", "Hello!\n/help - show all commands")
	v.SetDefault("messages.group_init_error", "Init error!")
	v.SetDefault("messages.welcome_member", "Welcome %s to the group!")
	v.SetDefault("messages.welcome_parse_mode", "")
}
