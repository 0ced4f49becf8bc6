// Package config loads the memebot configuration from defaults, an optional
// YAML file, a .env file and environment variables.
package config

import (
	"errors"
	"time"
)

// ErrConfiguration wraps every load or validation failure.
var ErrConfiguration = errors.New("configuration error")

// Config is the root configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	GroupMe   GroupMeConfig   `mapstructure:"groupme"`
	Memebot   MemebotConfig   `mapstructure:"memebot"`
	Meme      MemeConfig      `mapstructure:"meme"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// ServerConfig holds the webhook HTTP server settings.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"          validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"  validate:"min=1s"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=1s"`
	// HandleTimeout bounds the work done for one inbound message.
	HandleTimeout time.Duration `mapstructure:"handle_timeout" validate:"min=1s,max=10m"`
}

// GroupMeConfig holds the platform credentials and target group. One of
// GroupID or GroupName identifies the group.
type GroupMeConfig struct {
	Token     string        `mapstructure:"token"      validate:"required"`
	BotID     string        `mapstructure:"bot_id"     validate:"required"`
	GroupID   string        `mapstructure:"group_id"   validate:"required_without=GroupName"`
	GroupName string        `mapstructure:"group_name" validate:"required_without=GroupID"`
	BaseURL   string        `mapstructure:"base_url"   validate:"required,url"`
	Timeout   time.Duration `mapstructure:"timeout"    validate:"min=1s,max=5m"`
}

// MemebotConfig holds the command engine settings.
type MemebotConfig struct {
	Trigger   string         `mapstructure:"trigger"   validate:"required"`
	Threshold int            `mapstructure:"threshold" validate:"min=0,max=100"`
	Messages  MessagesConfig `mapstructure:"messages"`
}

// MessagesConfig holds the reply templates. GeneralError may be empty to stay
// silent on collaborator failures.
type MessagesConfig struct {
	LowConfidence string `mapstructure:"low_confidence" validate:"required"`
	BestPost      string `mapstructure:"best_post"      validate:"required"`
	NoPosts       string `mapstructure:"no_posts"       validate:"required"`
	Awards        string `mapstructure:"awards"         validate:"required"`
	GeneralError  string `mapstructure:"general_error"`
}

// MemeConfig holds the meme API settings.
type MemeConfig struct {
	Endpoint  string        `mapstructure:"endpoint"   validate:"required,url"`
	Timeout   time.Duration `mapstructure:"timeout"    validate:"min=1s,max=1m"`
	AllowNSFW bool          `mapstructure:"allow_nsfw"`
	Attempts  int           `mapstructure:"attempts"   validate:"min=1,max=10"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures" validate:"min=1"`
	OpenTimeout time.Duration `mapstructure:"open_timeout" validate:"min=1s"`
}

// DatabaseConfig holds the sqlite location.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// SchedulerConfig holds background task settings.
type SchedulerConfig struct {
	Tasks            map[string]TaskConfig `mapstructure:"tasks"             validate:"dive"`
	AwardsWindow     string                `mapstructure:"awards_window"     validate:"required,oneof=day week month year"`
	HandledRetention time.Duration         `mapstructure:"handled_retention" validate:"min=1h"`
}

// TaskConfig configures one scheduled task. Schedule is a cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}
