package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	YouTube YouTubeConfig
	DB      DBConfig
	Notify  NotifyConfig
	Tracker TrackerConfig
	Archive ArchiveConfig
	Server  ServerConfig
}

// YouTubeConfig holds Data API access configuration
type YouTubeConfig struct {
	APIKey string `envconfig:"GOOGLE_API_KEY" required:"true"`
}

// DBConfig holds database configuration
type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"3306"`
	User     string `envconfig:"DB_USER" default:"root"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	Database string `envconfig:"DB_NAME" default:"ytlive_tracker"`
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"10"`
}

// NotifyConfig holds outbound notification configuration. The webhook sink
// is used when a URL is set, otherwise Telegram when a token is set.
type NotifyConfig struct {
	WebhookURL     string `envconfig:"DISCORD_WEBHOOK"`
	TelegramToken  string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID int64  `envconfig:"TELEGRAM_CHAT_ID"`
}

// TrackerConfig holds discovery and refresh configuration
type TrackerConfig struct {
	ChannelsDir     string        `envconfig:"CHANNELS_DIR" default:"./channels"`
	FeedInterval    time.Duration `envconfig:"FEED_INTERVAL" default:"1m"`
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"5m"`
	FeedCacheTTL    time.Duration `envconfig:"FEED_CACHE_TTL" default:"10m"`
}

// ArchiveConfig holds video archival configuration
type ArchiveConfig struct {
	Enabled   bool          `envconfig:"ARCHIVE_VIDEOS" default:"false"`
	Interval  time.Duration `envconfig:"ARCHIVE_INTERVAL" default:"10m"`
	Dir       string        `envconfig:"ARCHIVE_DIR" default:"./videos"`
	YtdlpPath string        `envconfig:"YTDLP_PATH" default:"yt-dlp"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int `envconfig:"SERVER_PORT" default:"8080"`
}

var (
	webhookRegex = regexp.MustCompile(`^https://discord\.com/api/webhooks/\d+/[A-Za-z0-9_-]+$`)
	apiKeyRegex  = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// DSN returns the MySQL data source name
func (c *DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg.YouTube); err != nil {
		return nil, fmt.Errorf("failed to load youtube config: %w", err)
	}

	if err := envconfig.Process("", &cfg.DB); err != nil {
		return nil, fmt.Errorf("failed to load db config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Notify); err != nil {
		return nil, fmt.Errorf("failed to load notify config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Tracker); err != nil {
		return nil, fmt.Errorf("failed to load tracker config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Archive); err != nil {
		return nil, fmt.Errorf("failed to load archive config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Server); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.YouTube.APIKey == "" || !apiKeyRegex.MatchString(c.YouTube.APIKey) {
		return fmt.Errorf("GOOGLE_API_KEY must be a non-empty key string")
	}
	if c.DB.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Notify.WebhookURL != "" && !webhookRegex.MatchString(c.Notify.WebhookURL) {
		return fmt.Errorf("DISCORD_WEBHOOK must be a Discord webhook URL")
	}
	if c.Notify.TelegramToken != "" && c.Notify.TelegramChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	if c.Tracker.FeedInterval <= 0 || c.Tracker.RefreshInterval <= 0 {
		return fmt.Errorf("FEED_INTERVAL and REFRESH_INTERVAL must be positive")
	}
	if c.Tracker.FeedCacheTTL <= 0 {
		return fmt.Errorf("FEED_CACHE_TTL must be positive")
	}
	if c.Archive.Enabled && c.Archive.Dir == "" {
		return fmt.Errorf("ARCHIVE_DIR is required when archiving is enabled")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535")
	}
	return nil
}
