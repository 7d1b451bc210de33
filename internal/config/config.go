package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ThreadHarvester/internal/domain"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "THREAD_HARVESTER_CONFIG"
	connectionURLEnv  = "CONNECTION_URL"
	redisAddrEnv      = "REDIS_ADDR"
	redisPasswordEnv  = "REDIS_PASSWORD"
	redisStreamEnv    = "REDIS_STREAM"
	databaseDSNEnv    = "DATABASE_DSN"
	databaseDriverEnv = "DATABASE_DRIVER"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"
)

// Sink kinds.
const (
	SinkRedis = "redis"
	SinkJSONL = "jsonl"
)

// Config holds high-level settings required across the application.
type Config struct {
	Browser       BrowserConfig      `yaml:"browser"`
	Crawl         CrawlConfig        `yaml:"crawl"`
	Listings      []ListingConfig    `yaml:"listings"`
	Sink          SinkConfig         `yaml:"sink"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Metrics       MetricsConfig      `yaml:"metrics"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// BrowserConfig points at the remote browser endpoint.
type BrowserConfig struct {
	ConnectionURL    string   `yaml:"connectionUrl"`
	BlockedResources []string `yaml:"blockedResources"`
}

// CrawlConfig tunes pagination and detail fetching.
type CrawlConfig struct {
	Window           time.Duration `yaml:"window"`
	Concurrency      int           `yaml:"concurrency"`
	OperationTimeout time.Duration `yaml:"operationTimeout"`
	RunTimeout       time.Duration `yaml:"runTimeout"`
	MaxPages         int           `yaml:"maxPages"`
	MaxCommentDepth  int           `yaml:"maxCommentDepth"`
}

// ListingConfig names one listing root and the markup dialect it uses.
type ListingConfig struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Dialect string `yaml:"dialect"`
}

// SinkConfig selects where finished batches go.
type SinkConfig struct {
	Kind  string          `yaml:"kind"`
	Redis RedisSinkConfig `yaml:"redis"`
	// Path of the JSON-lines file; empty writes to stdout.
	Path string `yaml:"path"`
}

// RedisSinkConfig describes the Redis stream producer.
type RedisSinkConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
	MaxLen   int64  `yaml:"maxLen"`
}

// DatabaseConfig describes the published-post ledger. An empty DSN disables it.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines when serve mode runs a harvest.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// MetricsConfig holds the listen address of the /metrics endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads .env and YAML configuration (if present), applies environment
// overrides and validates the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: cannot read .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that have no usable default.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Browser.ConnectionURL) == "" {
		return fmt.Errorf("%w: set %s or browser.connectionUrl", domain.ErrNoConnectionURL, connectionURLEnv)
	}
	for i, l := range c.Listings {
		if l.URL == "" {
			return fmt.Errorf("listing %d (%s) has no url", i, l.Name)
		}
	}
	switch c.Sink.Kind {
	case SinkRedis:
		if c.Sink.Redis.Addr == "" || c.Sink.Redis.Stream == "" {
			return errors.New("redis sink needs addr and stream")
		}
	case SinkJSONL:
	default:
		return fmt.Errorf("unknown sink kind %q", c.Sink.Kind)
	}
	if c.Database.DSN != "" {
		switch c.Database.Driver {
		case "postgres", "sqlite":
		default:
			return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
		}
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(connectionURLEnv); v != "" {
		c.Browser.ConnectionURL = v
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Sink.Redis.Addr = v
	}
	if v := os.Getenv(redisPasswordEnv); v != "" {
		c.Sink.Redis.Password = v
	}
	if v := os.Getenv(redisStreamEnv); v != "" {
		c.Sink.Redis.Stream = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Browser.ConnectionURL != "" {
		base.Browser.ConnectionURL = override.Browser.ConnectionURL
	}
	if len(override.Browser.BlockedResources) > 0 {
		base.Browser.BlockedResources = override.Browser.BlockedResources
	}

	if override.Crawl.Window > 0 {
		base.Crawl.Window = override.Crawl.Window
	}
	if override.Crawl.Concurrency > 0 {
		base.Crawl.Concurrency = override.Crawl.Concurrency
	}
	if override.Crawl.OperationTimeout > 0 {
		base.Crawl.OperationTimeout = override.Crawl.OperationTimeout
	}
	if override.Crawl.RunTimeout > 0 {
		base.Crawl.RunTimeout = override.Crawl.RunTimeout
	}
	if override.Crawl.MaxPages > 0 {
		base.Crawl.MaxPages = override.Crawl.MaxPages
	}
	if override.Crawl.MaxCommentDepth > 0 {
		base.Crawl.MaxCommentDepth = override.Crawl.MaxCommentDepth
	}

	if len(override.Listings) > 0 {
		base.Listings = override.Listings
	}

	if override.Sink.Kind != "" {
		base.Sink.Kind = override.Sink.Kind
	}
	if override.Sink.Path != "" {
		base.Sink.Path = override.Sink.Path
	}
	if override.Sink.Redis.Addr != "" {
		base.Sink.Redis.Addr = override.Sink.Redis.Addr
	}
	if override.Sink.Redis.Password != "" {
		base.Sink.Redis.Password = override.Sink.Redis.Password
	}
	if override.Sink.Redis.DB != 0 {
		base.Sink.Redis.DB = override.Sink.Redis.DB
	}
	if override.Sink.Redis.Stream != "" {
		base.Sink.Redis.Stream = override.Sink.Redis.Stream
	}
	if override.Sink.Redis.MaxLen != 0 {
		base.Sink.Redis.MaxLen = override.Sink.Redis.MaxLen
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
		if base.Database.Driver == "" {
			base.Database.Driver = defaultConfig().Database.Driver
		}
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Metrics.Addr != "" {
		base.Metrics.Addr = override.Metrics.Addr
	}
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Crawl: CrawlConfig{
			Window:           24 * time.Hour,
			Concurrency:      4,
			OperationTimeout: 30 * time.Second,
			RunTimeout:       30 * time.Minute,
			MaxPages:         50,
			MaxCommentDepth:  200,
		},
		Listings: []ListingConfig{
			{Name: "programming", URL: "https://old.reddit.com/r/programming/new/", Dialect: "old-reddit"},
		},
		Sink: SinkConfig{
			Kind:  SinkRedis,
			Redis: RedisSinkConfig{Addr: "localhost:6379", Stream: "threadharvester:posts"},
		},
		Database:  DatabaseConfig{Driver: "postgres"},
		Scheduler: SchedulerConfig{CronExpression: "0 * * * *", Timezone: defaultTimezone, location: tz},
		Metrics:   MetricsConfig{Addr: ":9090"},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// ParseChatID converts the configured chat id into Telegram's int64 form.
func (t TelegramConfig) ParseChatID() (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(t.ChatID), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram chat id %q: %w", t.ChatID, err)
	}
	return id, nil
}
