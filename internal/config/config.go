package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"BrokenPromises/internal/channel"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "BROKEN_PROMISES_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	databaseDriverEnv = "DATABASE_DRIVER"
	guardianKeyEnv    = "GUARDIAN_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	httpAddrEnv       = "HTTP_ADDR"
	logLevelEnv       = "LOG_LEVEL"
)

// Analysis modes.
const (
	AnalysisDateparser = "dateparser"
	AnalysisBuiltin    = "builtin"
	AnalysisRemote     = "remote"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Cache         CacheConfig        `yaml:"cache"`
	Collector     CollectorConfig    `yaml:"collector"`
	Channels      []ChannelConfig    `yaml:"channels"`
	Analysis      AnalysisConfig     `yaml:"analysis"`
	HTTP          HTTPConfig         `yaml:"http"`
	Worker        WorkerConfig       `yaml:"worker"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects level and handler format (text, json or auto).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the store connection. Driver is sqlite or postgres.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// CacheConfig sets how long a collection satisfies repeated requests.
type CacheConfig struct {
	WindowDays int `yaml:"windowDays"`
}

// Window returns the cache window as a duration.
func (c CacheConfig) Window() time.Duration {
	return time.Duration(c.WindowDays) * 24 * time.Hour
}

// CollectorConfig tunes failure handling of collection runs.
type CollectorConfig struct {
	Strict bool `yaml:"strict"`
}

// ChannelConfig describes a single news channel and the kind serving it.
type ChannelConfig struct {
	Name    string            `yaml:"name"`
	Type    string            `yaml:"type"`
	Options map[string]string `yaml:"options"`
}

// AnalysisConfig selects the date finder.
type AnalysisConfig struct {
	Mode     string `yaml:"mode"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// WorkerConfig sizes the background job pool.
type WorkerConfig struct {
	Concurrency int    `yaml:"concurrency"`
	QueueSize   int    `yaml:"queueSize"`
	LockDir     string `yaml:"lockDir"`
}

// SchedulerConfig defines when the current month is collected.
type SchedulerConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
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

// Enabled reports whether a bot token is configured.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != ""
}

// ChannelSpecs converts the channel section for the channel registry.
func (c Config) ChannelSpecs() []channel.Spec {
	specs := make([]channel.Spec, 0, len(c.Channels))
	for _, ch := range c.Channels {
		specs = append(specs, channel.Spec{Name: ch.Name, Kind: ch.Type, Options: ch.Options})
	}
	return specs
}

// Validate rejects settings the application cannot start with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	switch c.Analysis.Mode {
	case AnalysisDateparser, AnalysisBuiltin:
	case AnalysisRemote:
		if c.Analysis.Endpoint == "" {
			return fmt.Errorf("config: remote analysis needs an endpoint")
		}
	default:
		return fmt.Errorf("config: unknown analysis mode %q", c.Analysis.Mode)
	}
	if c.Cache.WindowDays <= 0 {
		return fmt.Errorf("config: cache window must be positive, got %d days", c.Cache.WindowDays)
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		return fmt.Errorf("config: scheduler interval must be positive")
	}
	seen := make(map[string]bool, len(c.Channels))
	for _, ch := range c.Channels {
		if ch.Name == "" || ch.Type == "" {
			return fmt.Errorf("config: channels need a name and a type")
		}
		if seen[ch.Name] {
			return fmt.Errorf("config: duplicate channel %q", ch.Name)
		}
		seen[ch.Name] = true
	}
	return nil
}

// Load reads YAML configuration (if present) and applies environment
// overrides. An empty path falls back to BROKEN_PROMISES_CONFIG.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Channels) == 0 {
		cfg.Channels = defaultConfig().Channels
	}
	cfg.applyGuardianKey()

	return cfg
}

func (c *Config) applyEnvOverrides() {
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
	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

// applyGuardianKey fills the API key of guardian channels that have none.
func (c *Config) applyGuardianKey() {
	key := os.Getenv(guardianKeyEnv)
	if key == "" {
		return
	}
	for i := range c.Channels {
		ch := &c.Channels[i]
		if !strings.EqualFold(ch.Type, "guardian") || ch.Options["apiKey"] != "" {
			continue
		}
		opts := make(map[string]string, len(ch.Options)+1)
		for k, v := range ch.Options {
			opts[k] = v
		}
		opts["apiKey"] = key
		ch.Options = opts
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
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Cache.WindowDays != 0 {
		base.Cache.WindowDays = override.Cache.WindowDays
	}
	base.Collector.Strict = base.Collector.Strict || override.Collector.Strict

	if len(override.Channels) > 0 {
		base.Channels = override.Channels
	}

	if override.Analysis.Mode != "" {
		base.Analysis.Mode = override.Analysis.Mode
	}
	if override.Analysis.Endpoint != "" {
		base.Analysis.Endpoint = override.Analysis.Endpoint
	}
	if override.Analysis.APIKey != "" {
		base.Analysis.APIKey = override.Analysis.APIKey
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}

	if override.Worker.Concurrency != 0 {
		base.Worker.Concurrency = override.Worker.Concurrency
	}
	if override.Worker.QueueSize != 0 {
		base.Worker.QueueSize = override.Worker.QueueSize
	}
	if override.Worker.LockDir != "" {
		base.Worker.LockDir = override.Worker.LockDir
	}

	base.Scheduler.Enabled = base.Scheduler.Enabled || override.Scheduler.Enabled
	if override.Scheduler.Interval != 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
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

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "auto"},
		Database:  DatabaseConfig{Driver: "sqlite", DSN: "data/brokenpromises.db"},
		Cache:     CacheConfig{WindowDays: 31},
		Analysis:  AnalysisConfig{Mode: AnalysisDateparser},
		HTTP:      HTTPConfig{Addr: ":8080"},
		Worker:    WorkerConfig{Concurrency: 2, QueueSize: 64},
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour, Timezone: defaultTimezone, location: tz},
		Channels: []ChannelConfig{
			{Name: "guardian", Type: "guardian"},
		},
	}
}
