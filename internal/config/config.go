package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	ConfigPathEnv     = "FEEDRANKER_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	databaseDriverEnv = "DATABASE_DRIVER"
	redisAddrEnv      = "REDIS_ADDR"
	redisPasswordEnv  = "REDIS_PASSWORD"
	natsURLEnv        = "NATS_URL"
	mlAPIKeyEnv       = "ML_API_KEY"
	chatGPTAPIKeyEnv  = "CHATGPT_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"
)

// Scoring providers selectable via ml.provider.
const (
	ProviderInference = "inference"
	ProviderChatGPT   = "chatgpt"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Redis         RedisConfig        `yaml:"redis"`
	NATS          NATSConfig         `yaml:"nats"`
	Feed          FeedConfig         `yaml:"feed"`
	Trending      TrendingConfig     `yaml:"trending"`
	Roles         RolesConfig        `yaml:"roles"`
	Engagement    EngagementConfig   `yaml:"engagement"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	ML            MLConfig           `yaml:"ml"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	Notifications NotificationConfig `yaml:"notifications"`
	Metrics       MetricsConfig      `yaml:"metrics"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the SQL backend (postgres or sqlite).
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RedisConfig describes the cache store. An empty address selects the in-process store.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Timeout  time.Duration `yaml:"timeout"`
}

// NATSConfig describes the event egress. An empty URL disables publishing.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// FeedConfig tunes feed assembly.
type FeedConfig struct {
	Policy       string        `yaml:"policy"`
	TTL          time.Duration `yaml:"ttl"`
	ArticleTTL   time.Duration `yaml:"articleTtl"`
	DefaultLimit int           `yaml:"defaultLimit"`
}

// TrendingConfig tunes trending computation and caching.
type TrendingConfig struct {
	PeriodTTL time.Duration `yaml:"periodTtl"`
	RoleTTL   time.Duration `yaml:"roleTtl"`
	CacheSize int           `yaml:"cacheSize"`
	Periods   []int         `yaml:"periods"`
}

// RolesConfig tunes role profile recomputation.
type RolesConfig struct {
	WindowDays  int           `yaml:"windowDays"`
	Parallelism int           `yaml:"parallelism"`
	LockTTL     time.Duration `yaml:"lockTtl"`
}

// EngagementConfig bounds the engagement log.
type EngagementConfig struct {
	RetentionDays int `yaml:"retentionDays"`
}

// SchedulerConfig defines when batch jobs run. Specs have six fields, seconds first.
type SchedulerConfig struct {
	Timezone  string         `yaml:"timezone"`
	Trending  string         `yaml:"trending"`
	Roles     string         `yaml:"roles"`
	Scoring   string         `yaml:"scoring"`
	Retention string         `yaml:"retention"`
	location  *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// MLConfig describes the AI scoring provider.
type MLConfig struct {
	Provider     string `yaml:"provider"`
	InferenceURL string `yaml:"inferenceUrl"`
	APIKey       string `yaml:"apiKey"`
	BatchSize    int    `yaml:"batchSize"`
}

// ChatGPTConfig defines how to contact an OpenAI-compatible chat API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
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

// MetricsConfig sets the Prometheus listen address; empty disables the endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads YAML configuration over the defaults and applies environment overrides.
// An empty path falls back to FEEDRANKER_CONFIG; no path at all means defaults.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	for _, p := range c.Trending.Periods {
		if p <= 0 {
			errs = append(errs, fmt.Errorf("trending.periods must be positive, got %d", p))
		}
	}
	switch c.ML.Provider {
	case "", ProviderInference, ProviderChatGPT:
	default:
		errs = append(errs, fmt.Errorf("ml.provider must be %s or %s, got %q", ProviderInference, ProviderChatGPT, c.ML.Provider))
	}
	return errors.Join(errs...)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Redis.Addr = v
	}

	if v := os.Getenv(redisPasswordEnv); v != "" {
		c.Redis.Password = v
	}

	if v := os.Getenv(natsURLEnv); v != "" {
		c.NATS.URL = v
	}

	if v := os.Getenv(mlAPIKeyEnv); v != "" {
		c.ML.APIKey = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}

	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
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

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "feedranker.db"},
		Redis:    RedisConfig{Timeout: 2 * time.Second},
		NATS:     NATSConfig{SubjectPrefix: "feedranker"},
		Feed: FeedConfig{
			Policy:       "open",
			TTL:          5 * time.Minute,
			ArticleTTL:   time.Hour,
			DefaultLimit: 20,
		},
		Trending: TrendingConfig{
			PeriodTTL: time.Hour,
			RoleTTL:   30 * time.Minute,
			CacheSize: 50,
			Periods:   []int{1, 7, 30},
		},
		Roles:      RolesConfig{WindowDays: 30, Parallelism: 4, LockTTL: 5 * time.Minute},
		Engagement: EngagementConfig{RetentionDays: 90},
		Scheduler: SchedulerConfig{
			Timezone:  defaultTimezone,
			Trending:  "0 0 * * * *",
			Roles:     "0 0 3 * * 1",
			Scoring:   "0 */15 * * * *",
			Retention: "0 30 4 * * *",
			location:  tz,
		},
		ML: MLConfig{Provider: ProviderInference, BatchSize: 50},
		ChatGPT: ChatGPTConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
		},
		Metrics: MetricsConfig{Addr: ":9090"},
	}
}
