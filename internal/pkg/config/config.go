package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Vodeneev/linecompare/internal/pkg/models"
)

type Config struct {
	Poller   PollerConfig            `yaml:"poller"`
	Sources  map[string]SourceConfig `yaml:"sources"`
	Server   ServerConfig            `yaml:"server"`
	Logging  LoggingConfig           `yaml:"logging"`
	Postgres PostgresConfig          `yaml:"postgres"`
	Redis    RedisConfig             `yaml:"redis"`
	Notify   NotifyConfig            `yaml:"notify"`
}

type PollerConfig struct {
	Interval         time.Duration `yaml:"interval"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
	MaxParallelFetch int           `yaml:"max_parallel_fetch"`
	Reference        string        `yaml:"reference"`
	EnabledSources   []string      `yaml:"enabled_sources"` // column order; must include reference
}

// SourceConfig configures one producer. Kind selects the implementation
// ("draftkings", "betmgm", "fanduel", "fixture"); it defaults to the source name.
type SourceConfig struct {
	Kind      string              `yaml:"kind"`
	URL       string              `yaml:"url"`
	Wait      time.Duration       `yaml:"wait"`       // time to let the page render after navigation
	Headless  *bool               `yaml:"headless"`   // default true
	UserAgent string              `yaml:"user_agent"`
	Layout    *models.BlockLayout `yaml:"layout"`     // overrides the producer's built-in layout
	Fixture   string              `yaml:"fixture"`    // path to recorded extractions (kind=fixture)
}

// IsHeadless reports whether the browser should run without a window.
func (s SourceConfig) IsHeadless() bool {
	return s.Headless == nil || *s.Headless
}

type ServerConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	HighlightTTL      time.Duration `yaml:"highlight_ttl"` // how long the page keeps improved/worsened colors
	PollInterval      time.Duration `yaml:"poll_interval"` // page refresh interval when websocket is unavailable
	AllowedOrigins    []string      `yaml:"allowed_origins"`
	WebSocket         bool          `yaml:"websocket"` // page subscribes to /ws instead of polling /api/odds
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	File   string `yaml:"file"`   // optional extra sink
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Key      string        `yaml:"key"`
	Channel  string        `yaml:"channel"`
	TTL      time.Duration `yaml:"ttl"`
}

type NotifyConfig struct {
	TelegramBotToken  string        `yaml:"telegram_bot_token"`
	TelegramChatID    int64         `yaml:"telegram_chat_id"`
	DiscordWebhookURL string        `yaml:"discord_webhook_url"`
	Cooldown          time.Duration `yaml:"cooldown"` // minimum time between alerts for the same cell
}

func Load(configPath string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Notify.TelegramBotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Notify.TelegramChatID = id
		}
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		c.Notify.DiscordWebhookURL = v
	}
}

func (c *Config) applyDefaults() {
	if c.Poller.Interval <= 0 {
		c.Poller.Interval = 3 * time.Second
	}
	if c.Poller.FetchTimeout <= 0 {
		c.Poller.FetchTimeout = 20 * time.Second
	}
	if c.Poller.MaxParallelFetch <= 0 {
		c.Poller.MaxParallelFetch = 4
	}
	if c.Poller.Reference == "" {
		c.Poller.Reference = "draftkings"
	}
	c.Poller.Reference = normalizeName(c.Poller.Reference)
	if len(c.Poller.EnabledSources) == 0 {
		c.Poller.EnabledSources = []string{"draftkings", "betmgm", "fanduel"}
	}
	for i, s := range c.Poller.EnabledSources {
		c.Poller.EnabledSources[i] = normalizeName(s)
	}

	if c.Server.Port <= 0 {
		c.Server.Port = 5000
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		c.Server.ReadHeaderTimeout = 5 * time.Second
	}
	if c.Server.HighlightTTL <= 0 {
		c.Server.HighlightTTL = 2500 * time.Millisecond
	}
	if c.Server.PollInterval <= 0 {
		c.Server.PollInterval = 5 * time.Second
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Redis.Key == "" {
		c.Redis.Key = "linecompare:snapshot"
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "linecompare:snapshots"
	}
	if c.Redis.TTL <= 0 {
		c.Redis.TTL = time.Hour
	}

	if c.Notify.Cooldown <= 0 {
		c.Notify.Cooldown = 10 * time.Minute
	}
}

// Validate checks cross-field constraints after defaults are applied.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Poller.EnabledSources))
	hasRef := false
	for _, s := range c.Poller.EnabledSources {
		if s == "" {
			return fmt.Errorf("poller.enabled_sources contains an empty name")
		}
		if seen[s] {
			return fmt.Errorf("poller.enabled_sources lists %q twice", s)
		}
		seen[s] = true
		if s == c.Poller.Reference {
			hasRef = true
		}
	}
	if !hasRef {
		return fmt.Errorf("poller.reference %q must be one of poller.enabled_sources %v", c.Poller.Reference, c.Poller.EnabledSources)
	}
	for name, sc := range c.Sources {
		if sc.Layout != nil {
			if err := sc.Layout.Validate(); err != nil {
				return fmt.Errorf("sources.%s.layout: %w", name, err)
			}
		}
	}
	return nil
}

// Source returns the producer config for name with Kind filled in.
func (c *Config) Source(name string) SourceConfig {
	sc := c.Sources[name]
	if sc.Kind == "" {
		sc.Kind = name
	}
	sc.Kind = normalizeName(sc.Kind)
	return sc
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
