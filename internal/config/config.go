package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	// ErrNoTarget is returned when neither a catalog URL nor a category is given
	ErrNoTarget = errors.New("specify --url or --category")

	// ErrBothTargets is returned when a catalog URL and a category are both given
	ErrBothTargets = errors.New("--url and --category are mutually exclusive")
)

// EnvPrefix prefixes every environment variable mapped onto a config key
const EnvPrefix = "TGCATALOG"

// Config holds all application configuration
type Config struct {
	// Catalog being crawled
	Catalog CatalogConfig `mapstructure:"catalog"`

	// Crawler configuration
	Crawler CrawlerConfig `mapstructure:"crawler"`

	// Output configuration
	Output OutputConfig `mapstructure:"output"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// CatalogConfig names the catalog and, optionally, the crawl target
type CatalogConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	ItemType string `mapstructure:"item_type"` // "channels" or "chats"
	URL      string `mapstructure:"url"`
	Category string `mapstructure:"category"`
}

// CrawlerConfig holds crawler-specific configuration
type CrawlerConfig struct {
	Pages             int           `mapstructure:"pages"`
	DelayBase         time.Duration `mapstructure:"delay_base"`
	DelayJitter       time.Duration `mapstructure:"delay_jitter"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	BackoffInitial    time.Duration `mapstructure:"backoff_initial"`
	BackoffMax        time.Duration `mapstructure:"backoff_max"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	RateLimitCooldown time.Duration `mapstructure:"rate_limit_cooldown"`
	Proxy             string        `mapstructure:"proxy"`
	RespectRobots     bool          `mapstructure:"respect_robots"`
}

// OutputConfig holds output configuration
type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"` // summary format: "table", "markdown", "csv" or "json"
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Load loads configuration from defaults, an optional config file, .env and the environment.
// An empty configPath searches for config.yaml in the usual places; a missing file is not an error.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.tgcatalog")
	}

	setDefaults(v)
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := loadFromEnv(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Catalog defaults
	v.SetDefault("catalog.base_url", "https://tgstat.ru")
	v.SetDefault("catalog.item_type", "channels")
	v.SetDefault("catalog.url", "")
	v.SetDefault("catalog.category", "")

	// Crawler defaults
	v.SetDefault("crawler.pages", 1)
	v.SetDefault("crawler.delay_base", "800ms")
	v.SetDefault("crawler.delay_jitter", "400ms")
	v.SetDefault("crawler.timeout", "30s")
	v.SetDefault("crawler.max_attempts", 3)
	v.SetDefault("crawler.backoff_initial", "2s")
	v.SetDefault("crawler.backoff_max", "10s")
	v.SetDefault("crawler.requests_per_second", 2.0)
	v.SetDefault("crawler.rate_limit_cooldown", "5s")
	v.SetDefault("crawler.proxy", "")
	v.SetDefault("crawler.respect_robots", false)

	// Output defaults
	v.SetDefault("output.dir", "./output")
	v.SetDefault("output.format", "table")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "logs/app.log")
}

// bindEnvVars binds environment variables
func bindEnvVars(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// PROXY is honoured when the prefixed variable is unset
	_ = v.BindEnv("crawler.proxy", EnvPrefix+"_CRAWLER_PROXY", "PROXY")
}

// loadFromEnv applies the legacy delay variables, which hold plain seconds ("0.8")
// and only apply when the prefixed variable is unset
func loadFromEnv(config *Config) error {
	legacy := []struct {
		name     string
		prefixed string
		target   *time.Duration
	}{
		{"REQUEST_DELAY_BASE", EnvPrefix + "_CRAWLER_DELAY_BASE", &config.Crawler.DelayBase},
		{"REQUEST_DELAY_JITTER", EnvPrefix + "_CRAWLER_DELAY_JITTER", &config.Crawler.DelayJitter},
	}

	for _, l := range legacy {
		raw := strings.TrimSpace(os.Getenv(l.name))
		if raw == "" || os.Getenv(l.prefixed) != "" {
			continue
		}
		d, err := ParseSeconds(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", l.name, err)
		}
		*l.target = d
	}
	return nil
}

// ParseSeconds reads a duration given either as plain seconds ("0.8") or in Go syntax ("800ms")
func ParseSeconds(raw string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(raw)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.Catalog.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("catalog.base_url must be an absolute URL, got %q", c.Catalog.BaseURL)
	}
	if c.Catalog.ItemType != "channels" && c.Catalog.ItemType != "chats" {
		return fmt.Errorf("catalog.item_type must be channels or chats, got %q", c.Catalog.ItemType)
	}
	if c.Crawler.Pages <= 0 {
		return fmt.Errorf("crawler.pages must be positive")
	}
	if c.Crawler.MaxAttempts <= 0 {
		return fmt.Errorf("crawler.max_attempts must be positive")
	}
	if c.Crawler.Timeout <= 0 {
		return fmt.Errorf("crawler.timeout must be positive")
	}
	if c.Crawler.DelayBase < 0 || c.Crawler.DelayJitter < 0 {
		return fmt.Errorf("crawler delays must not be negative")
	}
	if c.Crawler.BackoffInitial < 0 || c.Crawler.BackoffMax < c.Crawler.BackoffInitial {
		return fmt.Errorf("crawler.backoff_max must be at least crawler.backoff_initial")
	}
	if c.Crawler.RequestsPerSecond < 0 {
		return fmt.Errorf("crawler.requests_per_second must not be negative")
	}
	switch c.Output.Format {
	case "table", "markdown", "csv", "json":
	default:
		return fmt.Errorf("output.format must be table, markdown, csv or json, got %q", c.Output.Format)
	}
	return nil
}

// ValidateTarget checks that exactly one of catalog URL and category is set
func (c *Config) ValidateTarget() error {
	hasURL := strings.TrimSpace(c.Catalog.URL) != ""
	hasCategory := strings.TrimSpace(c.Catalog.Category) != ""

	switch {
	case !hasURL && !hasCategory:
		return ErrNoTarget
	case hasURL && hasCategory:
		return ErrBothTargets
	}
	return nil
}
