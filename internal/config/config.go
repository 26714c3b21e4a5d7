// Package config loads and validates scraper configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/gridscraper/internal/grid"
)

// Environment variables holding the grid credentials.
const (
	EnvUsername  = "BROWSERSTACK_USERNAME"
	EnvAccessKey = "BROWSERSTACK_ACCESS_KEY"
)

var (
	// ErrMissingCredentials is returned when the grid username or access key is unset.
	ErrMissingCredentials = errors.New("missing grid credentials: set " + EnvUsername + " and " + EnvAccessKey)
	// ErrInvalidConfig wraps every other validation failure.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Grid         GridConfig         `mapstructure:"grid"`
	Dispatcher   DispatcherConfig   `mapstructure:"dispatcher"`
	Extract      ExtractConfig      `mapstructure:"extract"`
	Images       ImagesConfig       `mapstructure:"images"`
	Translate    TranslateConfig    `mapstructure:"translate"`
	Headless     HeadlessConfig     `mapstructure:"headless"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Environments []grid.Environment `mapstructure:"environments"`
}

// GridConfig addresses the remote WebDriver hub.
type GridConfig struct {
	Hub                    string  `mapstructure:"hub"`
	Scheme                 string  `mapstructure:"scheme"`
	Username               string  `mapstructure:"username"`
	AccessKey              string  `mapstructure:"access_key"`
	OpenRate               float64 `mapstructure:"open_rate"`
	PageLoadTimeoutSeconds int     `mapstructure:"page_load_timeout_seconds"`
}

// DispatcherConfig sizes the session pool.
type DispatcherConfig struct {
	Width int `mapstructure:"width"`
}

// ExtractConfig points the extractor at the news site.
type ExtractConfig struct {
	HomeURL        string `mapstructure:"home_url"`
	ListingURL     string `mapstructure:"listing_url"`
	MaxArticles    int    `mapstructure:"max_articles"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ImagesConfig controls cover image downloads.
type ImagesConfig struct {
	Dir            string `mapstructure:"dir"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// TranslateConfig configures the translation stage.
type TranslateConfig struct {
	Source         string `mapstructure:"source"`
	Target         string `mapstructure:"target"`
	Endpoint       string `mapstructure:"endpoint"`
	Threshold      int    `mapstructure:"threshold"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// HeadlessConfig configures the local Chrome used by the scrape command.
type HeadlessConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	UserAgent     string `mapstructure:"user_agent"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig enables the metrics and health listener when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GRIDSCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("grid.username", EnvUsername); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("grid.access_key", EnvAccessKey); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.Environments) == 0 {
		cfg.Environments = grid.DefaultEnvironments()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("grid.hub", "hub-cloud.browserstack.com/wd/hub")
	v.SetDefault("grid.scheme", "https")
	v.SetDefault("grid.open_rate", 0)
	v.SetDefault("grid.page_load_timeout_seconds", 30)
	v.SetDefault("dispatcher.width", 5)
	v.SetDefault("extract.home_url", "https://elpais.com/")
	v.SetDefault("extract.listing_url", "https://elpais.com/opinion/")
	v.SetDefault("extract.max_articles", 5)
	v.SetDefault("extract.timeout_seconds", 10)
	v.SetDefault("images.dir", "article_images")
	v.SetDefault("images.timeout_seconds", 15)
	v.SetDefault("images.user_agent", "gridscraper/0.1")
	v.SetDefault("translate.source", "es")
	v.SetDefault("translate.target", "en")
	v.SetDefault("translate.endpoint", "https://translate.google.com/m")
	v.SetDefault("translate.threshold", 2)
	v.SetDefault("translate.timeout_seconds", 15)
	v.SetDefault("headless.enabled", true)
	v.SetDefault("headless.nav_timeout_seconds", 30)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits. Grid credentials
// are checked separately by GridConfig.Validate since only remote runs need them.
func (c Config) Validate() error {
	if c.Dispatcher.Width <= 0 {
		return fmt.Errorf("%w: dispatcher.width must be > 0", ErrInvalidConfig)
	}
	if c.Extract.MaxArticles <= 0 {
		return fmt.Errorf("%w: extract.max_articles must be > 0", ErrInvalidConfig)
	}
	if c.Extract.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: extract.timeout_seconds must be > 0", ErrInvalidConfig)
	}
	if c.Extract.HomeURL == "" || c.Extract.ListingURL == "" {
		return fmt.Errorf("%w: extract.home_url and extract.listing_url are required", ErrInvalidConfig)
	}
	if c.Images.Dir == "" {
		return fmt.Errorf("%w: images.dir is required", ErrInvalidConfig)
	}
	if c.Translate.Threshold <= 0 {
		return fmt.Errorf("%w: translate.threshold must be > 0", ErrInvalidConfig)
	}
	if c.Grid.OpenRate < 0 {
		return fmt.Errorf("%w: grid.open_rate must be >= 0", ErrInvalidConfig)
	}
	for i, env := range c.Environments {
		if strings.TrimSpace(env.Browser) == "" {
			return fmt.Errorf("%w: environments[%d].browser is required", ErrInvalidConfig, i)
		}
	}
	return nil
}

// Validate reports ErrMissingCredentials when either credential is blank.
func (g GridConfig) Validate() error {
	if strings.TrimSpace(g.Username) == "" || strings.TrimSpace(g.AccessKey) == "" {
		return ErrMissingCredentials
	}
	return nil
}

// HubURL returns the hub endpoint with credentials embedded.
func (g GridConfig) HubURL() (string, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}
	scheme := g.Scheme
	if scheme == "" {
		scheme = "https"
	}
	u, err := url.Parse(scheme + "://" + strings.TrimPrefix(g.Hub, "/"))
	if err != nil {
		return "", fmt.Errorf("parse grid hub: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: grid.hub %q has no host", ErrInvalidConfig, g.Hub)
	}
	u.User = url.UserPassword(g.Username, g.AccessKey)
	return u.String(), nil
}

// PageLoadTimeout converts the page load budget into a duration.
func (g GridConfig) PageLoadTimeout() time.Duration {
	return time.Duration(g.PageLoadTimeoutSeconds) * time.Second
}

// Timeout converts the DOM wait budget into a duration.
func (e ExtractConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// Timeout converts the download budget into a duration.
func (i ImagesConfig) Timeout() time.Duration {
	return time.Duration(i.TimeoutSeconds) * time.Second
}

// Timeout converts the translation request budget into a duration.
func (t TranslateConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// NavTimeout converts the local navigation budget into a duration.
func (h HeadlessConfig) NavTimeout() time.Duration {
	return time.Duration(h.NavTimeoutSec) * time.Second
}
