package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// Source describes one upstream provider.
type Source struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"` // "rss" or "rest"
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// RateLimitConfig bounds outbound calls per provider.
type RateLimitConfig struct {
	Requests int    `yaml:"requests"`
	Window   string `yaml:"window"`
}

// PreloadConfig drives the background warm-up of categories.
type PreloadConfig struct {
	Categories      []string `yaml:"categories"`
	Stagger         string   `yaml:"stagger"`
	RefreshInterval string   `yaml:"refresh_interval"`
}

type Config struct {
	FetchTimeout string          `yaml:"fetch_timeout"`
	RetryTimeout string          `yaml:"retry_timeout"`
	MaxRetries   int             `yaml:"max_retries"`
	CacheTTL     string          `yaml:"cache_ttl"`
	FeedSize     int             `yaml:"feed_size,omitempty"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
	Preload      PreloadConfig   `yaml:"preload"`
	Sources      []Source        `yaml:"sources"`
}

// FetchTimeoutDuration returns the per-provider call timeout (default 6s).
func (c *Config) FetchTimeoutDuration() time.Duration {
	return parseDuration(c.FetchTimeout, 6*time.Second)
}

// RetryTimeoutDuration returns the base delay between retries (default 400ms).
func (c *Config) RetryTimeoutDuration() time.Duration {
	return parseDuration(c.RetryTimeout, 400*time.Millisecond)
}

// GetMaxRetries returns the retry budget per fallback tier (default 2).
func (c *Config) GetMaxRetries() int {
	if c.MaxRetries <= 0 {
		return 2
	}
	return c.MaxRetries
}

// CacheTTLDuration returns how long a cached batch stays fresh (default 15m).
func (c *Config) CacheTTLDuration() time.Duration {
	return parseDuration(c.CacheTTL, 15*time.Minute)
}

// GetFeedSize returns the target article count per category (default 20).
func (c *Config) GetFeedSize() int {
	if c.FeedSize <= 0 {
		return 20
	}
	return c.FeedSize
}

// RateLimitRequests returns the allowed calls per window (default 10).
func (c *Config) RateLimitRequests() int {
	if c.RateLimit.Requests <= 0 {
		return 10
	}
	return c.RateLimit.Requests
}

// RateLimitWindow returns the rate limit window length (default 1m).
func (c *Config) RateLimitWindow() time.Duration {
	return parseDuration(c.RateLimit.Window, time.Minute)
}

// PreloadStagger returns the delay between successive category warm-ups at
// startup (default 2s).
func (c *Config) PreloadStagger() time.Duration {
	return parseDuration(c.Preload.Stagger, 2*time.Second)
}

// RefreshInterval returns how often warm categories are refetched in the
// background (default 15m).
func (c *Config) RefreshInterval() time.Duration {
	return parseDuration(c.Preload.RefreshInterval, 15*time.Minute)
}

func (c *Config) EnabledSources() []Source {
	var out []Source
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "newshub", "config.yaml")
}

func CachePath() string {
	return filepath.Join(xdg.CacheHome, "newshub", "newshub.db")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

func Load(path string) (*Config, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Write defaults to config path on first run
			if err := writeDefaults(path); err != nil {
				// Non-fatal: just use embedded defaults
				return defaults, nil
			}
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	validTypes := map[string]bool{"rss": true, "rest": true}
	for i, s := range cfg.Sources {
		if s.Name == "" {
			return fmt.Errorf("source %d: name is required", i)
		}
		if s.URL == "" {
			return fmt.Errorf("source %q: url is required", s.Name)
		}
		u, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("source %q: invalid url: %w", s.Name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("source %q: url scheme must be http or https, got %q", s.Name, u.Scheme)
		}
		if !validTypes[s.Type] {
			return fmt.Errorf("source %q: unknown type %q (valid: rss, rest)", s.Name, s.Type)
		}
	}
	return nil
}
