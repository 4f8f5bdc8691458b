package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Video    VideoConfig    `mapstructure:"video"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Podcasts PodcastsConfig `mapstructure:"podcasts"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Advanced AdvancedConfig `mapstructure:"advanced"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host            string          `mapstructure:"host"`
	Port            int             `mapstructure:"port"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string        `mapstructure:"allowed_origins"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig configures per-client request limits
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

// HTTPConfig configures the outbound HTTP client
type HTTPConfig struct {
	MaxRetries int    `mapstructure:"max_retries"`
	UserAgent  string `mapstructure:"user_agent"`
}

// CatalogConfig configures the iTunes catalog lookups
type CatalogConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Country           string        `mapstructure:"country"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Burst             int           `mapstructure:"burst"`
}

// VideoConfig configures search page scraping
type VideoConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`

	// AnchorFallback also accepts /watch?v= links when the page carries no
	// embedded videoId marker
	AnchorFallback bool `mapstructure:"anchor_fallback"`
}

// GeminiConfig configures the term generator
type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// CacheConfig configures the resolver caches
type CacheConfig struct {
	MaxEntries int           `mapstructure:"max_entries"`
	PodcastTTL time.Duration `mapstructure:"podcast_ttl"`
	VideoTTL   time.Duration `mapstructure:"video_ttl"`
}

// PodcastsConfig configures podcast collection
type PodcastsConfig struct {
	LimitPerTerm  int      `mapstructure:"limit_per_term"`
	TotalLimit    int      `mapstructure:"total_limit"`
	FallbackTerms []string `mapstructure:"fallback_terms"`
}

// LoggingConfig configures the application logger
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	Color      bool   `mapstructure:"color"`
}

// AdvancedConfig holds debugging switches
type AdvancedConfig struct {
	Debug bool `mapstructure:"debug"`
}

// SetDefaults registers every default value on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.requests_per_minute", 60)
	v.SetDefault("server.rate_limit.burst", 20)

	v.SetDefault("http.max_retries", 1)
	v.SetDefault("http.user_agent", "moodcast/1.0")

	v.SetDefault("catalog.base_url", "https://itunes.apple.com/search")
	v.SetDefault("catalog.country", "US")
	v.SetDefault("catalog.timeout", 8*time.Second)
	v.SetDefault("catalog.requests_per_minute", 20)
	v.SetDefault("catalog.burst", 5)

	v.SetDefault("video.timeout", 8*time.Second)
	v.SetDefault("video.user_agent", "")
	v.SetDefault("video.anchor_fallback", false)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.temperature", 0.9)
	v.SetDefault("gemini.timeout", 30*time.Second)

	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.podcast_ttl", 10*time.Minute)
	v.SetDefault("cache.video_ttl", time.Hour)

	v.SetDefault("podcasts.limit_per_term", 5)
	v.SetDefault("podcasts.total_limit", 10)
	v.SetDefault("podcasts.fallback_terms", []string{"mindfulness", "motivation", "storytelling", "comedy", "music"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)
	v.SetDefault("logging.color", true)

	v.SetDefault("advanced.debug", false)
}

// Load reads configuration from cfgFile, or from the default location when
// cfgFile is empty, layered over defaults and MOODCAST_* environment
// variables. A missing default file is not an error.
func Load(cfgFile string) (*Config, *viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("MOODCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return &cfg, v, nil
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive, got %d", c.Cache.MaxEntries)
	}
	if c.Podcasts.TotalLimit <= 0 || c.Podcasts.LimitPerTerm <= 0 {
		return errors.New("podcasts.total_limit and podcasts.limit_per_term must be positive")
	}
	if c.Catalog.Timeout <= 0 || c.Video.Timeout <= 0 {
		return errors.New("catalog.timeout and video.timeout must be positive")
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ConfigDir returns the directory searched for config.yaml
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "moodcast")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "moodcast")
}

// WriteDefault writes a config file holding every default to path
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	if err := v.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
