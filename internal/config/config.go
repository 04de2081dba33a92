package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultListingURL is the public model listing consumed by default.
const DefaultListingURL = "https://openrouter.ai/api/v1/models"

// Config holds all configuration for modelmeter.
type Config struct {
	ListingURL string       `mapstructure:"listing_url"`
	StaticPath string       `mapstructure:"static_path"`
	Cache      CacheConfig  `mapstructure:"cache"`
	HTTP       HTTPConfig   `mapstructure:"http"`
	Server     ServerConfig `mapstructure:"server"`
	LogLevel   string       `mapstructure:"log_level"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	Backend       string        `mapstructure:"backend"` // file, memory or redis
	Dir           string        `mapstructure:"dir"`
	TTL           time.Duration `mapstructure:"ttl"`
	MaxBytes      int           `mapstructure:"max_bytes"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

// HTTPConfig holds settings for upstream requests.
type HTTPConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	RateLimit   float64       `mapstructure:"rate_limit"` // requests per second, 0 disables
	MaxAttempts uint          `mapstructure:"max_attempts"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

var validBackends = []string{"file", "memory", "redis"}

// Load reads configuration from file, environment, and defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("listing_url", DefaultListingURL)
	v.SetDefault("static_path", "")
	v.SetDefault("cache.backend", "file")
	v.SetDefault("cache.dir", defaultCacheDir())
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.max_bytes", 0)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.rate_limit", 0)
	v.SetDefault("http.max_attempts", 2)
	v.SetDefault("http.max_backoff", "30s")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log_level", "info")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/modelmeter")
	}

	// Environment variables, e.g. MODELMETER_CACHE_BACKEND
	v.SetEnvPrefix("MODELMETER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("cache.redis_password", "MODELMETER_CACHE_REDIS_PASSWORD", "REDIS_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be corrected silently.
func (c *Config) Validate() error {
	if c.ListingURL == "" {
		return fmt.Errorf("listing_url must not be empty")
	}
	if !slices.Contains(validBackends, c.Cache.Backend) {
		return fmt.Errorf("cache.backend %q: must be one of %s", c.Cache.Backend, strings.Join(validBackends, ", "))
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.HTTP.MaxAttempts == 0 {
		return fmt.Errorf("http.max_attempts must be at least 1")
	}
	if c.HTTP.RateLimit < 0 {
		return fmt.Errorf("http.rate_limit must not be negative")
	}
	return nil
}

// SlogLevel maps log_level to a slog.Level. Unknown values map to Info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "modelmeter-cache")
	}
	return filepath.Join(dir, "modelmeter")
}
