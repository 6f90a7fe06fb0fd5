// Package config loads process configuration from .env, an optional
// config.toml or config.yaml and CATALOG_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/catalog-feed/pkg/client"
	"github.com/Sternrassler/catalog-feed/pkg/logging"
	"github.com/Sternrassler/catalog-feed/pkg/pagination"
	"github.com/Sternrassler/catalog-feed/pkg/ratelimit"
	"github.com/Sternrassler/catalog-feed/pkg/translator"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key, e.g. CATALOG_PORT.
const EnvPrefix = "CATALOG"

// Environment names accepted by the env key.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

type Config struct {
	Env        string `mapstructure:"env"`
	Port       int    `mapstructure:"port"`
	CORSOrigin string `mapstructure:"cors_origin"`

	Log         LogConfig         `mapstructure:"log"`
	Upstream    UpstreamConfig    `mapstructure:"upstream"`
	Images      ImagesConfig      `mapstructure:"images"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Cache       CacheConfig       `mapstructure:"cache"`
	ErrorBudget ErrorBudgetConfig `mapstructure:"error_budget"`
	Warm        WarmConfig        `mapstructure:"warm"`
	Browser     BrowserConfig     `mapstructure:"browser"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type UpstreamConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Resource    string        `mapstructure:"resource"`
	UserAgent   string        `mapstructure:"user_agent"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

type ImagesConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// RedisConfig points at the cache and error budget store. An empty Addr
// disables both.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type ErrorBudgetConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

type WarmConfig struct {
	Pages       int `mapstructure:"pages"`
	Concurrency int `mapstructure:"concurrency"`
}

type BrowserConfig struct {
	APIURL   string `mapstructure:"api_url"`
	PageSize int    `mapstructure:"page_size"`
}

// setDefaults registers every key so AutomaticEnv can resolve it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", EnvDevelopment)
	v.SetDefault("port", 3000)
	v.SetDefault("cors_origin", "http://localhost:5173")

	v.SetDefault("log.level", "")
	v.SetDefault("log.pretty", false)

	v.SetDefault("upstream.base_url", "https://pokeapi.co/api/v2")
	v.SetDefault("upstream.resource", "pokemon")
	v.SetDefault("upstream.user_agent", "catalog-feed/1.0")
	v.SetDefault("upstream.timeout", 30*time.Second)
	v.SetDefault("upstream.max_attempts", 1)

	v.SetDefault("images.base_url", "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.ttl", 10*time.Minute)

	v.SetDefault("error_budget.limit", 100)
	v.SetDefault("error_budget.window", time.Minute)

	v.SetDefault("warm.pages", 0)
	v.SetDefault("warm.concurrency", 4)

	v.SetDefault("browser.api_url", "http://localhost:3000")
	v.SetDefault("browser.page_size", 50)
}

// NewConfig loads and validates the configuration. A missing .env or config
// file is not an error.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath("config")
	v.AddConfigPath(".")

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvTest, EnvProduction:
	default:
		return fmt.Errorf("invalid env %q: want development, test or production", c.Env)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Log.Level != "" && !logging.IsValidLevel(c.Log.Level) {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	if c.Upstream.Resource == "" {
		return errors.New("upstream.resource is required")
	}
	if c.Upstream.MaxAttempts < 1 {
		return fmt.Errorf("invalid upstream.max_attempts %d", c.Upstream.MaxAttempts)
	}
	if c.Browser.PageSize < 1 || c.Browser.PageSize > translator.MaxPageSize {
		return fmt.Errorf("invalid browser.page_size %d: want 1..%d", c.Browser.PageSize, translator.MaxPageSize)
	}
	if c.Warm.Pages < 0 {
		return fmt.Errorf("invalid warm.pages %d", c.Warm.Pages)
	}
	return nil
}

// Address returns the listen address for the HTTP server.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Logging derives the logger configuration. Explicit log keys override the
// environment defaults.
func (c *Config) Logging(service string) logging.Config {
	cfg := logging.ConfigForEnv(c.Env)
	cfg.Service = service
	if c.Log.Level != "" {
		cfg.Level = logging.LogLevel(c.Log.Level)
	}
	if c.Log.Pretty {
		cfg.Pretty = true
	}
	return cfg
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// RedisOptions returns go-redis options, or nil when Redis is disabled.
func (c *Config) RedisOptions() *redis.Options {
	if !c.RedisEnabled() {
		return nil
	}
	return &redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}

// Client builds the upstream client configuration around redisClient, which
// may be nil.
func (c *Config) Client(redisClient *redis.Client) client.Config {
	cfg := client.DefaultConfig(redisClient, c.Upstream.UserAgent)
	cfg.BaseURL = c.Upstream.BaseURL
	cfg.Resource = c.Upstream.Resource
	cfg.Timeout = c.Upstream.Timeout
	cfg.CacheTTL = c.Cache.TTL
	cfg.Retry.MaxAttempts = c.Upstream.MaxAttempts

	budget := ratelimit.DefaultConfig()
	if c.ErrorBudget.Limit > 0 {
		budget.Limit = c.ErrorBudget.Limit
	}
	if c.ErrorBudget.Window > 0 {
		budget.Window = c.ErrorBudget.Window
	}
	cfg.ErrorBudget = budget
	return cfg
}

// Translator returns the translator settings.
func (c *Config) Translator() translator.Config {
	return translator.Config{
		Resource:     c.Upstream.Resource,
		ImageBaseURL: c.Images.BaseURL,
	}
}

// Warmer returns the warm-up settings; Pages 0 disables warm-up.
func (c *Config) Warmer() pagination.Config {
	cfg := pagination.DefaultConfig()
	cfg.Pages = c.Warm.Pages
	cfg.Concurrency = c.Warm.Concurrency
	cfg.PageSize = c.Browser.PageSize
	return cfg
}
