package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/catalog-feed/pkg/logging"
	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New())
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.Env != EnvDevelopment {
		t.Errorf("Env = %q, want %q", cfg.Env, EnvDevelopment)
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.CORSOrigin != "http://localhost:5173" {
		t.Errorf("CORSOrigin = %q", cfg.CORSOrigin)
	}
	if cfg.Upstream.BaseURL != "https://pokeapi.co/api/v2" {
		t.Errorf("Upstream.BaseURL = %q", cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.Resource != "pokemon" {
		t.Errorf("Upstream.Resource = %q", cfg.Upstream.Resource)
	}
	if cfg.Upstream.Timeout != 30*time.Second {
		t.Errorf("Upstream.Timeout = %v", cfg.Upstream.Timeout)
	}
	if cfg.RedisEnabled() {
		t.Error("RedisEnabled() = true, want false by default")
	}
	if cfg.RedisOptions() != nil {
		t.Error("RedisOptions() should be nil when redis is disabled")
	}
	if cfg.Browser.PageSize != 50 {
		t.Errorf("Browser.PageSize = %d, want 50", cfg.Browser.PageSize)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CATALOG_ENV", "production")
	t.Setenv("CATALOG_PORT", "8080")
	t.Setenv("CATALOG_REDIS_ADDR", "localhost:6379")
	t.Setenv("CATALOG_REDIS_DB", "3")
	t.Setenv("CATALOG_UPSTREAM_TIMEOUT", "5s")
	t.Setenv("CATALOG_UPSTREAM_MAX_ATTEMPTS", "3")
	t.Setenv("CATALOG_CACHE_TTL", "2m")

	cfg, err := load(viper.New())
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.Env != EnvProduction {
		t.Errorf("Env = %q, want production", cfg.Env)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Address() != ":8080" {
		t.Errorf("Address() = %q", cfg.Address())
	}

	opts := cfg.RedisOptions()
	if opts == nil {
		t.Fatal("RedisOptions() = nil, want options")
	}
	if opts.Addr != "localhost:6379" || opts.DB != 3 {
		t.Errorf("RedisOptions() = %+v", opts)
	}

	cc := cfg.Client(nil)
	if cc.Timeout != 5*time.Second {
		t.Errorf("client Timeout = %v, want 5s", cc.Timeout)
	}
	if cc.Retry.MaxAttempts != 3 {
		t.Errorf("client Retry.MaxAttempts = %d, want 3", cc.Retry.MaxAttempts)
	}
	if cc.CacheTTL != 2*time.Minute {
		t.Errorf("client CacheTTL = %v, want 2m", cc.CacheTTL)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
env = "test"
port = 4000

[upstream]
resource = "items"

[warm]
pages = 3
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	v.SetConfigFile(path)

	cfg, err := load(v)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.Env != EnvTest || cfg.Port != 4000 {
		t.Errorf("Env/Port = %q/%d", cfg.Env, cfg.Port)
	}
	if cfg.Translator().Resource != "items" {
		t.Errorf("Translator().Resource = %q, want items", cfg.Translator().Resource)
	}
	if w := cfg.Warmer(); w.Pages != 3 || w.PageSize != 50 {
		t.Errorf("Warmer() = %+v", w)
	}
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("port: 4000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CATALOG_PORT", "5000")

	v := viper.New()
	v.SetConfigFile(path)

	cfg, err := load(v)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.Port != 5000 {
		t.Errorf("Port = %d, want 5000", cfg.Port)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"unknown env", "CATALOG_ENV", "staging", "invalid env"},
		{"port zero", "CATALOG_PORT", "0", "invalid port"},
		{"port too large", "CATALOG_PORT", "70000", "invalid port"},
		{"bad log level", "CATALOG_LOG_LEVEL", "verbose", "invalid log level"},
		{"page size too large", "CATALOG_BROWSER_PAGE_SIZE", "500", "invalid browser.page_size"},
		{"page size zero", "CATALOG_BROWSER_PAGE_SIZE", "0", "invalid browser.page_size"},
		{"no attempts", "CATALOG_UPSTREAM_MAX_ATTEMPTS", "0", "invalid upstream.max_attempts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := load(viper.New())
			if err == nil {
				t.Fatal("load() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Logging(t *testing.T) {
	tests := []struct {
		name       string
		cfg        Config
		wantLevel  logging.LogLevel
		wantPretty bool
	}{
		{
			name:       "development defaults",
			cfg:        Config{Env: EnvDevelopment},
			wantLevel:  logging.LevelDebug,
			wantPretty: true,
		},
		{
			name:      "production defaults",
			cfg:       Config{Env: EnvProduction},
			wantLevel: logging.LevelInfo,
		},
		{
			name:       "explicit overrides",
			cfg:        Config{Env: EnvProduction, Log: LogConfig{Level: "error", Pretty: true}},
			wantLevel:  logging.LevelError,
			wantPretty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.Logging("catalog-server")
			if got.Level != tt.wantLevel {
				t.Errorf("Level = %q, want %q", got.Level, tt.wantLevel)
			}
			if got.Pretty != tt.wantPretty {
				t.Errorf("Pretty = %v, want %v", got.Pretty, tt.wantPretty)
			}
			if got.Service != "catalog-server" {
				t.Errorf("Service = %q", got.Service)
			}
		})
	}
}

func TestConfig_ClientErrorBudget(t *testing.T) {
	cfg := Config{
		Upstream:    UpstreamConfig{BaseURL: "http://example.test", Resource: "pokemon", UserAgent: "ua", MaxAttempts: 1},
		ErrorBudget: ErrorBudgetConfig{Limit: 10, Window: 30 * time.Second},
	}

	cc := cfg.Client(nil)
	if cc.ErrorBudget.Limit != 10 || cc.ErrorBudget.Window != 30*time.Second {
		t.Errorf("ErrorBudget = %+v", cc.ErrorBudget)
	}
	if cc.ErrorBudget.CriticalRemaining == 0 {
		t.Error("ErrorBudget thresholds should keep their defaults")
	}
	if cc.UserAgent != "ua" || cc.BaseURL != "http://example.test" {
		t.Errorf("client config = %+v", cc)
	}
}
