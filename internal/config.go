package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Upstream  UpstreamConfig    `yaml:"upstream"`
	Cache     CacheConfig       `yaml:"cache"`
	Index     IndexConfig       `yaml:"index"`
	Auth      AuthConfig        `yaml:"auth"`
	RateLimit RateLimitConfig   `yaml:"rate_limit"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Upstream, &c.Cache, &c.Index, &c.Auth, &c.RateLimit} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel    slog.Level `yaml:"log_level"`
	HTTP        HTTPConfig `yaml:"http"`
	CORSOrigins []string   `yaml:"cors_origins"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" env:"PORT"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// UpstreamConfig points at the OpenPecha API.
type UpstreamConfig struct {
	Endpoint string        `yaml:"endpoint" env:"OPENPECHA_ENDPOINT"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Validate validates the upstream configuration.
func (c *UpstreamConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Endpoint, validation.Required, is.URL),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
	)
}

// CacheConfig selects where upstream GET responses are cached.
type CacheConfig struct {
	Backend   string        `yaml:"backend"`
	TTL       time.Duration `yaml:"ttl"`
	RedisURL  string        `yaml:"redis_url" env:"REDIS_URL"`
	Namespace string        `yaml:"namespace"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = CacheNone
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.In(CacheNone, CacheMemory, CacheRedis)),
		validation.Field(&c.TTL, validation.When(c.Backend != CacheNone, validation.Required)),
		validation.Field(&c.RedisURL, validation.When(c.Backend == CacheRedis, validation.Required)),
	)
}

// IndexConfig holds the local search index configuration.
type IndexConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	// WarmPages bounds how many upstream pages per resource are indexed at startup.
	WarmPages int `yaml:"warm_pages"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.WarmPages, validation.Min(0)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token" env:"APP_AUTH_TOKEN"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// RateLimitConfig holds the per-client request limit. A zero RPS disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Validate validates the rate limit configuration.
func (c *RateLimitConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RPS, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.When(c.RPS > 0, validation.Required, validation.Min(1))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 3000,
			},
			CORSOrigins: []string{"*"},
		},
		Upstream: UpstreamConfig{
			Timeout: 15 * time.Second,
		},
		Cache: CacheConfig{
			Backend:   CacheNone,
			TTL:       time.Minute,
			Namespace: "catalog",
		},
		Index: IndexConfig{
			Enabled:   true,
			Path:      "./catalog.db",
			WarmPages: 3,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
