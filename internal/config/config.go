package config

import (
	"fmt"
	"time"
)

// State-store backends. The backend is selected explicitly at startup;
// there is no runtime fallback between them.
const (
	StateBackendRedis  = "redis"
	StateBackendMemory = "memory"
)

type Config struct {
	Environment    string                         `mapstructure:"environment"`
	Server         ServerConfig                   `mapstructure:"server"`
	Database       DatabaseConfig                 `mapstructure:"database"`
	Redis          RedisConfig                    `mapstructure:"redis"`
	JWT            JWTConfig                      `mapstructure:"jwt"`
	OAuth          OAuthConfig                    `mapstructure:"oauth"`
	OAuthProviders map[string]OAuthProviderConfig `mapstructure:"oauth_providers"`
	StateStore     StateStoreConfig               `mapstructure:"state_store"`
	Logging        LoggingConfig                  `mapstructure:"logging"`
	Metrics        MetricsConfig                  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// DSN builds the postgres connection string for the pool and the migrator.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type JWTConfig struct {
	Secret          string        `mapstructure:"secret"`
	Algorithm       string        `mapstructure:"algorithm"`
	Issuer          string        `mapstructure:"issuer"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

type OAuthConfig struct {
	// StateTTL bounds the window between issuing an authorization URL and
	// receiving its callback.
	StateTTL time.Duration `mapstructure:"state_ttl"`
	// RequestTimeout bounds every outbound call to the identity provider.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type OAuthProviderConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	AuthURL      string   `mapstructure:"auth_url"`
	TokenURL     string   `mapstructure:"token_url"`
	UserInfoURL  string   `mapstructure:"user_info_url"`
	Scopes       []string `mapstructure:"scopes"`
}

// Configured reports whether the provider has usable credentials.
func (c OAuthProviderConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type StateStoreConfig struct {
	// Backend is "redis" or "memory". The memory backend is single-process
	// and suitable for development only.
	Backend string `mapstructure:"backend"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	switch c.JWT.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("jwt.algorithm %q is not supported", c.JWT.Algorithm)
	}
	switch c.StateStore.Backend {
	case StateBackendRedis, StateBackendMemory:
	default:
		return fmt.Errorf("state_store.backend must be %q or %q, got %q",
			StateBackendRedis, StateBackendMemory, c.StateStore.Backend)
	}
	return nil
}
