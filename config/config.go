package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/identity-admin/pkg/auth"
	"github.com/jwalitptl/identity-admin/pkg/logger"
	"github.com/jwalitptl/identity-admin/pkg/messaging/redis"
	"github.com/jwalitptl/identity-admin/pkg/password"
	"github.com/jwalitptl/identity-admin/pkg/validator"
)

// EnvPrefix is the prefix for environment overrides, e.g. IDENTITY_SERVER_PORT.
const EnvPrefix = "IDENTITY"

type DatabaseConfig struct {
	Host            string        `mapstructure:"host" envconfig:"host"`
	Port            int           `mapstructure:"port" envconfig:"port"`
	User            string        `mapstructure:"user" envconfig:"user"`
	Password        string        `mapstructure:"password" envconfig:"password"`
	Name            string        `mapstructure:"name" envconfig:"name"`
	SSLMode         string        `mapstructure:"sslmode" envconfig:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" envconfig:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" envconfig:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" envconfig:"conn_max_lifetime"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" envconfig:"port" validate:"min=1,max=65535"`
	Mode            string        `mapstructure:"mode" envconfig:"mode" validate:"oneof=debug release test"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" envconfig:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" envconfig:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" envconfig:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes" envconfig:"max_header_bytes"`
}

type StorageConfig struct {
	Driver      string   `mapstructure:"driver" envconfig:"driver" validate:"oneof=postgres memory"`
	AutoMigrate bool     `mapstructure:"auto_migrate" envconfig:"auto_migrate"`
	SeedRoles   []string `mapstructure:"seed_roles" envconfig:"seed_roles"`
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled" envconfig:"enabled"`
	URL          string        `mapstructure:"url" envconfig:"url" validate:"required_if=Enabled true"`
	Channel      string        `mapstructure:"channel" envconfig:"channel"`
	MaxRetries   int           `mapstructure:"max_retries" envconfig:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" envconfig:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size" envconfig:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns" envconfig:"min_idle_conns"`
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

type IdentityConfig struct {
	Password                  password.Policy `mapstructure:"password" envconfig:"password"`
	AdminRole                 string          `mapstructure:"admin_role" envconfig:"admin_role" validate:"required"`
	RequireUniqueEmail        bool            `mapstructure:"require_unique_email" envconfig:"require_unique_email"`
	AllowedUserNameCharacters string          `mapstructure:"allowed_user_name_characters" envconfig:"allowed_user_name_characters"`
	BcryptCost                int             `mapstructure:"bcrypt_cost" envconfig:"bcrypt_cost"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled" envconfig:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" envconfig:"requests_per_second"`
	Burst             int     `mapstructure:"burst" envconfig:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" envconfig:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods" envconfig:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers" envconfig:"allowed_headers"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `mapstructure:"prometheus_enabled" envconfig:"prometheus_enabled"`
	MetricsPath       string `mapstructure:"metrics_path" envconfig:"metrics_path"`
}

type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled" envconfig:"enabled"`
	Host     string `mapstructure:"host" envconfig:"host" validate:"required_if=Enabled true"`
	Port     int    `mapstructure:"port" envconfig:"port"`
	Username string `mapstructure:"username" envconfig:"username"`
	Password string `mapstructure:"password" envconfig:"password"`
	From     string `mapstructure:"from" envconfig:"from" validate:"omitempty,email"`
}

type AuditConfig struct {
	Enabled     bool     `mapstructure:"enabled" envconfig:"enabled"`
	OutputPaths []string `mapstructure:"output_paths" envconfig:"output_paths"`
}

type CacheConfig struct {
	RoleTTL         time.Duration `mapstructure:"role_ttl" envconfig:"role_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" envconfig:"cleanup_interval"`
}

type Config struct {
	Server     ServerConfig     `mapstructure:"server" envconfig:"server"`
	Database   DatabaseConfig   `mapstructure:"database" envconfig:"database"`
	Storage    StorageConfig    `mapstructure:"storage" envconfig:"storage"`
	Redis      RedisConfig      `mapstructure:"redis" envconfig:"redis"`
	JWT        auth.Config      `mapstructure:"jwt" envconfig:"jwt"`
	Identity   IdentityConfig   `mapstructure:"identity" envconfig:"identity"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit" envconfig:"rate_limit"`
	CORS       CORSConfig       `mapstructure:"cors" envconfig:"cors"`
	Monitoring MonitoringConfig `mapstructure:"monitoring" envconfig:"monitoring"`
	Mail       MailConfig       `mapstructure:"mail" envconfig:"mail"`
	Audit      AuditConfig      `mapstructure:"audit" envconfig:"audit"`
	Log        logger.Config    `mapstructure:"log" envconfig:"log"`
	Cache      CacheConfig      `mapstructure:"cache" envconfig:"cache"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "identity")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("storage.auto_migrate", true)
	v.SetDefault("storage.seed_roles", []string{"admin"})

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.channel", "identity.events")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)

	def := password.DefaultPolicy()
	v.SetDefault("identity.password.minimum_length", def.MinimumLength)
	v.SetDefault("identity.password.minimum_unique_characters", def.MinimumUniqueCharacters)
	v.SetDefault("identity.password.require_uppercase", def.RequireUppercase)
	v.SetDefault("identity.password.require_lowercase", def.RequireLowercase)
	v.SetDefault("identity.password.require_digit", def.RequireDigit)
	v.SetDefault("identity.password.require_symbol", def.RequireSymbol)
	v.SetDefault("identity.admin_role", "admin")
	v.SetDefault("identity.require_unique_email", true)
	v.SetDefault("identity.allowed_user_name_characters",
		"abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-._@+")
	v.SetDefault("identity.bcrypt_cost", 10)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Authorization", "Content-Type", "X-Request-ID"})

	v.SetDefault("monitoring.prometheus_enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")

	v.SetDefault("mail.port", 587)

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.output_paths", []string{"stdout"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("cache.role_ttl", 5*time.Minute)
	v.SetDefault("cache.cleanup_interval", 10*time.Minute)
}

// Load reads configuration from path, or from config.yaml in the usual
// locations when path is empty. A missing config.yaml is not an error.
// IDENTITY_* environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app")
		v.AddConfigPath("/app/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
