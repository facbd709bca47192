package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends understood by persistence.Open.
const (
	StoreBackendMemory   = "memory"
	StoreBackendFile     = "file"
	StoreBackendSQLite   = "sqlite"
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig          `yaml:"app"`
	Store        StoreConfig        `yaml:"store"`
	Logger       LoggerConfig       `yaml:"logger"`
	Auth         AuthConfig         `yaml:"auth"`
	SLA          SLAConfig          `yaml:"sla"`
	Notification NotificationConfig `yaml:"notification"`
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `yaml:"name"`
	Env                   string `yaml:"env"`
	Host                  string `yaml:"host"`
	Port                  string `yaml:"port"`
	Version               string `yaml:"version"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
}

// StoreConfig selects and configures the key-value store backend.
type StoreConfig struct {
	Backend  string         `yaml:"backend"`
	Path     string         `yaml:"path"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	MaxConns       int32  `yaml:"max_conns"`
	MinConns       int32  `yaml:"min_conns"`
	RunMigrations  bool   `yaml:"run_migrations"`
	ConnMaxIdleSec int32  `yaml:"conn_max_idle_seconds"`
	ConnMaxLifeSec int32  `yaml:"conn_max_life_seconds"`
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AuthConfig defines the login gate parameters.
type AuthConfig struct {
	RequireLogin          bool   `yaml:"require_login"`
	JWTSecret             string `yaml:"jwt_secret"`
	AccessTokenTTLMinutes int    `yaml:"access_token_ttl_minutes"`
	BcryptCost            int    `yaml:"bcrypt_cost"`
	AdminPassword         string `yaml:"admin_password"`
	UserPassword          string `yaml:"user_password"`
}

// SLAConfig controls the escalation sweeper.
type SLAConfig struct {
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string `yaml:"email_from"`
	WebhookURL string `yaml:"webhook_url"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		App: AppConfig{
			Name:                  "helpdesk",
			Env:                   "development",
			Host:                  "0.0.0.0",
			Port:                  "8080",
			Version:               "dev",
			RequestTimeoutSeconds: 30,
		},
		Store: StoreConfig{
			Backend: StoreBackendSQLite,
			Path:    ".helpdesk/helpdesk.db",
			Redis: RedisConfig{
				Addr:      "127.0.0.1:6379",
				KeyPrefix: "helpdesk:",
			},
			Postgres: PostgresConfig{
				MaxConns:       10,
				MinConns:       2,
				RunMigrations:  true,
				ConnMaxIdleSec: 30,
				ConnMaxLifeSec: 300,
			},
		},
		Logger: LoggerConfig{Level: "info", Format: "json"},
		Auth: AuthConfig{
			RequireLogin:          true,
			JWTSecret:             "dev-secret",
			AccessTokenTTLMinutes: 60,
			BcryptCost:            10,
			AdminPassword:         "1234",
			UserPassword:          "123",
		},
		SLA: SLAConfig{SweepIntervalSeconds: 60},
		Notification: NotificationConfig{
			EmailFrom: "noreply@example.com",
		},
	}
}

// Load reads configuration from an optional YAML file and environment
// variables, applying defaults where possible. Environment wins over the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = os.Getenv("HELPDESK_CONFIG_PATH")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", strconv.Itoa(cfg.Store.Redis.DB)))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnv("APP_PORT", cfg.App.Port)
	cfg.App.Version = getEnv("APP_VERSION", cfg.App.Version)
	cfg.App.RequestTimeoutSeconds = getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", cfg.App.RequestTimeoutSeconds)

	cfg.Store.Backend = getEnv("STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.Path = getEnv("STORE_PATH", cfg.Store.Path)
	cfg.Store.Redis.Addr = getEnv("REDIS_ADDR", cfg.Store.Redis.Addr)
	cfg.Store.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Store.Redis.Password)
	cfg.Store.Redis.DB = redisDB
	cfg.Store.Redis.KeyPrefix = getEnv("REDIS_KEY_PREFIX", cfg.Store.Redis.KeyPrefix)
	cfg.Store.Postgres.DSN = getEnv("POSTGRES_DSN", cfg.Store.Postgres.DSN)
	cfg.Store.Postgres.MaxConns = int32(getEnvAsInt("POSTGRES_MAX_CONNS", int(cfg.Store.Postgres.MaxConns)))
	cfg.Store.Postgres.MinConns = int32(getEnvAsInt("POSTGRES_MIN_CONNS", int(cfg.Store.Postgres.MinConns)))
	cfg.Store.Postgres.RunMigrations = getEnvAsBool("POSTGRES_RUN_MIGRATIONS", cfg.Store.Postgres.RunMigrations)
	cfg.Store.Postgres.ConnMaxIdleSec = int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", int(cfg.Store.Postgres.ConnMaxIdleSec)))
	cfg.Store.Postgres.ConnMaxLifeSec = int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", int(cfg.Store.Postgres.ConnMaxLifeSec)))

	cfg.Logger.Level = getEnv("LOG_LEVEL", cfg.Logger.Level)
	cfg.Logger.Format = getEnv("LOG_FORMAT", cfg.Logger.Format)

	cfg.Auth.RequireLogin = getEnvAsBool("AUTH_REQUIRE_LOGIN", cfg.Auth.RequireLogin)
	cfg.Auth.JWTSecret = getEnv("AUTH_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.AccessTokenTTLMinutes = getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", cfg.Auth.AccessTokenTTLMinutes)
	cfg.Auth.BcryptCost = getEnvAsInt("AUTH_BCRYPT_COST", cfg.Auth.BcryptCost)
	cfg.Auth.AdminPassword = getEnv("AUTH_ADMIN_PASSWORD", cfg.Auth.AdminPassword)
	cfg.Auth.UserPassword = getEnv("AUTH_USER_PASSWORD", cfg.Auth.UserPassword)

	cfg.SLA.SweepIntervalSeconds = getEnvAsInt("SLA_SWEEP_INTERVAL_SECONDS", cfg.SLA.SweepIntervalSeconds)

	cfg.Notification.EmailFrom = getEnv("NOTIFY_EMAIL_FROM", cfg.Notification.EmailFrom)
	cfg.Notification.WebhookURL = getEnv("NOTIFY_WEBHOOK_URL", cfg.Notification.WebhookURL)

	return &cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SweepInterval returns the period between SLA sweeps.
func (s SLAConfig) SweepInterval() time.Duration {
	if s.SweepIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(s.SweepIntervalSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
