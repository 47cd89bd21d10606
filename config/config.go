package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	HTTPPort  string `envconfig:"HTTP_PORT"  default:":8080"`
	GrpcPort  string `envconfig:"GRPC_PORT"  default:":50051"`
	LogLevel  string `envconfig:"LOG_LEVEL"  default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"postgres"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	DBMigrate     bool   `envconfig:"DB_MIGRATE" default:"true"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"12h"`

	CurrencyDecimals int `envconfig:"CURRENCY_DECIMALS" default:"2"`

	BootstrapAdminUsername string `envconfig:"BOOTSTRAP_ADMIN_USERNAME"`
	BootstrapAdminPassword string `envconfig:"BOOTSTRAP_ADMIN_PASSWORD"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load reads .env when present, then the environment, and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration from environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("configuration error: DATABASE_URL is required for the postgres storage driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("configuration error: unknown STORAGE_DRIVER %q (want postgres or memory)", c.StorageDriver)
	}

	if c.CurrencyDecimals < 0 || c.CurrencyDecimals > 4 {
		return fmt.Errorf("configuration error: CURRENCY_DECIMALS must be between 0 and 4, got %d", c.CurrencyDecimals)
	}
	if c.SessionTTL <= 0 {
		return errors.New("configuration error: SESSION_TTL must be positive")
	}
	if (c.BootstrapAdminUsername == "") != (c.BootstrapAdminPassword == "") {
		return errors.New("configuration error: BOOTSTRAP_ADMIN_USERNAME and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}
	return nil
}

func LoadConfig(logger *logrus.Logger) *Config {
	cfg, err := Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Infof("Configuration loaded: HTTP Port=%s, GRPC Port=%s, Storage=%s, LogLevel=%s",
		cfg.HTTPPort, cfg.GrpcPort, cfg.StorageDriver, cfg.LogLevel)
	if cfg.DatabaseURL != "" {
		logger.Info("Configuration loaded: DatabaseURL is set")
	}
	if cfg.RedisAddr != "" {
		logger.Infof("Configuration loaded: sessions stored in Redis at %s", cfg.RedisAddr)
	}
	return cfg
}
