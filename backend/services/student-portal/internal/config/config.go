package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	libconfig "tuitionpay/backend/libs/config"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config defines student portal configuration.
type Config struct {
	API struct {
		BaseURL        string `yaml:"baseUrl" env:"PORTAL_API_BASE_URL"`
		TimeoutSeconds int    `yaml:"timeoutSeconds" env:"PORTAL_API_TIMEOUT"`
	} `yaml:"api"`
	HTTP struct {
		Port string `yaml:"port" env:"PORTAL_HTTP_PORT"`
	} `yaml:"http"`
	Profile string `yaml:"profile" env:"PORTAL_PROFILE"`
	Storage struct {
		Driver string `yaml:"driver" env:"PORTAL_STORAGE_DRIVER"`
		File   struct {
			Dir        string `yaml:"dir" env:"PORTAL_STORAGE_DIR"`
			Passphrase string `yaml:"passphrase" env:"PORTAL_STORAGE_PASSPHRASE"`
		} `yaml:"file"`
		Redis struct {
			Addr       string `yaml:"addr" env:"PORTAL_REDIS_ADDR"`
			Password   string `yaml:"password" env:"PORTAL_REDIS_PASSWORD"`
			DB         int    `yaml:"db" env:"PORTAL_REDIS_DB"`
			TTLSeconds int    `yaml:"ttlSeconds" env:"PORTAL_REDIS_TTL"`
		} `yaml:"redis"`
		Postgres struct {
			DSN string `yaml:"dsn" env:"PORTAL_POSTGRES_DSN"`
		} `yaml:"postgres"`
	} `yaml:"storage"`
	Notify struct {
		URL            string `yaml:"url" env:"PORTAL_NOTIFY_URL"`
		BackoffSeconds int    `yaml:"backoffSeconds" env:"PORTAL_NOTIFY_BACKOFF"`
	} `yaml:"notify"`
	Watch struct {
		IntervalSeconds int `yaml:"intervalSeconds" env:"PORTAL_WATCH_INTERVAL"`
	} `yaml:"watch"`
	Log struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
	} `yaml:"log"`
}

// Default returns the configuration used when neither file nor env set a value.
func Default() *Config {
	cfg := &Config{}
	cfg.API.TimeoutSeconds = 10
	cfg.HTTP.Port = "8090"
	cfg.Profile = "default"
	cfg.Storage.Driver = DriverFile
	cfg.Storage.File.Dir = ".student-portal"
	cfg.Storage.Redis.TTLSeconds = int((7 * 24 * time.Hour).Seconds())
	cfg.Notify.BackoffSeconds = 5
	cfg.Watch.IntervalSeconds = 5
	return cfg
}

// Load reads path (or CONFIG_FILE) and the environment over Default, then validates.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields for the selected storage driver.
func (c *Config) Validate() error {
	base := strings.TrimSpace(c.API.BaseURL)
	if base == "" {
		return errors.New("config: api.baseUrl required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: api.baseUrl %q is not an absolute url", base)
	}
	if strings.ContainsAny(c.Profile, `/\`) || strings.TrimSpace(c.Profile) == "" {
		return fmt.Errorf("config: invalid profile %q", c.Profile)
	}

	switch c.Storage.Driver {
	case DriverFile:
		if strings.TrimSpace(c.Storage.File.Dir) == "" {
			return errors.New("config: storage.file.dir required")
		}
	case DriverRedis:
		if strings.TrimSpace(c.Storage.Redis.Addr) == "" {
			return errors.New("config: storage.redis.addr required")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Storage.Postgres.DSN) == "" {
			return errors.New("config: storage.postgres.dsn required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8090"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// HTTPTimeout returns the API client timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return seconds(c.API.TimeoutSeconds, 10*time.Second)
}

// RedisTTL returns how long persisted keys live in redis. Zero means no expiry.
func (c *Config) RedisTTL() time.Duration {
	if c.Storage.Redis.TTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Storage.Redis.TTLSeconds) * time.Second
}

// NotifyBackoff returns the reconnect delay of the notification listener.
func (c *Config) NotifyBackoff() time.Duration {
	return seconds(c.Notify.BackoffSeconds, 5*time.Second)
}

// WatchInterval returns the payment polling interval.
func (c *Config) WatchInterval() time.Duration {
	return seconds(c.Watch.IntervalSeconds, 5*time.Second)
}

// StorageDir returns the absolute directory of the file driver.
func (c *Config) StorageDir() (string, error) {
	return filepath.Abs(c.Storage.File.Dir)
}

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
