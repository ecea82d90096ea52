package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		Driver      string `yaml:"driver"` // postgres, mysql, sqlite
		DSN         string `yaml:"url"`
		AutoMigrate bool   `yaml:"auto_migrate"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // minutes
	} `yaml:"jwt"`

	Realtime RealtimeConfig `yaml:"realtime"`

	Workers struct {
		NotificationRetentionDays int           `yaml:"notification_retention_days"`
		CleanupInterval           time.Duration `yaml:"cleanup_interval"`
	} `yaml:"workers"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// RealtimeConfig tunes the websocket layer.
type RealtimeConfig struct {
	HeartbeatTimeout time.Duration `yaml:"heartbeat_timeout"`
	SendBuffer       int           `yaml:"send_buffer"`
	MaxMessageBytes  int64         `yaml:"max_message_bytes"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
}

// Load reads configuration. When DATABASE_URL is set the environment is the
// only source (tests, containers); otherwise the YAML file at CONFIG_PATH is used.
func Load() (*Config, error) {
	var cfg Config

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		fromEnv(&cfg, dbURL)
	} else {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}
		if err := fromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func fromFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file %s: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func fromEnv(cfg *Config, dbURL string) {
	cfg.Database.DSN = dbURL
	cfg.Database.Driver = os.Getenv("DATABASE_DRIVER")
	cfg.Database.AutoMigrate = os.Getenv("DATABASE_AUTO_MIGRATE") != "false"
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Host = os.Getenv("SERVER_HOST")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.TTL, _ = strconv.Atoi(os.Getenv("JWT_TTL"))
	cfg.Metrics.Enabled = os.Getenv("METRICS_ENABLED") != "false"

	if v := os.Getenv("REALTIME_HEARTBEAT_TIMEOUT"); v != "" {
		cfg.Realtime.HeartbeatTimeout, _ = time.ParseDuration(v)
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDBDriver
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = DefaultJWTTTLMinutes
	}
	if c.Realtime.HeartbeatTimeout == 0 {
		c.Realtime.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if c.Realtime.SendBuffer == 0 {
		c.Realtime.SendBuffer = DefaultSendBuffer
	}
	if c.Realtime.MaxMessageBytes == 0 {
		c.Realtime.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if c.Realtime.WriteTimeout == 0 {
		c.Realtime.WriteTimeout = DefaultWriteTimeout
	}
	if c.Workers.NotificationRetentionDays == 0 {
		c.Workers.NotificationRetentionDays = DefaultRetentionDays
	}
	if c.Workers.CleanupInterval == 0 {
		c.Workers.CleanupInterval = DefaultCleanupInterval
	}
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database.url is required")
	}
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres, mysql or sqlite, got %q", c.Database.Driver)
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Realtime.HeartbeatTimeout < time.Second {
		return fmt.Errorf("realtime.heartbeat_timeout must be >= 1s, got %s", c.Realtime.HeartbeatTimeout)
	}
	if c.Realtime.SendBuffer < 1 {
		return errors.New("realtime.send_buffer must be >= 1")
	}
	return nil
}

// Address is the listen address for the HTTP server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}
