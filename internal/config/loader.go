package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "leadengine.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "LEADENGINE_PORT")
	setString(&cfg.Server.CORSOrigin, "LEADENGINE_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "LEADENGINE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "LEADENGINE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "LEADENGINE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "LEADENGINE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "LEADENGINE_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "LEADENGINE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "LEADENGINE_LOG_SERVICE")
	setFloat64(&cfg.Rate.RequestsPerSecond, "LEADENGINE_RATE_RPS")
	setInt(&cfg.Rate.Burst, "LEADENGINE_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "LEADENGINE_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "LEADENGINE_RATE_MAX_IDLE_TIME")
	setInt64(&cfg.Cache.MaxSizeMB, "LEADENGINE_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "LEADENGINE_CACHE_TTL")

	// Notifiers
	setString(&cfg.Notifiers.WhatsApp.GatewayURL, "LEADENGINE_WHATSAPP_URL")
	setString(&cfg.Notifiers.WhatsApp.Token, "LEADENGINE_WHATSAPP_TOKEN")
	setDuration(&cfg.Notifiers.WhatsApp.Timeout, "LEADENGINE_WHATSAPP_TIMEOUT")
	setString(&cfg.Notifiers.Email.Host, "LEADENGINE_SMTP_HOST")
	setString(&cfg.Notifiers.Email.Port, "LEADENGINE_SMTP_PORT")
	setString(&cfg.Notifiers.Email.Username, "LEADENGINE_SMTP_USERNAME")
	setString(&cfg.Notifiers.Email.Password, "LEADENGINE_SMTP_PASSWORD")
	setString(&cfg.Notifiers.Email.From, "LEADENGINE_SMTP_FROM")
	setString(&cfg.Notifiers.SMS.GatewayURL, "LEADENGINE_SMS_URL")
	setString(&cfg.Notifiers.SMS.Token, "LEADENGINE_SMS_TOKEN")
	setString(&cfg.Notifiers.SMS.Sender, "LEADENGINE_SMS_SENDER")
	setDuration(&cfg.Notifiers.SMS.Timeout, "LEADENGINE_SMS_TIMEOUT")

	// Dispatcher
	setDuration(&cfg.Dispatch.Interval, "LEADENGINE_DISPATCH_INTERVAL")
	setInt(&cfg.Dispatch.MaxParallel, "LEADENGINE_DISPATCH_MAX_PARALLEL")
	setInt(&cfg.Dispatch.BatchSize, "LEADENGINE_DISPATCH_BATCH_SIZE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN != "" && cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Dispatch.Interval <= 0 {
		return errors.New("dispatch.interval must be positive")
	}
	if cfg.Dispatch.MaxParallel < 1 {
		return errors.New("dispatch.max_parallel must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
