package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	Environment string
	Port        string
	LogLevel    string

	// Shared site credential and token signing secret.
	SitePassword     string
	SitePasswordHash string
	AuthSecret       string
	SessionMaxAge    time.Duration
	FailureWindow    time.Duration

	// Audit log backend: postgres, redis, mongo or memory.
	AuditStore     string
	DatabaseURL    string
	RedisURL       string
	AuditRetention time.Duration
	MongoURL       string
	MongoDatabase  string

	SendGridAPIKey string
	AlertEmail     string
	AlertFrom      string
}

func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		SitePassword:     os.Getenv("SITE_PASSWORD"),
		SitePasswordHash: os.Getenv("SITE_PASSWORD_HASH"),
		AuthSecret:       os.Getenv("AUTH_SECRET"),

		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
		MongoURL:      getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "sitegate"),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		AlertEmail:     os.Getenv("ALERT_EMAIL"),
		AlertFrom:      os.Getenv("ALERT_FROM"),
	}

	var err error
	if cfg.SessionMaxAge, err = getDuration("SESSION_MAX_AGE", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.FailureWindow, err = getDuration("FAILURE_WINDOW", 60*time.Minute); err != nil {
		return nil, err
	}
	if cfg.AuditRetention, err = getDuration("AUDIT_RETENTION", 48*time.Hour); err != nil {
		return nil, err
	}

	cfg.AuditStore = os.Getenv("AUDIT_STORE")
	if cfg.AuditStore == "" {
		cfg.AuditStore = "memory"
		if cfg.DatabaseURL != "" {
			cfg.AuditStore = "postgres"
		}
	}
	switch cfg.AuditStore {
	case "postgres", "redis", "mongo", "memory":
	default:
		return nil, fmt.Errorf("unknown AUDIT_STORE %q", cfg.AuditStore)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AlertingEnabled reports whether security alert emails can be sent.
func (c *Config) AlertingEnabled() bool {
	return c.SendGridAPIKey != "" && c.AlertEmail != ""
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
