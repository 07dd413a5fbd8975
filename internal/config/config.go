package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for the platform process.
type Config struct {
	DatabaseURL     string        `yaml:"database_url"`
	HTTPAddr        string        `yaml:"http_addr"`
	LogLevel        string        `yaml:"log_level"`
	EvalInterval    time.Duration `yaml:"eval_interval"`
	DefaultCooldown time.Duration `yaml:"default_cooldown"`
	AlertPageLimit  int           `yaml:"alert_page_limit"`
	AlertWebhookURL string        `yaml:"alert_webhook_url"`
	KafkaBrokers    []string      `yaml:"kafka_brokers"`
	KafkaTopic      string        `yaml:"kafka_topic"`
	JWTSecret       string        `yaml:"jwt_secret"`
}

// Load builds configuration from environment variables, overlaid by an
// optional YAML file pointed to by CONFIG_FILE.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:     getenvDefault("DATABASE_URL", os.Getenv("PG_DSN")),
		HTTPAddr:        getenvDefault("HTTP_ADDR", ":8080"),
		LogLevel:        getenvDefault("LOG_LEVEL", "info"),
		EvalInterval:    getenvDuration("EVAL_INTERVAL", 10*time.Second),
		DefaultCooldown: getenvDuration("DEFAULT_COOLDOWN", 300*time.Second),
		AlertPageLimit:  getenvIntDefault("ALERT_PAGE_LIMIT", 200),
		AlertWebhookURL: os.Getenv("ALERT_WEBHOOK_URL"),
		KafkaBrokers:    splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:      getenvDefault("KAFKA_ALERT_TOPIC", "alerts"),
		JWTSecret:       getenvDefault("AUTH_JWT_SECRET", os.Getenv("JWT_SECRET")),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("config: DATABASE_URL or PG_DSN is required")
	}
	if cfg.EvalInterval <= 0 {
		cfg.EvalInterval = 10 * time.Second
	}
	if cfg.DefaultCooldown <= 0 {
		cfg.DefaultCooldown = 300 * time.Second
	}
	if cfg.AlertPageLimit <= 0 {
		cfg.AlertPageLimit = 200
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
