package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port       string `env:"PORT" yaml:"port"`
	CORSOrigin string `env:"CORS_ORIGIN" yaml:"cors_origin"`
	LogLevel   string `env:"LOG_LEVEL" yaml:"log_level"`

	GeminiAPIKey      string        `env:"GEMINI_API_KEY" yaml:"gemini_api_key"`
	GeminiChatModel   string        `env:"GEMINI_CHAT_MODEL" yaml:"gemini_chat_model"`
	GeminiVisionModel string        `env:"GEMINI_VISION_MODEL" yaml:"gemini_vision_model"`
	AgentTimeout      time.Duration `env:"AGENT_TIMEOUT" yaml:"agent_timeout"`

	StoreBackend  string `env:"STORE_BACKEND" yaml:"store_backend"`
	StorePath     string `env:"STORE_PATH" yaml:"store_path"`
	MySQLUser     string `env:"MYSQL_USER" yaml:"mysql_user"`
	MySQLPassword string `env:"MYSQL_PWD" yaml:"mysql_password"`
	MySQLHost     string `env:"MYSQL_HOST" yaml:"mysql_host"`
	MySQLDatabase string `env:"MYSQL_DATABASE" yaml:"mysql_database"`
	PostgresURL   string `env:"POSTGRES_URL" yaml:"postgres_url"`

	NotifyURL       string        `env:"NOTIFY_URL" yaml:"notify_url"`
	NotificationTTL time.Duration `env:"NOTIFICATION_TTL" yaml:"notification_ttl"`

	CampusEmailDomain string `env:"CAMPUS_EMAIL_DOMAIN" yaml:"campus_email_domain"`
	DefaultBudget     int64  `env:"DEFAULT_BUDGET" yaml:"default_budget"`
	UPIPayee          string `env:"UPI_PAYEE" yaml:"upi_payee"`
}

func DefaultConfig() Config {
	return Config{
		Port:              "8080",
		CORSOrigin:        "*",
		LogLevel:          "info",
		GeminiChatModel:   "gemini-1.5-pro",
		GeminiVisionModel: "gemini-1.5-flash",
		AgentTimeout:      60 * time.Second,
		StoreBackend:      "memory",
		StorePath:         "data",
		MySQLUser:         "user",
		MySQLPassword:     "password",
		MySQLHost:         "tcp(127.0.0.1:3306)",
		MySQLDatabase:     "dormscout_db",
		NotificationTTL:   5 * time.Second,
		CampusEmailDomain: "@muj.manipal.edu",
		DefaultBudget:     5000,
		UPIPayee:          "dormscout@upi",
	}
}

// Load layers defaults, an optional YAML file, a .env file and the process
// environment, in that order.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	switch c.StoreBackend {
	case "memory", "mysql":
	case "file":
		if c.StorePath == "" {
			errs = append(errs, errors.New("STORE_PATH is required for the file backend"))
		}
	case "postgres":
		if c.PostgresURL == "" {
			errs = append(errs, errors.New("POSTGRES_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}
	if c.AgentTimeout <= 0 {
		errs = append(errs, errors.New("AGENT_TIMEOUT must be positive"))
	}
	if c.NotificationTTL <= 0 {
		errs = append(errs, errors.New("NOTIFICATION_TTL must be positive"))
	}
	if c.DefaultBudget < 0 {
		errs = append(errs, errors.New("DEFAULT_BUDGET must not be negative"))
	}
	if !strings.HasPrefix(c.CampusEmailDomain, "@") {
		errs = append(errs, errors.New("CAMPUS_EMAIL_DOMAIN must start with @"))
	}
	return errors.Join(errs...)
}

// MySQLDSN builds the go-sql-driver DSN.
func (c Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@%s/%s?parseTime=true&loc=Local", c.MySQLUser, c.MySQLPassword, c.MySQLHost, c.MySQLDatabase)
}
