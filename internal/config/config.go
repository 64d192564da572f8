// internal/config/config.go
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"offer-tracker/internal/dates"
	"offer-tracker/internal/tracing"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerPort        string
	DatabasePath      string
	JWTSecret         string
	JWTExpiresIn      time.Duration
	AuthPassphrase    string
	Timezone          string
	NormalizeInterval time.Duration
	LogLevel          string

	TelegramBotToken      string
	TelegramAllowedChatID int64
	WebhookBaseURL        string

	Tracing tracing.Config
}

// fileConfig is the optional YAML file named by CONFIG_FILE.
type fileConfig struct {
	Port              string `yaml:"port"`
	DatabasePath      string `yaml:"database_path"`
	JWTSecret         string `yaml:"jwt_secret"`
	JWTExpiresIn      string `yaml:"jwt_expires_in"`
	AuthPassphrase    string `yaml:"auth_passphrase"`
	Timezone          string `yaml:"timezone"`
	NormalizeInterval string `yaml:"normalize_interval"`
	LogLevel          string `yaml:"log_level"`
	Telegram          struct {
		BotToken      string `yaml:"bot_token"`
		AllowedChatID int64  `yaml:"allowed_chat_id"`
		WebhookURL    string `yaml:"webhook_base_url"`
	} `yaml:"telegram"`
	Tracing struct {
		Enabled     bool   `yaml:"enabled"`
		Endpoint    string `yaml:"endpoint"`
		ServiceName string `yaml:"service_name"`
		Environment string `yaml:"environment"`
	} `yaml:"tracing"`
}

func defaults() Config {
	return Config{
		ServerPort:        "8080",
		DatabasePath:      "./offers.db",
		JWTSecret:         "your-super-secret-jwt-key-change-in-prod",
		JWTExpiresIn:      24 * time.Hour,
		AuthPassphrase:    "change-me",
		Timezone:          dates.DefaultZone,
		NormalizeInterval: 5 * time.Minute,
		LogLevel:          "info",
		Tracing: tracing.Config{
			ServiceName: tracing.DefaultServiceName,
			Environment: "development",
		},
	}
}

// MustLoad is Load that exits the process on error.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	return cfg
}

// Load reads .env if present, then the YAML file named by CONFIG_FILE, then
// environment variables. Later sources win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if _, err := dates.LoadZone(cfg.Timezone); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.ServerPort, f.Port)
	setString(&c.DatabasePath, f.DatabasePath)
	setString(&c.JWTSecret, f.JWTSecret)
	setString(&c.AuthPassphrase, f.AuthPassphrase)
	setString(&c.Timezone, f.Timezone)
	setString(&c.LogLevel, f.LogLevel)
	setString(&c.TelegramBotToken, f.Telegram.BotToken)
	setString(&c.WebhookBaseURL, f.Telegram.WebhookURL)
	if f.Telegram.AllowedChatID != 0 {
		c.TelegramAllowedChatID = f.Telegram.AllowedChatID
	}
	if err := setDuration(&c.JWTExpiresIn, "jwt_expires_in", f.JWTExpiresIn); err != nil {
		return err
	}
	if err := setDuration(&c.NormalizeInterval, "normalize_interval", f.NormalizeInterval); err != nil {
		return err
	}

	c.Tracing.Enabled = c.Tracing.Enabled || f.Tracing.Enabled
	setString(&c.Tracing.Endpoint, f.Tracing.Endpoint)
	setString(&c.Tracing.ServiceName, f.Tracing.ServiceName)
	setString(&c.Tracing.Environment, f.Tracing.Environment)
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.ServerPort, os.Getenv("PORT"))
	setString(&c.DatabasePath, os.Getenv("DATABASE_PATH"))
	setString(&c.JWTSecret, os.Getenv("JWT_SECRET"))
	setString(&c.AuthPassphrase, os.Getenv("AUTH_PASSPHRASE"))
	setString(&c.Timezone, os.Getenv("OFFERS_TIMEZONE"))
	setString(&c.LogLevel, os.Getenv("LOG_LEVEL"))
	setString(&c.TelegramBotToken, os.Getenv("TELEGRAM_BOT_TOKEN"))
	setString(&c.WebhookBaseURL, os.Getenv("WEBHOOK_BASE_URL"))

	if err := setDuration(&c.JWTExpiresIn, "JWT_EXPIRES_IN", os.Getenv("JWT_EXPIRES_IN")); err != nil {
		return err
	}
	if err := setDuration(&c.NormalizeInterval, "NORMALIZE_INTERVAL", os.Getenv("NORMALIZE_INTERVAL")); err != nil {
		return err
	}
	if v := os.Getenv("TELEGRAM_ALLOWED_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_ALLOWED_CHAT_ID: %w", err)
		}
		c.TelegramAllowedChatID = id
	}

	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRACING_ENABLED: %w", err)
		}
		c.Tracing.Enabled = enabled
	}
	setString(&c.Tracing.Endpoint, os.Getenv("TRACING_ENDPOINT"))
	setString(&c.Tracing.ServiceName, os.Getenv("TRACING_SERVICE_NAME"))
	setString(&c.Tracing.Environment, os.Getenv("TRACING_ENVIRONMENT"))
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strings.TrimPrefix(c.ServerPort, ":")
}

func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
