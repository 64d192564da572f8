package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"CONFIG_FILE", "PORT", "DATABASE_PATH", "JWT_SECRET", "JWT_EXPIRES_IN", "AUTH_PASSPHRASE",
	"OFFERS_TIMEZONE", "NORMALIZE_INTERVAL", "LOG_LEVEL", "TELEGRAM_BOT_TOKEN",
	"TELEGRAM_ALLOWED_CHAT_ID", "WEBHOOK_BASE_URL", "TRACING_ENABLED", "TRACING_ENDPOINT",
	"TRACING_SERVICE_NAME", "TRACING_ENVIRONMENT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != ":8080" || cfg.Timezone != "America/Los_Angeles" || cfg.NormalizeInterval != 5*time.Minute {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
	if cfg.Tracing.Enabled || cfg.Tracing.ServiceName != "offer-tracker" {
		t.Errorf("Unexpected tracing defaults %+v", cfg.Tracing)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `port: "9000"
database_path: /data/offers.db
timezone: Europe/Berlin
normalize_interval: 1m
telegram:
  bot_token: file-token
  allowed_chat_id: 12345
tracing:
  enabled: true
  endpoint: http://jaeger:14268/api/traces
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", ":7000")
	t.Setenv("TELEGRAM_ALLOWED_CHAT_ID", "777")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != ":7000" {
		t.Errorf("Expected env port to win, got %s", cfg.Addr())
	}
	if cfg.DatabasePath != "/data/offers.db" || cfg.Timezone != "Europe/Berlin" || cfg.NormalizeInterval != time.Minute {
		t.Errorf("Expected file values, got %+v", cfg)
	}
	if cfg.TelegramBotToken != "file-token" || cfg.TelegramAllowedChatID != 777 {
		t.Errorf("Unexpected telegram config %q %d", cfg.TelegramBotToken, cfg.TelegramAllowedChatID)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.Endpoint != "http://jaeger:14268/api/traces" {
		t.Errorf("Unexpected tracing config %+v", cfg.Tracing)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad duration", "NORMALIZE_INTERVAL", "soon"},
		{"bad chat id", "TELEGRAM_ALLOWED_CHAT_ID", "me"},
		{"bad bool", "TRACING_ENABLED", "maybe"},
		{"unknown zone", "OFFERS_TIMEZONE", "Mars/Olympus"},
		{"missing file", "CONFIG_FILE", "/nonexistent/config.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s=%q", tt.key, tt.val)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := (Config{LogLevel: in}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
