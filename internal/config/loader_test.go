package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

var allKeys = []string{
	"RESERVATION_HTTP_PORT",
	"RESERVATION_STORE",
	"RESERVATION_SQLITE_PATH",
	"RESERVATION_POSTGRES_URL",
	"RESERVATION_ADMIN_EMAILS",
	"RESERVATION_JWT_SECRET",
	"RESERVATION_SERIALIZE_BOOKINGS",
	"RESERVATION_UNDO_BACKEND",
	"RESERVATION_UNDO_TTL",
	"RESERVATION_REDIS_ADDR",
	"RESERVATION_REDIS_PASSWORD",
	"RESERVATION_REDIS_DB",
	"RESERVATION_NOTIFIER",
	"RESERVATION_SMTP_ADDR",
	"RESERVATION_SMTP_FROM",
	"RESERVATION_SMTP_USERNAME",
	"RESERVATION_SMTP_PASSWORD",
	"RESERVATION_REMINDER_WINDOW_DAYS",
	"RESERVATION_SEED_DEFAULTS",
	"RESERVATION_LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.Store != StoreSQLite || cfg.SQLitePath != "reservations.db" {
			t.Fatalf("unexpected default store: %q %q", cfg.Store, cfg.SQLitePath)
		}
		if cfg.UndoBackend != BackendMemory || cfg.UndoTTL != 6*time.Hour {
			t.Fatalf("unexpected undo defaults: %q %v", cfg.UndoBackend, cfg.UndoTTL)
		}
		if cfg.SerializeBookings {
			t.Fatalf("expected bookings not to be serialized by default")
		}
		if cfg.ReminderWindowDays != 2 || !cfg.SeedDefaults || cfg.Notifier != NotifierLog {
			t.Fatalf("unexpected reminder defaults: %+v", cfg)
		}
		if cfg.NeedsRedis() {
			t.Fatalf("expected defaults not to need redis")
		}
		if cfg.SMTPAddr != "" || cfg.SMTPFrom != "reservations@localhost" {
			t.Fatalf("unexpected smtp defaults: %q %q", cfg.SMTPAddr, cfg.SMTPFrom)
		}
	})

	t.Run("parses every variable", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RESERVATION_HTTP_PORT", "9090")
		t.Setenv("RESERVATION_STORE", "Postgres")
		t.Setenv("RESERVATION_POSTGRES_URL", "postgres://localhost/reservations")
		t.Setenv("RESERVATION_ADMIN_EMAILS", " admin@example.com, , ops@example.com ")
		t.Setenv("RESERVATION_JWT_SECRET", "secret")
		t.Setenv("RESERVATION_SERIALIZE_BOOKINGS", "true")
		t.Setenv("RESERVATION_UNDO_BACKEND", "redis")
		t.Setenv("RESERVATION_UNDO_TTL", "30m")
		t.Setenv("RESERVATION_REDIS_ADDR", "redis:6379")
		t.Setenv("RESERVATION_REDIS_DB", "2")
		t.Setenv("RESERVATION_NOTIFIER", "redis")
		t.Setenv("RESERVATION_SMTP_ADDR", "mail:587")
		t.Setenv("RESERVATION_SMTP_FROM", "desk@example.com")
		t.Setenv("RESERVATION_SMTP_USERNAME", "desk")
		t.Setenv("RESERVATION_SMTP_PASSWORD", "pw")
		t.Setenv("RESERVATION_REMINDER_WINDOW_DAYS", "0")
		t.Setenv("RESERVATION_SEED_DEFAULTS", "false")
		t.Setenv("RESERVATION_LOG_LEVEL", "debug")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 9090 || cfg.Store != StorePostgres {
			t.Fatalf("unexpected port or store: %d %q", cfg.HTTPPort, cfg.Store)
		}
		if want := []string{"admin@example.com", "ops@example.com"}; !reflect.DeepEqual(cfg.AdminEmails, want) {
			t.Fatalf("expected admins %v, got %v", want, cfg.AdminEmails)
		}
		if !cfg.SerializeBookings || cfg.UndoTTL != 30*time.Minute || cfg.RedisDB != 2 {
			t.Fatalf("unexpected parsed values: %+v", cfg)
		}
		if cfg.ReminderWindowDays != 0 || cfg.SeedDefaults || cfg.LogLevel != "debug" {
			t.Fatalf("unexpected parsed values: %+v", cfg)
		}
		if !cfg.NeedsRedis() {
			t.Fatalf("expected redis to be needed")
		}
		if cfg.SMTPAddr != "mail:587" || cfg.SMTPFrom != "desk@example.com" || cfg.SMTPUsername != "desk" || cfg.SMTPPassword != "pw" {
			t.Fatalf("unexpected smtp values: %+v", cfg)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RESERVATION_STORE", "postgres")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "必須の環境変数が設定されていません: RESERVATION_POSTGRES_URL"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("reports every invalid value", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RESERVATION_HTTP_PORT", "abc")
		t.Setenv("RESERVATION_STORE", "excel")
		t.Setenv("RESERVATION_UNDO_TTL", "-1h")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		expected := "環境変数の値が不正です: RESERVATION_HTTP_PORT, RESERVATION_STORE, RESERVATION_UNDO_TTL"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	for _, key := range allKeys {
		// godotenv only fills variables that are absent, not empty.
		os.Unsetenv(key)
	}

	path := filepath.Join(t.TempDir(), "reservation.env")
	content := "RESERVATION_STORE=memory\nRESERVATION_ADMIN_EMAILS=admin@example.com\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}
	if cfg.Store != StoreMemory || len(cfg.AdminEmails) != 1 {
		t.Fatalf("expected values from file, got %+v", cfg)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected error for explicit missing file")
	}
}
