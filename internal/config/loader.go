package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Undo snapshot backends and reminder notifiers share these names.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	NotifierLog   = "log"
)

// Config captures environment driven configuration values for the reservation service.
type Config struct {
	HTTPPort           int
	Store              string
	SQLitePath         string
	PostgresURL        string
	AdminEmails        []string
	JWTSecret          string
	SerializeBookings  bool
	UndoBackend        string
	UndoTTL            time.Duration
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	Notifier           string
	SMTPAddr           string
	SMTPFrom           string
	SMTPUsername       string
	SMTPPassword       string
	ReminderWindowDays int
	SeedDefaults       bool
	LogLevel           string
}

// NeedsRedis reports whether any configured component talks to Redis.
func (c Config) NeedsRedis() bool {
	return c.UndoBackend == BackendRedis || c.Notifier == BackendRedis
}

// LoadFile reads KEY=VALUE pairs from path into the environment, without
// overriding variables that are already set, and then calls Load. An empty
// path tries ".env" and ignores its absence.
func LoadFile(path string) (Config, error) {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf(".env の読み込みに失敗しました: %w", err)
		}
		return Load()
	}
	if err := godotenv.Load(path); err != nil {
		return Config{}, fmt.Errorf("%s の読み込みに失敗しました: %w", path, err)
	}
	return Load()
}

// Load parses configuration values from the current process environment.
//
// The loader applies defaults for optional fields while validating required
// values and reporting every missing or malformed entry at once.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:           8080,
		Store:              StoreSQLite,
		SQLitePath:         "reservations.db",
		UndoBackend:        BackendMemory,
		UndoTTL:            6 * time.Hour,
		RedisAddr:          "localhost:6379",
		Notifier:           NotifierLog,
		SMTPFrom:           "reservations@localhost",
		ReminderWindowDays: 2,
		SeedDefaults:       true,
		LogLevel:           "info",
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 4)

	if portValue := env("RESERVATION_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "RESERVATION_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if store := strings.ToLower(env("RESERVATION_STORE")); store != "" {
		switch store {
		case StoreMemory, StoreSQLite, StorePostgres:
			cfg.Store = store
		default:
			invalid = append(invalid, "RESERVATION_STORE")
		}
	}

	if path := env("RESERVATION_SQLITE_PATH"); path != "" {
		cfg.SQLitePath = path
	}

	cfg.PostgresURL = env("RESERVATION_POSTGRES_URL")
	if cfg.Store == StorePostgres && cfg.PostgresURL == "" {
		missing = append(missing, "RESERVATION_POSTGRES_URL")
	}

	cfg.AdminEmails = splitList(env("RESERVATION_ADMIN_EMAILS"))
	cfg.JWTSecret = env("RESERVATION_JWT_SECRET")

	if value := env("RESERVATION_SERIALIZE_BOOKINGS"); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, "RESERVATION_SERIALIZE_BOOKINGS")
		} else {
			cfg.SerializeBookings = enabled
		}
	}

	if backend := strings.ToLower(env("RESERVATION_UNDO_BACKEND")); backend != "" {
		switch backend {
		case BackendMemory, BackendRedis:
			cfg.UndoBackend = backend
		default:
			invalid = append(invalid, "RESERVATION_UNDO_BACKEND")
		}
	}

	if ttlValue := env("RESERVATION_UNDO_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "RESERVATION_UNDO_TTL")
		} else {
			cfg.UndoTTL = ttl
		}
	}

	if addr := env("RESERVATION_REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	}
	cfg.RedisPassword = env("RESERVATION_REDIS_PASSWORD")
	if dbValue := env("RESERVATION_REDIS_DB"); dbValue != "" {
		db, err := strconv.Atoi(dbValue)
		if err != nil || db < 0 {
			invalid = append(invalid, "RESERVATION_REDIS_DB")
		} else {
			cfg.RedisDB = db
		}
	}

	if notifier := strings.ToLower(env("RESERVATION_NOTIFIER")); notifier != "" {
		switch notifier {
		case NotifierLog, BackendRedis:
			cfg.Notifier = notifier
		default:
			invalid = append(invalid, "RESERVATION_NOTIFIER")
		}
	}

	cfg.SMTPAddr = env("RESERVATION_SMTP_ADDR")
	if from := env("RESERVATION_SMTP_FROM"); from != "" {
		cfg.SMTPFrom = from
	}
	cfg.SMTPUsername = env("RESERVATION_SMTP_USERNAME")
	cfg.SMTPPassword = env("RESERVATION_SMTP_PASSWORD")

	if windowValue := env("RESERVATION_REMINDER_WINDOW_DAYS"); windowValue != "" {
		window, err := strconv.Atoi(windowValue)
		if err != nil || window < 0 {
			invalid = append(invalid, "RESERVATION_REMINDER_WINDOW_DAYS")
		} else {
			cfg.ReminderWindowDays = window
		}
	}

	if value := env("RESERVATION_SEED_DEFAULTS"); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, "RESERVATION_SEED_DEFAULTS")
		} else {
			cfg.SeedDefaults = enabled
		}
	}

	if level := env("RESERVATION_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
