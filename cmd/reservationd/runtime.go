package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/reservation-desk/internal/application"
	"github.com/example/reservation-desk/internal/config"
	"github.com/example/reservation-desk/internal/idgen"
	"github.com/example/reservation-desk/internal/logging"
	"github.com/example/reservation-desk/internal/persistence"
	"github.com/example/reservation-desk/internal/persistence/memory"
	"github.com/example/reservation-desk/internal/persistence/postgres"
	"github.com/example/reservation-desk/internal/persistence/sqlite"
	"github.com/example/reservation-desk/internal/queue"
	"github.com/example/reservation-desk/internal/redisconn"
	"github.com/example/reservation-desk/internal/reminder"
	"github.com/example/reservation-desk/internal/snapshot"
)

// Globals carries flags shared by every command.
type Globals struct {
	EnvFile string

	// Output receives structured logs. Nil means stdout.
	Output io.Writer
}

// storeHandle is a provisioned store plus its release function.
type storeHandle interface {
	persistence.TabularStore
	persistence.Provisioner
	Close() error
}

// runtime holds what every command needs after configuration is loaded.
type runtime struct {
	cfg    config.Config
	logger *slog.Logger
	now    func() time.Time

	store storeHandle
	redis *redis.Client
}

func (g *Globals) load() (config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFile(g.EnvFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	out := g.Output
	if out == nil {
		out = os.Stdout
	}
	return cfg, logging.New(out, level), nil
}

// start loads configuration, opens and provisions the store, seeds the
// catalog when enabled and connects to Redis when a component needs it.
func (g *Globals) start(ctx context.Context) (*runtime, error) {
	cfg, logger, err := g.load()
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, logger: logger, now: time.Now}
	if rt.store, err = openStore(ctx, cfg, logger); err != nil {
		return nil, err
	}
	if err := rt.store.Provision(ctx, persistence.DefaultSchemas()...); err != nil {
		rt.close()
		return nil, fmt.Errorf("provision %s store: %w", cfg.Store, err)
	}
	if cfg.SeedDefaults {
		seeder := application.NewResourceServiceWithLogger(rt.store, nil, rt.now, logger)
		if _, err := seeder.SeedResources(ctx, application.DefaultRooms); err != nil {
			rt.close()
			return nil, fmt.Errorf("seed default rooms: %w", err)
		}
	}

	if cfg.NeedsRedis() {
		rt.redis, err = redisconn.NewClient(ctx, redisconn.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			rt.close()
			return nil, err
		}
	}
	return rt, nil
}

func (rt *runtime) close() {
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			rt.logger.Error("failed to close redis client", "error", err)
		}
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			rt.logger.Error("failed to close storage", "error", err)
		}
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (storeHandle, error) {
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory storage; data is lost on exit")
		return memory.Open(idgen.UUID{}), nil
	case config.StoreSQLite:
		store, err := sqlite.Open(sqlite.DefaultConfig(cfg.SQLitePath), idgen.UUID{})
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("sqlite storage opened", "path", cfg.SQLitePath)
		return store, nil
	case config.StorePostgres:
		store, err := postgres.Open(ctx, cfg.PostgresURL, idgen.UUID{}, postgres.Options{})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		logger.Info("postgres storage opened")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func (rt *runtime) snapshots() snapshot.Store {
	if rt.cfg.UndoBackend == config.BackendRedis && rt.redis != nil {
		return snapshot.NewRedisStore(rt.redis, rt.cfg.UndoTTL)
	}
	return snapshot.NewMemoryStore(snapshot.DefaultCapacity, rt.cfg.UndoTTL)
}

func (rt *runtime) notifier() reminder.Notifier {
	if rt.cfg.Notifier == config.BackendRedis && rt.redis != nil {
		return reminder.QueueNotifier{Queue: queue.NewQueue(rt.redis, rt.logger)}
	}
	return reminder.LogNotifier{Logger: rt.logger}
}

func (rt *runtime) sender() (queue.Sender, error) {
	if rt.cfg.SMTPAddr == "" {
		rt.logger.Warn("no SMTP relay configured; emails are logged only")
		return queue.LogSender{Logger: rt.logger}, nil
	}
	smtpSender, err := queue.NewSMTPSender(rt.cfg.SMTPAddr, rt.cfg.SMTPFrom, rt.cfg.SMTPUsername, rt.cfg.SMTPPassword)
	if err != nil {
		return nil, err
	}
	rt.logger.Info("relaying email via SMTP", "addr", rt.cfg.SMTPAddr)
	return smtpSender, nil
}
