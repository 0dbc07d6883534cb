package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/reservation-desk/internal/access"
	"github.com/example/reservation-desk/internal/application"
	"github.com/example/reservation-desk/internal/config"
	"github.com/example/reservation-desk/internal/desk"
	httptransport "github.com/example/reservation-desk/internal/http"
	"github.com/example/reservation-desk/internal/queue"
	"github.com/example/reservation-desk/internal/reminder"
)

// ServeCmd runs the HTTP API until SIGINT or SIGTERM.
type ServeCmd struct {
	Port int `help:"Listen port. Overrides RESERVATION_HTTP_PORT." default:"0"`
}

func (c *ServeCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := g.start(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	d, err := desk.New(desk.Deps{
		Store:             rt.store,
		Gate:              access.NewGate(rt.cfg.AdminEmails),
		Snapshots:         rt.snapshots(),
		Now:               rt.now,
		Logger:            rt.logger,
		SerializeBookings: rt.cfg.SerializeBookings,
	})
	if err != nil {
		return err
	}

	var verifier *httptransport.TokenVerifier
	if rt.cfg.JWTSecret != "" {
		verifier = httptransport.NewTokenVerifier(rt.cfg.JWTSecret)
	} else {
		rt.logger.Warn("no token secret configured; trusting " + httptransport.CallerHeader)
	}

	port := rt.cfg.HTTPPort
	if c.Port > 0 {
		port = c.Port
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           httptransport.NewDeskRouter(d, verifier, rt.logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	rt.logger.Info("reservation API listening", "addr", server.Addr, "store", rt.cfg.Store, "undo_backend", rt.cfg.UndoBackend)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server encountered error: %w", err)
	}
	return nil
}

// ProvisionCmd prepares storage and exits.
type ProvisionCmd struct{}

func (c *ProvisionCmd) Run(g *Globals) error {
	rt, err := g.start(context.Background())
	if err != nil {
		return err
	}
	defer rt.close()

	rt.logger.Info("storage provisioned", "store", rt.cfg.Store, "seeded", rt.cfg.SeedDefaults)
	return nil
}

// RemindCmd runs one reminder scan. It is meant to be scheduled by cron.
type RemindCmd struct {
	Window int `help:"Days ahead to look for due tasks. Overrides RESERVATION_REMINDER_WINDOW_DAYS." default:"-1"`
}

func (c *RemindCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := g.start(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	window := rt.cfg.ReminderWindowDays
	if c.Window >= 0 {
		window = c.Window
	}

	gate := access.NewGate(rt.cfg.AdminEmails)
	scanner := reminder.NewScanner(
		application.NewTaskServiceWithLogger(rt.store, gate, rt.now, rt.logger),
		application.NewResourceServiceWithLogger(rt.store, gate, rt.now, rt.logger),
		rt.notifier(),
		window,
		rt.now,
		rt.logger,
	)

	report, err := scanner.Run(ctx)
	if err != nil {
		return err
	}
	rt.logger.Info("reminder scan finished",
		"scanned", report.Scanned,
		"due", report.Due,
		"sent", report.Sent,
		"unaddressed", report.Unaddressed,
		"failed", report.Failed,
	)
	if report.Failed > 0 {
		return fmt.Errorf("%d reminder(s) could not be sent", report.Failed)
	}
	return nil
}

// DeliverCmd drains the reminder email queue until SIGINT or SIGTERM.
type DeliverCmd struct{}

func (c *DeliverCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.deliver(ctx, g)
}

func (c *DeliverCmd) deliver(ctx context.Context, g *Globals) error {
	rt, err := g.start(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	if rt.cfg.Notifier != config.BackendRedis || rt.redis == nil {
		return errors.New("deliver needs RESERVATION_NOTIFIER=redis")
	}
	sender, err := rt.sender()
	if err != nil {
		return err
	}

	queue.NewWorker(queue.NewQueue(rt.redis, rt.logger), sender, rt.logger).Run(ctx)
	return nil
}
