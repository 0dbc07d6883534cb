package http

import (
	"context"
	"log/slog"

	"github.com/example/reservation-desk/internal/logging"
)

type contextKey string

const callerContextKey contextKey = "caller"

// ContextWithCaller returns a derived context containing the caller email.
func ContextWithCaller(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, callerContextKey, email)
}

// CallerFromContext extracts the caller email. Anonymous requests yield "".
func CallerFromContext(ctx context.Context) string {
	email, _ := ctx.Value(callerContextKey).(string)
	return email
}

// ContextWithLogger returns a derived context carrying the request logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
