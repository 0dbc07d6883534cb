package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/reservation-desk/internal/desk"
)

const (
	kindBadRequest      = "bad_request"
	kindUnauthenticated = "unauthenticated"
)

var (
	errBadRequestBody = errors.New("Malformed request body.")
	errInvalidToken   = errors.New("Invalid or expired token.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError answers with a failed result built from err for failures that
// happen before the desk is reached.
func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, kind string, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, desk.Result{OK: false, Message: message, Kind: kind})
}

// writeResult writes payload with a status derived from result. A hard error
// from the desk is logged; the payload already carries the user facing message.
func (r responder) writeResult(ctx context.Context, w http.ResponseWriter, success int, result desk.Result, payload any, err error) {
	if err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "desk operation failed", "error", err, "error_kind", result.Kind)
	}
	status := success
	if !result.OK {
		status = statusForKind(result.Kind)
	}
	r.writeJSON(ctx, w, status, payload)
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusForKind(kind string) int {
	switch kind {
	case "permission_denied":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "conflict", "already_exists", "invalid_transition", "nothing_to_undo":
		return http.StatusConflict
	case "validation":
		return http.StatusUnprocessableEntity
	case "backend_unavailable":
		return http.StatusServiceUnavailable
	case kindBadRequest:
		return http.StatusBadRequest
	case kindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
