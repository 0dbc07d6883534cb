package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/reservation-desk/internal/desk"
)

type taskDesk interface {
	CreateTask(ctx context.Context, caller string, req desk.TaskRequest) (desk.Result, error)
	ListTasks(ctx context.Context, project string) (desk.ReservationsResult, error)
}

// TaskHandler serves project tasks.
type TaskHandler struct {
	desk      taskDesk
	responder responder
	logger    *slog.Logger
}

// NewTaskHandler constructs a TaskHandler.
func NewTaskHandler(d taskDesk, logger *slog.Logger) *TaskHandler {
	base := defaultLogger(logger)
	return &TaskHandler{desk: d, responder: newResponder(base), logger: base}
}

// List answers GET /tasks?project=.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.desk == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	result, err := h.desk.ListTasks(r.Context(), r.URL.Query().Get("project"))
	h.responder.writeResult(r.Context(), w, http.StatusOK, result.Result, result, err)
}

// Create answers POST /tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.desk == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req desk.TaskRequest
	if err := decodeJSON(r, &req); err != nil {
		handlerLogger(r.Context(), h.logger, "TaskHandler", "Create", "error_kind", kindBadRequest).
			WarnContext(r.Context(), "failed to decode task request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, kindBadRequest, errBadRequestBody)
		return
	}

	result, err := h.desk.CreateTask(r.Context(), CallerFromContext(r.Context()), req)
	h.responder.writeResult(r.Context(), w, http.StatusCreated, result, result, err)
}
