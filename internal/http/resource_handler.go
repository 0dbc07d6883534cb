package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/example/reservation-desk/internal/desk"
)

type resourceDesk interface {
	GetResources(ctx context.Context) (desk.ResourcesResult, error)
	AddResource(ctx context.Context, caller, name, description, kind string) (desk.Result, error)
	RemoveResource(ctx context.Context, caller, name string) (desk.Result, error)
	AddMember(ctx context.Context, caller, project, name, email string) (desk.Result, error)
	ListMembers(ctx context.Context, project string) (desk.MembersResult, error)
}

// ResourceHandler serves the resource catalog and project teams.
type ResourceHandler struct {
	desk      resourceDesk
	responder responder
	logger    *slog.Logger
}

// NewResourceHandler constructs a ResourceHandler.
func NewResourceHandler(d resourceDesk, logger *slog.Logger) *ResourceHandler {
	base := defaultLogger(logger)
	return &ResourceHandler{desk: d, responder: newResponder(base), logger: base}
}

func (h *ResourceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ResourceHandler", operation, attrs...)
}

type resourceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
}

type memberRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// List answers GET /resources.
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.desk == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	result, err := h.desk.GetResources(r.Context())
	h.responder.writeResult(r.Context(), w, http.StatusOK, result.Result, result, err)
}

// Create answers POST /resources.
func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.desk == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req resourceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", kindBadRequest).WarnContext(r.Context(), "failed to decode resource request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, kindBadRequest, errBadRequestBody)
		return
	}

	result, err := h.desk.AddResource(r.Context(), CallerFromContext(r.Context()), req.Name, req.Description, req.Kind)
	if result.OK {
		h.log(r.Context(), "Create", "resource", req.Name).InfoContext(r.Context(), "resource created")
	}
	h.responder.writeResult(r.Context(), w, http.StatusCreated, result, result, err)
}

// Delete answers DELETE /resources/{name}.
func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.desk == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	name := pathParam(r, "name")
	result, err := h.desk.RemoveResource(r.Context(), CallerFromContext(r.Context()), name)
	if result.OK && result.CascadeCount != nil {
		h.log(r.Context(), "Delete", "resource", name).InfoContext(r.Context(), "resource removed", "cascade_count", *result.CascadeCount)
	}
	h.responder.writeResult(r.Context(), w, http.StatusOK, result, result, err)
}

// ListMembers answers GET /resources/{name}/members.
func (h *ResourceHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.desk == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	result, err := h.desk.ListMembers(r.Context(), pathParam(r, "name"))
	h.responder.writeResult(r.Context(), w, http.StatusOK, result.Result, result, err)
}

// AddMember answers POST /resources/{name}/members.
func (h *ResourceHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.desk == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req memberRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "AddMember", "error_kind", kindBadRequest).WarnContext(r.Context(), "failed to decode member request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, kindBadRequest, errBadRequestBody)
		return
	}

	result, err := h.desk.AddMember(r.Context(), CallerFromContext(r.Context()), pathParam(r, "name"), req.Name, req.Email)
	h.responder.writeResult(r.Context(), w, http.StatusCreated, result, result, err)
}

// pathParam returns the decoded URL parameter key. chi routes on RawPath
// when the request carries one, and only then is the segment still escaped.
func pathParam(r *http.Request, key string) string {
	value := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return value
	}
	if decoded, err := url.PathUnescape(value); err == nil {
		return decoded
	}
	return value
}
