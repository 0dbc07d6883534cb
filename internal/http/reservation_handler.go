package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/reservation-desk/internal/desk"
)

type reservationDesk interface {
	ListReservationsForDate(ctx context.Context, date string) (desk.ReservationsResult, error)
	Book(ctx context.Context, caller string, req desk.BookRequest) (desk.Result, error)
	Cancel(ctx context.Context, caller, id string) (desk.Result, error)
	HardDelete(ctx context.Context, caller, id string) (desk.Result, error)
	SetStatus(ctx context.Context, caller, id, status string) (desk.Result, error)
	Undo(ctx context.Context, caller string) (desk.Result, error)
}

// ReservationHandler serves booking and the reservation lifecycle.
type ReservationHandler struct {
	desk      reservationDesk
	responder responder
	logger    *slog.Logger
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(d reservationDesk, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{desk: d, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

type statusRequest struct {
	Status string `json:"status"`
}

// List answers GET /reservations?date=.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.desk == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	result, err := h.desk.ListReservationsForDate(r.Context(), r.URL.Query().Get("date"))
	h.responder.writeResult(r.Context(), w, http.StatusOK, result.Result, result, err)
}

// Book answers POST /reservations.
func (h *ReservationHandler) Book(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.desk == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req desk.BookRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Book", "error_kind", kindBadRequest).WarnContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, kindBadRequest, errBadRequestBody)
		return
	}

	result, err := h.desk.Book(r.Context(), CallerFromContext(r.Context()), req)
	if result.OK && result.Reservation != nil {
		h.log(r.Context(), "Book", "reservation_id", result.Reservation.ID).InfoContext(r.Context(), "reservation booked")
	}
	h.responder.writeResult(r.Context(), w, http.StatusCreated, result, result, err)
}

// Cancel answers POST /reservations/{id}/cancel.
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.desk == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	result, err := h.desk.Cancel(r.Context(), CallerFromContext(r.Context()), pathParam(r, "id"))
	h.responder.writeResult(r.Context(), w, http.StatusOK, result, result, err)
}

// SetStatus answers PUT /reservations/{id}/status.
func (h *ReservationHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.desk == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "SetStatus", "error_kind", kindBadRequest).WarnContext(r.Context(), "failed to decode status request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, kindBadRequest, errBadRequestBody)
		return
	}

	result, err := h.desk.SetStatus(r.Context(), CallerFromContext(r.Context()), pathParam(r, "id"), req.Status)
	h.responder.writeResult(r.Context(), w, http.StatusOK, result, result, err)
}

// Delete answers DELETE /reservations/{id}.
func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.desk == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	id := pathParam(r, "id")
	result, err := h.desk.HardDelete(r.Context(), CallerFromContext(r.Context()), id)
	if result.OK {
		h.log(r.Context(), "Delete", "reservation_id", id).InfoContext(r.Context(), "reservation deleted")
	}
	h.responder.writeResult(r.Context(), w, http.StatusOK, result, result, err)
}

// Undo answers POST /undo.
func (h *ReservationHandler) Undo(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.desk == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	result, err := h.desk.Undo(r.Context(), CallerFromContext(r.Context()))
	h.responder.writeResult(r.Context(), w, http.StatusOK, result, result, err)
}
