package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/reservation-desk/internal/desk"
	"github.com/example/reservation-desk/internal/testfixtures"
)

const (
	admin = testfixtures.AdminEmail
	alice = "alice@example.com"
	bob   = "bob@example.com"
)

type responseBody struct {
	desk.Result
	Resources    []desk.ResourceView    `json:"resources"`
	Reservations []desk.ReservationView `json:"reservations"`
	Members      []desk.MemberView      `json:"members"`
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	h := testfixtures.NewDeskFactory().NewDesk(t)
	return NewDeskRouter(h.Desk, nil, quietLogger())
}

func call(t *testing.T, handler http.Handler, method, path, caller string, body any) (*httptest.ResponseRecorder, responseBody) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			encoded, err := json.Marshal(body)
			if err != nil {
				t.Fatalf("failed to encode body: %v", err)
			}
			raw = string(encoded)
		}
		reader = strings.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if caller != "" {
		req.Header.Set(CallerHeader, caller)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var decoded responseBody
	if rec.Body.Len() > 0 {
		if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&decoded); err != nil {
			t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func addRoom(t *testing.T, handler http.Handler, name string) {
	t.Helper()
	rec, body := call(t, handler, http.MethodPost, "/resources", admin, map[string]string{"name": name, "kind": "room"})
	if rec.Code != http.StatusCreated || !body.OK {
		t.Fatalf("expected room %q to be created, got %d %+v", name, rec.Code, body.Result)
	}
}

func book(caller, start, end string) (string, string, string, desk.BookRequest) {
	return http.MethodPost, "/reservations", caller, desk.BookRequest{
		ResourceName: "Room A",
		Date:         "2025-01-10",
		StartTime:    start,
		EndTime:      end,
	}
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)
	rec, _ := call(t, router, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestBookingFlow(t *testing.T) {
	router := newTestRouter(t)
	addRoom(t, router, "Room A")

	method, path, caller, req := book(alice, "09:00", "10:00")
	rec, body := call(t, router, method, path, caller, req)
	if rec.Code != http.StatusCreated || body.Reservation == nil {
		t.Fatalf("expected booking to be created, got %d %+v", rec.Code, body.Result)
	}
	id := body.Reservation.ID

	method, path, caller, req = book(bob, "09:30", "10:30")
	rec, body = call(t, router, method, path, caller, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if body.OK || body.Message != desk.MsgConflict {
		t.Fatalf("unexpected conflict body: %+v", body.Result)
	}

	method, path, caller, req = book(bob, "10:00", "11:00")
	if rec, _ = call(t, router, method, path, caller, req); rec.Code != http.StatusCreated {
		t.Fatalf("expected adjacent booking to succeed, got %d", rec.Code)
	}

	rec, body = call(t, router, http.MethodGet, "/reservations?date=2025-01-10", "", nil)
	if rec.Code != http.StatusOK || len(body.Reservations) != 2 {
		t.Fatalf("expected two reservations, got %d %+v", rec.Code, body.Reservations)
	}

	if rec, _ = call(t, router, http.MethodPost, "/reservations/"+id+"/cancel", bob, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected stranger cancel to be forbidden, got %d", rec.Code)
	}
	if rec, _ = call(t, router, http.MethodPost, "/reservations/"+id+"/cancel", alice, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected owner cancel to succeed, got %d", rec.Code)
	}
	rec, body = call(t, router, http.MethodPost, "/reservations/"+id+"/cancel", alice, nil)
	if rec.Code != http.StatusConflict || body.Message != desk.MsgAlreadyCancelled {
		t.Fatalf("expected already cancelled, got %d %+v", rec.Code, body.Result)
	}

	if rec, _ = call(t, router, http.MethodDelete, "/reservations/"+id, alice, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected non-admin delete to be forbidden, got %d", rec.Code)
	}
	if rec, _ = call(t, router, http.MethodDelete, "/reservations/"+id, admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected admin delete to succeed, got %d", rec.Code)
	}
	if rec, _ = call(t, router, http.MethodPost, "/reservations/"+id+"/cancel", alice, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected deleted reservation to be missing, got %d", rec.Code)
	}
}

func TestBookingValidation(t *testing.T) {
	router := newTestRouter(t)
	addRoom(t, router, "Room A")

	method, path, caller, req := book(alice, "11:00", "10:00")
	rec, body := call(t, router, method, path, caller, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if body.Kind != "validation" || body.Errors["endTime"] == "" {
		t.Fatalf("expected endTime field error, got %+v", body.Result)
	}

	rec, body = call(t, router, http.MethodPost, "/reservations", alice, "{not json")
	if rec.Code != http.StatusBadRequest || body.Kind != kindBadRequest {
		t.Fatalf("expected bad request, got %d %+v", rec.Code, body.Result)
	}
}

func TestAnonymousBookingForbidden(t *testing.T) {
	router := newTestRouter(t)
	addRoom(t, router, "Room A")

	method, path, _, req := book("", "09:00", "10:00")
	rec, body := call(t, router, method, path, "", req)
	if rec.Code != http.StatusForbidden || body.Message != desk.MsgPermissionDenied {
		t.Fatalf("expected 403, got %d %+v", rec.Code, body.Result)
	}
}

func TestRemoveResourceReportsCascade(t *testing.T) {
	router := newTestRouter(t)
	addRoom(t, router, "Room A")
	for _, times := range [][2]string{{"09:00", "10:00"}, {"10:00", "11:00"}} {
		method, path, caller, req := book(alice, times[0], times[1])
		if rec, _ := call(t, router, method, path, caller, req); rec.Code != http.StatusCreated {
			t.Fatalf("expected booking, got %d", rec.Code)
		}
	}

	if rec, _ := call(t, router, http.MethodDelete, "/resources/Room%20A", alice, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected non-admin removal to be forbidden, got %d", rec.Code)
	}

	rec, body := call(t, router, http.MethodDelete, "/resources/Room%20A", admin, nil)
	if rec.Code != http.StatusOK || body.CascadeCount == nil || *body.CascadeCount != 2 {
		t.Fatalf("expected cascade of 2, got %d %+v", rec.Code, body.Result)
	}

	rec, body = call(t, router, http.MethodGet, "/resources", "", nil)
	if rec.Code != http.StatusOK || len(body.Resources) != 0 {
		t.Fatalf("expected no resources left, got %+v", body.Resources)
	}
	if rec, _ = call(t, router, http.MethodDelete, "/resources/Room%20A", admin, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected second removal to be not found, got %d", rec.Code)
	}
}

func TestTasksMembersAndUndo(t *testing.T) {
	router := newTestRouter(t)
	rec, _ := call(t, router, http.MethodPost, "/resources", admin, map[string]string{"name": "Apollo", "kind": "project"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected project to be created, got %d", rec.Code)
	}

	rec, body := call(t, router, http.MethodPost, "/resources/Apollo/members", admin, map[string]string{"name": "Alice", "email": alice})
	if rec.Code != http.StatusCreated || body.Member == nil {
		t.Fatalf("expected member to be added, got %d %+v", rec.Code, body.Result)
	}
	rec, body = call(t, router, http.MethodGet, "/resources/Apollo/members", "", nil)
	if rec.Code != http.StatusOK || len(body.Members) != 1 {
		t.Fatalf("expected one member, got %+v", body.Members)
	}

	rec, body = call(t, router, http.MethodPost, "/tasks", alice, desk.TaskRequest{Project: "Apollo", Title: "Write plan", Assignee: "Alice"})
	if rec.Code != http.StatusCreated || body.Reservation == nil {
		t.Fatalf("expected task to be created, got %d %+v", rec.Code, body.Result)
	}
	taskID := body.Reservation.ID

	rec, body = call(t, router, http.MethodGet, "/tasks?project=Apollo", "", nil)
	if rec.Code != http.StatusOK || len(body.Reservations) != 1 {
		t.Fatalf("expected one task, got %+v", body.Reservations)
	}

	if rec, _ = call(t, router, http.MethodPost, "/undo", alice, nil); rec.Code != http.StatusConflict {
		t.Fatalf("expected nothing to undo, got %d", rec.Code)
	}

	rec, body = call(t, router, http.MethodPut, "/reservations/"+taskID+"/status", alice, map[string]string{"status": "Done"})
	if rec.Code != http.StatusOK || body.Reservation == nil || body.Reservation.Status != "Done" {
		t.Fatalf("expected status Done, got %d %+v", rec.Code, body.Result)
	}
	rec, _ = call(t, router, http.MethodPut, "/reservations/"+taskID+"/status", alice, map[string]string{"status": "Blocked"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected invalid status to be rejected, got %d", rec.Code)
	}

	rec, body = call(t, router, http.MethodPost, "/undo", alice, nil)
	if rec.Code != http.StatusOK || body.Reservation == nil || body.Reservation.Status != "To Do" {
		t.Fatalf("expected undo to restore To Do, got %d %+v", rec.Code, body.Result)
	}
}

func TestWhoAmI(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(CallerHeader, admin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var identity desk.Identity
	if err := json.NewDecoder(rec.Body).Decode(&identity); err != nil {
		t.Fatalf("failed to decode identity: %v", err)
	}
	if identity.Email != admin || !identity.IsAdmin {
		t.Fatalf("expected admin identity, got %+v", identity)
	}
}

func TestBearerTokenIdentity(t *testing.T) {
	h := testfixtures.NewDeskFactory().NewDesk(t)
	verifier := NewTokenVerifier("test-secret")
	router := NewDeskRouter(h.Desk, verifier, quietLogger())

	token, err := verifier.Issue(alice, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	whoami := func(header map[string]string) (int, desk.Identity) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		for k, v := range header {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		var identity desk.Identity
		_ = json.NewDecoder(rec.Body).Decode(&identity)
		return rec.Code, identity
	}

	if code, identity := whoami(map[string]string{"Authorization": "Bearer " + token}); code != http.StatusOK || identity.Email != alice {
		t.Fatalf("expected alice from token, got %d %+v", code, identity)
	}
	if code, _ := whoami(map[string]string{"Authorization": "Bearer not-a-token"}); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for malformed token, got %d", code)
	}

	forged, err := NewTokenVerifier("other-secret").Issue(admin, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	if code, _ := whoami(map[string]string{"Authorization": "Bearer " + forged}); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for foreign signature, got %d", code)
	}

	expired, err := verifier.Issue(alice, time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	if code, _ := whoami(map[string]string{"Authorization": "Bearer " + expired}); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", code)
	}

	if code, identity := whoami(map[string]string{CallerHeader: admin}); code != http.StatusOK || identity.Email != "" {
		t.Fatalf("expected header to be ignored when tokens are required, got %d %+v", code, identity)
	}
}

type unavailableDesk struct{}

func (unavailableDesk) GetResources(context.Context) (desk.ResourcesResult, error) {
	return desk.ResourcesResult{
		Result:    desk.Result{OK: false, Message: desk.MsgUnavailable, Kind: "backend_unavailable"},
		Resources: []desk.ResourceView{},
	}, errors.New("desk: GetResources: backend unavailable")
}

func (unavailableDesk) AddResource(context.Context, string, string, string, string) (desk.Result, error) {
	return desk.Result{}, errors.New("not implemented")
}

func (unavailableDesk) RemoveResource(context.Context, string, string) (desk.Result, error) {
	return desk.Result{}, errors.New("not implemented")
}

func (unavailableDesk) AddMember(context.Context, string, string, string, string) (desk.Result, error) {
	return desk.Result{}, errors.New("not implemented")
}

func (unavailableDesk) ListMembers(context.Context, string) (desk.MembersResult, error) {
	return desk.MembersResult{}, errors.New("not implemented")
}

func TestUnavailableBackendMapsTo503(t *testing.T) {
	router := NewRouter(RouterConfig{
		Resources: NewResourceHandler(unavailableDesk{}, quietLogger()),
		Logger:    quietLogger(),
	})

	rec, body := call(t, router, http.MethodGet, "/resources", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if body.Message != desk.MsgUnavailable || body.Resources == nil {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestStatusForKind(t *testing.T) {
	tests := map[string]int{
		"permission_denied":   http.StatusForbidden,
		"not_found":           http.StatusNotFound,
		"conflict":            http.StatusConflict,
		"already_exists":      http.StatusConflict,
		"invalid_transition":  http.StatusConflict,
		"nothing_to_undo":     http.StatusConflict,
		"validation":          http.StatusUnprocessableEntity,
		"backend_unavailable": http.StatusServiceUnavailable,
		"unexpected":          http.StatusInternalServerError,
	}
	for kind, want := range tests {
		if got := statusForKind(kind); got != want {
			t.Fatalf("expected %d for %s, got %d", want, kind, got)
		}
	}
}

func TestResourceNamesAreDecodedOnce(t *testing.T) {
	router := newTestRouter(t)
	for _, name := range []string{"50%41", "50A", "North/South"} {
		addRoom(t, router, name)
	}

	tests := []struct {
		path string
		gone string
	}{
		{path: "/resources/50%2541", gone: "50%41"},
		{path: "/resources/North%2FSouth", gone: "North/South"},
	}
	for _, tc := range tests {
		rec, _ := call(t, router, http.MethodDelete, tc.path, admin, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected %s to remove %q, got %d", tc.path, tc.gone, rec.Code)
		}
	}

	rec, body := call(t, router, http.MethodGet, "/resources", "", nil)
	if rec.Code != http.StatusOK || len(body.Resources) != 1 || body.Resources[0].Name != "50A" {
		t.Fatalf("expected only 50A to remain, got %+v", body.Resources)
	}
}
