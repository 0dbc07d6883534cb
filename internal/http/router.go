package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/example/reservation-desk/internal/desk"
)

type identityDesk interface {
	WhoAmI(caller string) desk.Identity
}

// RouterConfig selects the handlers mounted by NewRouter. Nil handlers are
// skipped. Middleware runs after request id, panic recovery, request logging
// and Identify.
type RouterConfig struct {
	Identity     identityDesk
	Resources    *ResourceHandler
	Reservations *ReservationHandler
	Tasks        *TaskHandler
	Verifier     *TokenVerifier
	Logger       *slog.Logger
	Middleware   []func(http.Handler) http.Handler
}

// NewRouter builds the chi router for the desk API.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)
	responder := newResponder(logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestLogger(logger))
	r.Use(Identify(cfg.Verifier, logger))
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		responder.writeJSON(req.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Identity != nil {
		r.Get("/me", func(w http.ResponseWriter, req *http.Request) {
			responder.writeJSON(req.Context(), w, http.StatusOK, cfg.Identity.WhoAmI(CallerFromContext(req.Context())))
		})
	}

	if cfg.Resources != nil {
		r.Route("/resources", func(r chi.Router) {
			r.Get("/", cfg.Resources.List)
			r.Post("/", cfg.Resources.Create)
			r.Delete("/{name}", cfg.Resources.Delete)
			r.Get("/{name}/members", cfg.Resources.ListMembers)
			r.Post("/{name}/members", cfg.Resources.AddMember)
		})
	}

	if cfg.Reservations != nil {
		r.Route("/reservations", func(r chi.Router) {
			r.Get("/", cfg.Reservations.List)
			r.Post("/", cfg.Reservations.Book)
			r.Post("/{id}/cancel", cfg.Reservations.Cancel)
			r.Put("/{id}/status", cfg.Reservations.SetStatus)
			r.Delete("/{id}", cfg.Reservations.Delete)
		})
		r.Post("/undo", cfg.Reservations.Undo)
	}

	if cfg.Tasks != nil {
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", cfg.Tasks.List)
			r.Post("/", cfg.Tasks.Create)
		})
	}

	return r
}

// NewDeskRouter mounts every handler over d.
func NewDeskRouter(d *desk.Desk, verifier *TokenVerifier, logger *slog.Logger) http.Handler {
	return NewRouter(RouterConfig{
		Identity:     d,
		Resources:    NewResourceHandler(d, logger),
		Reservations: NewReservationHandler(d, logger),
		Tasks:        NewTaskHandler(d, logger),
		Verifier:     verifier,
		Logger:       logger,
	})
}
