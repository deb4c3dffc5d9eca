// Package status serves a small HTTP view of a running controller:
// health, the current session and Prometheus metrics.
package status

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/beatlink/internal/clock"
	"github.com/roach88/beatlink/internal/metrics"
	"github.com/roach88/beatlink/internal/session"
)

// Session is the part of a controller the status routes read and drive.
// Implemented by *controller.Controller.
type Session interface {
	CaptureAppSessionState() session.State
	WithAppSessionState(fn func(st *session.State))
	Clock() *clock.Clock
	NumPeers() int
	IsEnabled() bool
	IsStartStopSyncEnabled() bool
}

// NewRouter creates the chi router with all routes and middleware.
// m may be nil, in which case /metrics answers 404.
func NewRouter(s Session, m *metrics.Metrics, quantum float64, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	h := &sessionHandler{session: s, quantum: quantum}

	r.Get("/healthz", health)
	r.Get("/session", h.Get)
	r.Put("/session/tempo", h.SetTempo)
	r.Put("/session/playing", h.SetPlaying)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
