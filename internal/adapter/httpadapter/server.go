package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/listing-map-sync/internal/domain"
	"github.com/couchcryptid/listing-map-sync/internal/mapsync"
	"github.com/couchcryptid/listing-map-sync/internal/session"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MapController is what the interaction endpoints drive.
type MapController interface {
	State(ctx context.Context) (mapsync.State, error)
	PointerEnter(ctx context.Context, id string) error
	PointerLeave(ctx context.Context, id string) error
	Activate(ctx context.Context, id string) error
	ClickIndicator(ctx context.Context, d domain.Direction) error
	SetViewport(ctx context.Context, center *domain.Coordinate, zoom *float64) error
}

// Server exposes health, readiness, metrics, and map interaction endpoints.
type Server struct {
	httpServer *http.Server
	ctl        MapController
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and the
// /state, /markers, /viewport and /indicators routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, ctl MapController, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		ctl:    ctl,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("POST /markers/{id}/enter", s.handleMarker(ctl.PointerEnter))
	mux.HandleFunc("POST /markers/{id}/leave", s.handleMarker(ctl.PointerLeave))
	mux.HandleFunc("POST /markers/{id}/activate", s.handleMarker(ctl.Activate))
	mux.HandleFunc("POST /viewport", s.handleViewport)
	mux.HandleFunc("POST /indicators/{dir}", s.handleIndicator)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.ctl.State(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, st)
}

func (s *Server) handleMarker(op func(ctx context.Context, id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := op(r.Context(), r.PathValue("id")); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type viewportRequest struct {
	Center *domain.Coordinate `json:"center"`
	Zoom   *float64           `json:"zoom"`
}

func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	var req viewportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid viewport body: "+err.Error())
		return
	}
	if req.Center == nil && req.Zoom == nil {
		writeProblem(w, http.StatusBadRequest, "center or zoom is required")
		return
	}
	if req.Center != nil && !req.Center.IsNumeric() {
		writeProblem(w, http.StatusBadRequest, "center must be numeric")
		return
	}
	if err := s.ctl.SetViewport(r.Context(), req.Center, req.Zoom); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIndicator(w http.ResponseWriter, r *http.Request) {
	d, err := domain.ParseDirection(r.PathValue("dir"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.ctl.ClickIndicator(r.Context(), d); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, mapsync.ErrUnknownEntity):
		status = http.StatusNotFound
	case errors.Is(err, mapsync.ErrIndicatorHidden):
		status = http.StatusConflict
	case errors.Is(err, mapsync.ErrNotReady),
		errors.Is(err, session.ErrStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("map request failed", "error", err)
	}
	writeProblem(w, status, err.Error())
}

func writeProblem(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
