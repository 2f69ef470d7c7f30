// Package server exposes the quiz over HTTP: the JSON API, live session
// streams, API docs, the admin surface and the bundled front end.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/adamwahada/WorldMapQuiz/internal/game"
	"github.com/adamwahada/WorldMapQuiz/internal/identity"
	"github.com/adamwahada/WorldMapQuiz/internal/logging"
	"github.com/adamwahada/WorldMapQuiz/internal/metrics"
	"github.com/adamwahada/WorldMapQuiz/internal/store"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Service *game.Service
	Broker  *store.Broker
	Issuer  *identity.Issuer
	Metrics *metrics.Recorder

	// MetricsHandler serves /metrics when set.
	MetricsHandler    http.Handler
	AdminPasswordHash string
	ActionRate        float64
	ActionBurst       int
	SPADir            string
}

type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

func New(addr string, logger *slog.Logger, deps Deps, mount func(chi.Router)) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(logger, deps, mount),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// NewRouter builds the full route tree. mount, when non-nil, can attach
// extra routes such as health checks.
func NewRouter(logger *slog.Logger, deps Deps, mount func(chi.Router)) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(logger, deps.Metrics))
	r.Use(middleware.Recoverer)

	if mount != nil {
		mount(r)
	}
	addRoutes(r, logger, deps)
	return r
}

func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func newStructuredLogger(logger *slog.Logger, recorder *metrics.Recorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				elapsed := time.Since(start)
				route := r.URL.Path
				if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
					route = rc.RoutePattern()
				}
				recorder.RecordHTTPRequest(r.Method, route, ww.Status(), elapsed)

				logger.Info("http request",
					logging.FieldMethod, r.Method,
					logging.FieldPath, r.URL.Path,
					logging.FieldStatusCode, ww.Status(),
					"bytes", ww.BytesWritten(),
					logging.FieldDurationMS, elapsed.Milliseconds(),
					logging.FieldRequestID, middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
