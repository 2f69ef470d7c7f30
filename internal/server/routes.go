package server

import (
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	svc := deps.Service
	now := svc.Now
	limiter := newActionLimiter(deps.ActionRate, deps.ActionBurst)

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("WorldMapQuiz API", "/openapi.json", "/docs"))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Post("/api/guests", handleCreateGuest(logger, deps.Issuer, now))
	r.Get("/api/countries", handleCountries(svc.Countries()))

	// Player routes: a guest token is required.
	r.Route("/api/sessions", func(r chi.Router) {
		r.Use(guestAuthMiddleware(deps.Issuer, now))
		r.Use(limiter.middleware(time.Now))

		r.Post("/", handleCreateSession(logger, svc))
		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", handleGetSession(logger, svc))
			r.Delete("/", handleDeleteSession(logger, svc))
			r.Post("/join", handleJoinSession(logger, svc))
			r.Post("/start", handleStartSession(logger, svc))
			r.Post("/pick", handlePick(logger, svc))
			r.Post("/roll", handleRoll(logger, svc))
			r.Post("/answer", handleAnswer(logger, svc))
			r.Post("/skip", handleSkip(logger, svc))
			r.Delete("/players/{playerID}", handleRemovePlayer(logger, svc))
			r.Get("/events", handleEvents(logger, svc, deps.Broker))
			r.Get("/ws", handleWS(logger, svc, deps.Broker))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(adminAuthMiddleware(deps.AdminPasswordHash))
		r.Get("/sessions", handleAdminListSessions(logger, svc))
		r.Delete("/sessions/{code}", handleAdminDeleteSession(logger, svc))
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
