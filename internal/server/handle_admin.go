package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/adamwahada/WorldMapQuiz/internal/game"
	"github.com/adamwahada/WorldMapQuiz/internal/quiz"
)

const adminListLimit = 200

type AdminSessionSummary struct {
	ID         string      `json:"id"`
	Code       string      `json:"code"`
	Status     quiz.Status `json:"status"`
	Difficulty quiz.Mode   `json:"difficulty"`
	OwnerID    string      `json:"ownerId"`
	Players    int         `json:"players"`
	MaxPlayers int         `json:"maxPlayers"`
	Version    int64       `json:"version"`
	CreatedAt  time.Time   `json:"createdAt"`
}

func handleAdminListSessions(logger *slog.Logger, svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := svc.ListLive(r.Context(), adminListLimit)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		out := make([]AdminSessionSummary, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, AdminSessionSummary{
				ID:         s.ID,
				Code:       s.Code,
				Status:     s.Status,
				Difficulty: s.Settings.Difficulty,
				OwnerID:    s.OwnerID,
				Players:    s.ActiveCount(),
				MaxPlayers: s.MaxPlayers,
				Version:    s.Version,
				CreatedAt:  s.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleAdminDeleteSession(logger *slog.Logger, svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ForceDelete(r.Context(), chi.URLParam(r, "code")); err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		logger.Info("session removed by admin", "code", chi.URLParam(r, "code"))
		w.WriteHeader(http.StatusNoContent)
	}
}
