package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adamwahada/WorldMapQuiz/internal/game"
	"github.com/adamwahada/WorldMapQuiz/internal/quiz"
)

type CreateSessionRequest struct {
	Players    int       `json:"players"`
	Difficulty quiz.Mode `json:"difficulty"`
	Minutes    int       `json:"minutes"`
}

func handleCreateSession(logger *slog.Logger, svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		guest := guestFrom(r)
		settings := quiz.Settings{Players: req.Players, Difficulty: req.Difficulty, Minutes: req.Minutes}
		sess, err := svc.Create(r.Context(), guest.ID, guest.Name, settings, req.Players)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, newSessionView(sess, svc.Now()))
	}
}

func handleGetSession(logger *slog.Logger, svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.Get(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newSessionView(sess, svc.Now()))
	}
}

func handleJoinSession(logger *slog.Logger, svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guest := guestFrom(r)
		sess, err := svc.Join(r.Context(), chi.URLParam(r, "code"), guest.ID, guest.Name)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newSessionView(sess, svc.Now()))
	}
}

func handleStartSession(logger *slog.Logger, svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.Start(r.Context(), chi.URLParam(r, "code"), guestFrom(r).ID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newSessionView(sess, svc.Now()))
	}
}

// handleRemovePlayer removes a player. A player removing themselves leaves
// the session.
func handleRemovePlayer(logger *slog.Logger, svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.RemovePlayer(r.Context(), chi.URLParam(r, "code"), guestFrom(r).ID, chi.URLParam(r, "playerID"))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newSessionView(sess, svc.Now()))
	}
}

func handleDeleteSession(logger *slog.Logger, svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "code"), guestFrom(r).ID); err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
