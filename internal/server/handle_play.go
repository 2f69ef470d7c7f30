package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adamwahada/WorldMapQuiz/internal/game"
	"github.com/adamwahada/WorldMapQuiz/internal/quiz"
)

type PickRequest struct {
	CountryID string `json:"countryId"`
}

type RollResponse struct {
	CountryID string      `json:"countryId"`
	Session   SessionView `json:"session"`
}

// AnswerRequest carries a typed answer. CountryID names the target being
// answered; clients that retry must send it so a repeat resolves to
// already_answered instead of not_your_turn once the turn has moved on.
type AnswerRequest struct {
	CountryID string `json:"countryId,omitempty"`
	Answer    string `json:"answer"`
}

type AnswerResponse struct {
	Outcome quiz.Outcome `json:"outcome"`
	Session SessionView  `json:"session"`
}

func handlePick(logger *slog.Logger, svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PickRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CountryID == "" {
			writeDomainError(w, r, logger, quiz.ErrUnknownCountry)
			return
		}

		sess, err := svc.Pick(r.Context(), chi.URLParam(r, "code"), guestFrom(r).ID, req.CountryID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newSessionView(sess, svc.Now()))
	}
}

func handleRoll(logger *slog.Logger, svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tr, err := svc.Roll(r.Context(), chi.URLParam(r, "code"), guestFrom(r).ID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		countryID, _ := tr.Drawn()
		writeJSON(w, http.StatusOK, RollResponse{
			CountryID: countryID,
			Session:   newSessionView(tr.Session, svc.Now()),
		})
	}
}

func handleAnswer(logger *slog.Logger, svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnswerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		tr, err := svc.Submit(r.Context(), chi.URLParam(r, "code"), guestFrom(r).ID, req.CountryID, req.Answer)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		outcome, ok := tr.Outcome()
		if !ok {
			writeDomainError(w, r, logger, quiz.ErrCorruptState)
			return
		}
		writeJSON(w, http.StatusOK, AnswerResponse{
			Outcome: outcome,
			Session: newSessionView(tr.Session, svc.Now()),
		})
	}
}

func handleSkip(logger *slog.Logger, svc *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.Skip(r.Context(), chi.URLParam(r, "code"), guestFrom(r).ID)
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newSessionView(sess, svc.Now()))
	}
}
