package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/adamwahada/WorldMapQuiz/internal/identity"
	"github.com/adamwahada/WorldMapQuiz/internal/quiz"
)

type GuestRequest struct {
	Name string `json:"name"`
}

type GuestResponse struct {
	Token    string `json:"token"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

func handleCreateGuest(logger *slog.Logger, issuer *identity.Issuer, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GuestRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		guest, token, err := issuer.Issue(req.Name, now())
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusCreated, GuestResponse{
			Token:    token,
			PlayerID: guest.ID,
			Name:     guest.Name,
		})
	}
}

// CountryItem is a playable country. Names are withheld: they are the
// answers.
type CountryItem struct {
	ID string `json:"id"`
}

func handleCountries(countries []quiz.Country) http.HandlerFunc {
	items := make([]CountryItem, len(countries))
	for i, c := range countries {
		items[i] = CountryItem{ID: c.ID}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, items)
	}
}
