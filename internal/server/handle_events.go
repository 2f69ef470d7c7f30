package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/adamwahada/WorldMapQuiz/internal/game"
	"github.com/adamwahada/WorldMapQuiz/internal/quiz"
	"github.com/adamwahada/WorldMapQuiz/internal/store"
)

const (
	eventState   = "state"
	eventDeleted = "deleted"

	streamPingInterval = 30 * time.Second
)

// StreamEvent is pushed to live subscribers after every persisted change.
type StreamEvent struct {
	Type    string        `json:"type"`
	Session *SessionView  `json:"session,omitempty"`
	Effects []quiz.Effect `json:"effects,omitempty"`
}

func newStreamEvent(u store.Update, now time.Time) StreamEvent {
	for _, e := range u.Effects {
		if e.Type == quiz.EffectDeleted {
			return StreamEvent{Type: eventDeleted}
		}
	}
	v := newSessionView(u.Session, now)
	return StreamEvent{Type: eventState, Session: &v, Effects: u.Effects}
}

func handleEvents(logger *slog.Logger, svc *game.Service, broker *store.Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		sess, err := svc.Get(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		ch := broker.Subscribe(sess.ID)
		defer broker.Unsubscribe(sess.ID, ch)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		send := func(ev StreamEvent) bool {
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Error("encoding stream event", "error", err)
				return false
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
			return true
		}

		if !send(newStreamEvent(store.Update{Session: sess}, svc.Now())) {
			return
		}

		ping := time.NewTicker(streamPingInterval)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case u := <-ch:
				ev := newStreamEvent(u, svc.Now())
				if !send(ev) || ev.Type == eventDeleted {
					return
				}
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
