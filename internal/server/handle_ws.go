package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/adamwahada/WorldMapQuiz/internal/game"
	"github.com/adamwahada/WorldMapQuiz/internal/store"
)

const wsWriteTimeout = 5 * time.Second

// handleWS streams the same events as handleEvents over a WebSocket.
// Messages from the client are ignored; actions go through the HTTP API.
func handleWS(logger *slog.Logger, svc *game.Service, broker *store.Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.Get(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeDomainError(w, r, logger, err)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ch := broker.Subscribe(sess.ID)
		defer broker.Unsubscribe(sess.ID, ch)

		ctx := conn.CloseRead(r.Context())

		send := func(ev StreamEvent) error {
			wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			defer cancel()
			return wsjson.Write(wctx, conn, ev)
		}

		if err := send(newStreamEvent(store.Update{Session: sess}, svc.Now())); err != nil {
			logger.Debug("websocket write failed", "error", err)
			return
		}

		for {
			select {
			case <-ctx.Done():
				logger.Debug("websocket closed", "error", ctx.Err())
				return
			case u := <-ch:
				ev := newStreamEvent(u, svc.Now())
				if err := send(ev); err != nil {
					logger.Debug("websocket write failed", "error", err)
					return
				}
				if ev.Type == eventDeleted {
					conn.Close(websocket.StatusNormalClosure, "session deleted")
					return
				}
			}
		}
	}
}
