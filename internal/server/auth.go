package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/adamwahada/WorldMapQuiz/internal/identity"
)

type ctxKey int

const ctxKeyGuest ctxKey = iota

// guestToken reads the bearer token, falling back to the token query
// parameter that EventSource and WebSocket clients use.
func guestToken(r *http.Request) string {
	if token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found {
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("token")
}

func guestAuthMiddleware(issuer *identity.Issuer, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := guestToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "guest token required")
				return
			}
			guest, err := issuer.Verify(token, now())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid guest token")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyGuest, guest)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func guestFrom(r *http.Request) identity.Guest {
	return r.Context().Value(ctxKeyGuest).(identity.Guest)
}
