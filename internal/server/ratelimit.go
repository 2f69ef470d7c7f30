package server

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type playerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// actionLimiter throttles mutating requests per guest.
type actionLimiter struct {
	mu      sync.Mutex
	players map[string]*playerLimiter
	limit   rate.Limit
	burst   int
	calls   int
}

func newActionLimiter(perSecond float64, burst int) *actionLimiter {
	return &actionLimiter{
		players: make(map[string]*playerLimiter),
		limit:   rate.Limit(perSecond),
		burst:   burst,
	}
}

func (l *actionLimiter) allow(playerID string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls%1024 == 0 {
		for id, p := range l.players {
			if now.Sub(p.lastSeen) > limiterIdleTTL {
				delete(l.players, id)
			}
		}
	}

	p, ok := l.players[playerID]
	if !ok {
		p = &playerLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.players[playerID] = p
	}
	p.lastSeen = now
	return p.limiter.AllowN(now, 1)
}

func (l *actionLimiter) middleware(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && !l.allow(guestFrom(r).ID, now()) {
				w.Header().Set("Retry-After", "1")
				writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
					Error: "too many requests, slow down",
					Code:  "rate_limited",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
