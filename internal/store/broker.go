package store

import (
	"context"
	"sync"

	"github.com/adamwahada/WorldMapQuiz/internal/quiz"
)

// Update is published after every persisted transition.
type Update struct {
	Session quiz.Session  `json:"session"`
	Effects []quiz.Effect `json:"effects"`
}

// Publisher delivers updates to whoever is watching a session.
type Publisher interface {
	Publish(ctx context.Context, u Update)
}

// Broker is an in-process pub/sub for session updates, keyed by session ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan Update]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan Update]struct{}),
	}
}

// Subscribe returns a channel that receives updates for the given session.
func (b *Broker) Subscribe(sessionID string) chan Update {
	ch := make(chan Update, 16)
	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan Update]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the session's subscribers.
func (b *Broker) Unsubscribe(sessionID string, ch chan Update) {
	b.mu.Lock()
	delete(b.subs[sessionID], ch)
	if len(b.subs[sessionID]) == 0 {
		delete(b.subs, sessionID)
	}
	b.mu.Unlock()
}

// Publish sends u to all subscribers of its session.
func (b *Broker) Publish(_ context.Context, u Update) {
	b.mu.RLock()
	for ch := range b.subs[u.Session.ID] {
		select {
		case ch <- u:
		default:
			// Drop if subscriber is slow; the next update carries the full state.
		}
	}
	b.mu.RUnlock()
}

// Subscribers reports how many channels watch sessionID.
func (b *Broker) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[sessionID])
}
