// Package store persists sessions as versioned JSON documents and fans out
// session updates to live subscribers.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/adamwahada/WorldMapQuiz/internal/quiz"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("session was modified concurrently")
	ErrCodeTaken       = errors.New("join code already in use")
	ErrQuotaExceeded   = errors.New("session creation quota exceeded")
)

// Quota limits how many sessions a player may create since a point in time.
// A zero Limit disables the check.
type Quota struct {
	Limit int
	Since time.Time
}

// Store is the session persistence port.
//
// Update is a compare-and-swap on Session.Version: it succeeds only when the
// stored version equals the one passed in, and returns the session with its
// version incremented. Delete is guarded the same way.
type Store interface {
	Create(ctx context.Context, s quiz.Session, q Quota) (quiz.Session, error)
	Get(ctx context.Context, id string) (quiz.Session, error)
	GetByCode(ctx context.Context, code string) (quiz.Session, error)
	Update(ctx context.Context, s quiz.Session) (quiz.Session, error)
	Delete(ctx context.Context, id string, version int64) error

	ListDue(ctx context.Context, now time.Time, limit int) ([]string, error)
	ListLive(ctx context.Context, limit int) ([]quiz.Session, error)
	CountCreations(ctx context.Context, playerID string, since time.Time) (int, error)
}
