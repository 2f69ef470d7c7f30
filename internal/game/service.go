// Package game runs session operations against the store: load, fire due
// timers, apply the operation, write back with a version check, publish.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/adamwahada/WorldMapQuiz/internal/countries"
	"github.com/adamwahada/WorldMapQuiz/internal/logging"
	"github.com/adamwahada/WorldMapQuiz/internal/metrics"
	"github.com/adamwahada/WorldMapQuiz/internal/quiz"
	"github.com/adamwahada/WorldMapQuiz/internal/store"
)

const (
	maxCodeAttempts = 5
	maxCASRetries   = 8
)

// Options wires a Service. Store, Machine and Catalog are required.
type Options struct {
	Store     store.Store
	Machine   *quiz.Machine
	Catalog   *countries.Catalog
	Publisher store.Publisher
	Metrics   *metrics.Recorder
	Logger    *slog.Logger

	CreationLimit  int
	CreationWindow time.Duration
}

type Service struct {
	store   store.Store
	machine *quiz.Machine
	catalog *countries.Catalog
	pub     store.Publisher
	metrics *metrics.Recorder
	logger  *slog.Logger

	creationLimit  int
	creationWindow time.Duration
	newBackOff     func() backoff.BackOff
}

func NewService(opts Options) *Service {
	if opts.Machine == nil {
		opts.Machine = quiz.NewMachine()
	}
	if opts.Publisher == nil {
		opts.Publisher = store.NewBroker()
	}
	return &Service{
		store:          opts.Store,
		machine:        opts.Machine,
		catalog:        opts.Catalog,
		pub:            opts.Publisher,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		creationLimit:  opts.CreationLimit,
		creationWindow: opts.CreationWindow,
		newBackOff:     defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second
	return backoff.WithMaxRetries(b, maxCASRetries)
}

func (s *Service) Now() time.Time {
	if s.machine.Now == nil {
		return time.Now()
	}
	return s.machine.Now()
}

// Countries returns the reference catalog new sessions are created with.
func (s *Service) Countries() []quiz.Country { return s.catalog.All() }

// Create starts a waiting session owned by the caller. The join code is
// regenerated on collision with another live session.
func (s *Service) Create(ctx context.Context, ownerID, ownerName string, settings quiz.Settings, maxPlayers int) (quiz.Session, error) {
	tr, err := s.machine.Create(ownerID, ownerName, settings, maxPlayers, s.catalog.All())
	if err != nil {
		return quiz.Session{}, err
	}
	sess := tr.Session

	var quota store.Quota
	if s.creationLimit > 0 {
		quota = store.Quota{Limit: s.creationLimit, Since: sess.CreatedAt.Add(-s.creationWindow)}
	}

	for attempt := 1; ; attempt++ {
		saved, err := s.store.Create(ctx, sess, quota)
		switch {
		case err == nil:
			s.metrics.RecordSessionCreated(string(saved.Settings.Difficulty))
			logging.Info(s.logger, "session created",
				append(logging.Session(saved.ID, saved.Code), logging.FieldPlayerID, ownerID)...)
			return saved, nil
		case errors.Is(err, store.ErrCodeTaken) && attempt < maxCodeAttempts:
			sess.Code = s.machine.NewCode()
		case errors.Is(err, store.ErrQuotaExceeded):
			return quiz.Session{}, quiz.ErrCreationQuota
		default:
			return quiz.Session{}, fmt.Errorf("creating session: %w", err)
		}
	}
}

// Get returns the session addressed by code with due timers applied.
func (s *Service) Get(ctx context.Context, code string) (quiz.Session, error) {
	tr, err := s.byCode(ctx, "view", code, func(in quiz.Session) (quiz.Transition, error) {
		return quiz.Transition{Session: in}, nil
	})
	return tr.Session, err
}

func (s *Service) Join(ctx context.Context, code, playerID, name string) (quiz.Session, error) {
	tr, err := s.byCode(ctx, "join", code, func(in quiz.Session) (quiz.Transition, error) {
		return s.machine.Join(in, code, playerID, name)
	})
	return tr.Session, err
}

func (s *Service) Start(ctx context.Context, code, playerID string) (quiz.Session, error) {
	tr, err := s.byCode(ctx, "start", code, func(in quiz.Session) (quiz.Transition, error) {
		return s.machine.Start(in, playerID)
	})
	return tr.Session, err
}

func (s *Service) Pick(ctx context.Context, code, playerID, countryID string) (quiz.Session, error) {
	tr, err := s.byCode(ctx, "pick", code, func(in quiz.Session) (quiz.Transition, error) {
		return s.machine.Pick(in, playerID, countryID)
	})
	return tr.Session, err
}

// Roll draws a random country; the transition carries the drawn id.
func (s *Service) Roll(ctx context.Context, code, playerID string) (quiz.Transition, error) {
	return s.byCode(ctx, "roll", code, func(in quiz.Session) (quiz.Transition, error) {
		return s.machine.Roll(in, playerID)
	})
}

// Submit judges an answer; the transition carries the outcome.
func (s *Service) Submit(ctx context.Context, code, playerID, countryID, answer string) (quiz.Transition, error) {
	return s.byCode(ctx, "submit", code, func(in quiz.Session) (quiz.Transition, error) {
		return s.machine.Submit(in, playerID, countryID, answer)
	})
}

func (s *Service) Skip(ctx context.Context, code, playerID string) (quiz.Session, error) {
	tr, err := s.byCode(ctx, "skip", code, func(in quiz.Session) (quiz.Transition, error) {
		return s.machine.Skip(in, playerID)
	})
	return tr.Session, err
}

func (s *Service) RemovePlayer(ctx context.Context, code, requesterID, targetID string) (quiz.Session, error) {
	tr, err := s.byCode(ctx, "remove_player", code, func(in quiz.Session) (quiz.Transition, error) {
		return s.machine.RemovePlayer(in, requesterID, targetID)
	})
	return tr.Session, err
}

// Delete removes a waiting session on behalf of its owner.
func (s *Service) Delete(ctx context.Context, code, requesterID string) error {
	return s.remove(ctx, "delete", code, func(in quiz.Session) error {
		return s.machine.Delete(in, requesterID)
	})
}

// ForceDelete removes a session regardless of its state. Admin only.
func (s *Service) ForceDelete(ctx context.Context, code string) error {
	return s.remove(ctx, "force_delete", code, func(quiz.Session) error { return nil })
}

// ListLive returns sessions that have not finished. Admin only.
func (s *Service) ListLive(ctx context.Context, limit int) ([]quiz.Session, error) {
	sessions, err := s.store.ListLive(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// Tick fires the due timers of the session with the given id.
func (s *Service) Tick(ctx context.Context, id string) (quiz.Transition, error) {
	load := func(ctx context.Context) (quiz.Session, error) { return s.store.Get(ctx, id) }
	return s.mutate(ctx, "tick", load, func(in quiz.Session) (quiz.Transition, error) {
		return quiz.Transition{Session: in}, nil
	})
}

// remove deletes the session once due timers have fired and check accepts
// the resulting state. The delete is guarded by the version that check saw.
func (s *Service) remove(ctx context.Context, op, code string, check func(quiz.Session) error) error {
	if _, err := quiz.NormalizeCode(code); err != nil {
		return err
	}
	var gone quiz.Session

	attempt := func() error {
		cur, err := s.load(ctx, code)
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := cur.Validate(); err != nil {
			logging.Error(s.logger, "corrupt session state", err, append(logging.Session(cur.ID, cur.Code), "op", op)...)
			return backoff.Permanent(err)
		}

		timed, err := s.machine.Advance(cur, s.Now())
		if err != nil {
			logging.Error(s.logger, "advancing timers", err, logging.Session(cur.ID, cur.Code)...)
			return backoff.Permanent(err)
		}
		if timed.Changed() {
			saved, err := s.commit(ctx, op, timed)
			if err != nil {
				return err
			}
			timed.Session = saved
		}
		if err := check(timed.Session); err != nil {
			return backoff.Permanent(err)
		}

		err = s.store.Delete(ctx, timed.Session.ID, timed.Session.Version)
		switch {
		case errors.Is(err, store.ErrVersionConflict):
			s.metrics.RecordStoreConflict(op)
			logging.Warn(s.logger, "session delete conflict, retrying", append(logging.Session(cur.ID, cur.Code), "op", op)...)
			return err
		case errors.Is(err, store.ErrNotFound):
			return backoff.Permanent(quiz.ErrSessionNotFound)
		case err != nil:
			return backoff.Permanent(fmt.Errorf("deleting session: %w", err))
		}
		gone = timed.Session
		return nil
	}

	err := backoff.Retry(attempt, backoff.WithContext(s.newBackOff(), ctx))
	if errors.Is(err, store.ErrVersionConflict) {
		return fmt.Errorf("%s: gave up after repeated conflicts: %w", op, err)
	}
	if err != nil {
		return err
	}

	s.pub.Publish(ctx, store.Update{Session: gone, Effects: []quiz.Effect{{Type: quiz.EffectDeleted}}})
	logging.Info(s.logger, "session deleted", logging.Session(gone.ID, gone.Code)...)
	return nil
}

func (s *Service) load(ctx context.Context, code string) (quiz.Session, error) {
	normalized, err := quiz.NormalizeCode(code)
	if err != nil {
		return quiz.Session{}, err
	}
	sess, err := s.store.GetByCode(ctx, normalized)
	if errors.Is(err, store.ErrNotFound) {
		return quiz.Session{}, quiz.ErrSessionNotFound
	}
	if err != nil {
		return quiz.Session{}, fmt.Errorf("loading session: %w", err)
	}
	return sess, nil
}

func (s *Service) byCode(ctx context.Context, op, code string, apply func(quiz.Session) (quiz.Transition, error)) (quiz.Transition, error) {
	if _, err := quiz.NormalizeCode(code); err != nil {
		return quiz.Transition{}, err
	}
	return s.mutate(ctx, op, func(ctx context.Context) (quiz.Session, error) { return s.load(ctx, code) }, apply)
}

// mutate loads the session, fires due timers, applies op and writes the
// result with a version check. A lost race reloads and re-applies op, so op
// always judges against the latest state. Timer effects are persisted even
// when op itself is rejected.
func (s *Service) mutate(ctx context.Context, op string, load func(context.Context) (quiz.Session, error), apply func(quiz.Session) (quiz.Transition, error)) (quiz.Transition, error) {
	var result quiz.Transition

	attempt := func() error {
		cur, err := load(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return backoff.Permanent(quiz.ErrSessionNotFound)
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := cur.Validate(); err != nil {
			logging.Error(s.logger, "corrupt session state", err, append(logging.Session(cur.ID, cur.Code), "op", op)...)
			return backoff.Permanent(err)
		}

		timed, err := s.machine.Advance(cur, s.Now())
		if err != nil {
			logging.Error(s.logger, "advancing timers", err, logging.Session(cur.ID, cur.Code)...)
			return backoff.Permanent(err)
		}

		tr, opErr := apply(timed.Session)
		if opErr != nil {
			if timed.Changed() {
				if _, err := s.commit(ctx, op, timed); err != nil {
					return err
				}
			}
			return backoff.Permanent(opErr)
		}

		combined := quiz.Transition{
			Session: tr.Session,
			Effects: append(timed.Effects, tr.Effects...),
		}
		if !combined.Changed() {
			result = combined
			return nil
		}
		saved, err := s.commit(ctx, op, combined)
		if err != nil {
			return err
		}
		combined.Session = saved
		result = combined
		return nil
	}

	err := backoff.Retry(attempt, backoff.WithContext(s.newBackOff(), ctx))
	if errors.Is(err, store.ErrVersionConflict) {
		return quiz.Transition{}, fmt.Errorf("%s: gave up after repeated conflicts: %w", op, err)
	}
	if err != nil {
		return quiz.Transition{}, err
	}
	return result, nil
}

// commit persists tr and announces it. A version conflict is returned as is
// so the retry loop can re-run; anything else is permanent.
func (s *Service) commit(ctx context.Context, op string, tr quiz.Transition) (quiz.Session, error) {
	saved, err := s.store.Update(ctx, tr.Session)
	if errors.Is(err, store.ErrVersionConflict) {
		s.metrics.RecordStoreConflict(op)
		logging.Warn(s.logger, "session write conflict, retrying", append(logging.Session(tr.Session.ID, tr.Session.Code), "op", op)...)
		return quiz.Session{}, err
	}
	if errors.Is(err, store.ErrNotFound) {
		return quiz.Session{}, backoff.Permanent(quiz.ErrSessionNotFound)
	}
	if err != nil {
		return quiz.Session{}, backoff.Permanent(fmt.Errorf("saving session: %w", err))
	}

	s.observe(saved, tr.Effects)
	s.pub.Publish(ctx, store.Update{Session: saved, Effects: tr.Effects})
	return saved, nil
}

func (s *Service) observe(sess quiz.Session, effects []quiz.Effect) {
	mode := string(sess.Settings.Difficulty)
	for _, e := range effects {
		switch e.Type {
		case quiz.EffectJudged:
			if e.Outcome != nil {
				s.metrics.RecordAnswer(string(e.Outcome.Kind))
			}
		case quiz.EffectTimedOut:
			s.metrics.RecordTurnTimeout()
		case quiz.EffectFinished:
			s.metrics.RecordSessionFinished(mode)
			logging.Info(s.logger, "session finished",
				append(logging.Session(sess.ID, sess.Code), "winner_id", e.WinnerID)...)
		}
		if s.logger != nil {
			s.logger.Debug("session effect",
				append(logging.Session(sess.ID, sess.Code),
					logging.FieldEffect, string(e.Type),
					logging.FieldPlayerID, e.PlayerID,
					logging.FieldVersion, sess.Version)...)
		}
	}
}
