package game

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/adamwahada/WorldMapQuiz/internal/logging"
	"github.com/adamwahada/WorldMapQuiz/internal/metrics"
	"github.com/adamwahada/WorldMapQuiz/internal/quiz"
)

const (
	defaultSweepInterval = time.Second
	defaultSweepBatch    = 100
)

// Sweeper fires due timers of sessions nobody is interacting with, so games
// finish and turns rotate without client traffic.
type Sweeper struct {
	svc      *Service
	logger   *slog.Logger
	metrics  *metrics.Recorder
	interval time.Duration
	batch    int

	mu     sync.RWMutex
	status SweepStatus
}

// SweepStatus describes the recent health of the sweep loop.
type SweepStatus struct {
	ConsecutiveFailures int
	LastError           string
	LastSweep           time.Time
}

// Healthy reports whether the sweeper is not failing repeatedly.
func (s SweepStatus) Healthy() bool { return s.ConsecutiveFailures < 3 }

func NewSweeper(svc *Service, logger *slog.Logger, recorder *metrics.Recorder, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{
		svc:      svc,
		logger:   logger,
		metrics:  recorder,
		interval: interval,
		batch:    defaultSweepBatch,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (w *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logging.Info(w.logger, "sweeper started", slog.Int64(logging.FieldDurationMS, w.interval.Milliseconds()))
	for {
		select {
		case <-ctx.Done():
			logging.Info(w.logger, "sweeper stopped")
			return nil
		case <-ticker.C:
			w.SweepOnce(ctx)
		}
	}
}

// SweepOnce advances every session with a due timer and returns how many
// were advanced.
func (w *Sweeper) SweepOnce(ctx context.Context) int {
	start := time.Now()
	ids, err := w.svc.store.ListDue(ctx, w.svc.Now(), w.batch)
	if err != nil {
		w.record(start, err)
		logging.Error(w.logger, "listing due sessions", err)
		return 0
	}

	advanced := 0
	var failed error
	for _, id := range ids {
		tr, err := w.svc.Tick(ctx, id)
		switch {
		case err == nil:
			if tr.Changed() {
				advanced++
			}
		case errors.Is(err, quiz.ErrSessionNotFound):
			// deleted between listing and loading
		default:
			failed = err
			logging.Error(w.logger, "advancing session timers", err, logging.FieldSessionID, id)
		}
	}
	w.record(start, failed)
	if advanced > 0 && w.logger != nil {
		w.logger.Debug("sweep advanced sessions", logging.FieldCount, advanced)
	}
	return advanced
}

func (w *Sweeper) record(start time.Time, err error) {
	w.metrics.RecordSweep(time.Since(start), err)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.status.LastSweep = start
	if err != nil {
		w.status.ConsecutiveFailures++
		w.status.LastError = err.Error()
		return
	}
	w.status.ConsecutiveFailures = 0
	w.status.LastError = ""
}

// Status returns a snapshot of the sweep loop's health.
func (w *Sweeper) Status() SweepStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}
