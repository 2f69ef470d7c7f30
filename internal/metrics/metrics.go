package metrics

import (
	"sync"
	"time"
)

type quizStats struct {
	sessionsCreated  int
	sessionsFinished int
	answers          map[string]int
	turnTimeouts     int
	storeConflicts   int
	sweeps           int
	sweepErrors      int
	lastSweepLatency time.Duration
}

// Recorder captures lightweight, in-memory counters about session play and
// mirrors them to OpenTelemetry when configured. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	mu    sync.Mutex
	stats quizStats
	otel  *otelInstruments
}

func NewRecorder() *Recorder {
	return newRecorder(nil)
}

func newRecorder(otel *otelInstruments) *Recorder {
	return &Recorder{
		stats: quizStats{answers: make(map[string]int)},
		otel:  otel,
	}
}

// RecordSessionCreated counts a new session by difficulty.
func (r *Recorder) RecordSessionCreated(mode string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.stats.sessionsCreated++
	r.mu.Unlock()
	r.otel.recordSessionCreated(mode)
}

// RecordSessionFinished counts a session reaching the finished state.
func (r *Recorder) RecordSessionFinished(mode string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.stats.sessionsFinished++
	r.mu.Unlock()
	r.otel.recordSessionFinished(mode)
}

// RecordAnswer counts a judged answer by outcome (exact, fuzzy, wrong).
func (r *Recorder) RecordAnswer(outcome string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.stats.answers[outcome]++
	r.mu.Unlock()
	r.otel.recordAnswer(outcome)
}

// RecordTurnTimeout counts a turn forced to end by its countdown.
func (r *Recorder) RecordTurnTimeout() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.stats.turnTimeouts++
	r.mu.Unlock()
	r.otel.recordTurnTimeout()
}

// RecordStoreConflict counts an optimistic write that lost a race and was retried.
func (r *Recorder) RecordStoreConflict(op string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.stats.storeConflicts++
	r.mu.Unlock()
	r.otel.recordStoreConflict(op)
}

// RecordSweep tracks timer sweeper cycles and errors.
func (r *Recorder) RecordSweep(duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.stats.sweeps++
	r.stats.lastSweepLatency = duration
	if err != nil {
		r.stats.sweepErrors++
	}
	r.mu.Unlock()
	r.otel.recordSweep(duration, err)
}

// RecordHTTPRequest tracks basic HTTP metrics.
func (r *Recorder) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if r == nil || r.otel == nil {
		return
	}
	r.otel.recordHTTPRequest(method, path, status, duration)
}

// Snapshot is a copy of the in-memory counters.
type Snapshot struct {
	SessionsCreated  int
	SessionsFinished int
	Answers          map[string]int
	TurnTimeouts     int
	StoreConflicts   int
	Sweeps           int
	SweepErrors      int
	LastSweepLatency time.Duration
}

func (r *Recorder) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{Answers: map[string]int{}}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	answers := make(map[string]int, len(r.stats.answers))
	for k, v := range r.stats.answers {
		answers[k] = v
	}
	return Snapshot{
		SessionsCreated:  r.stats.sessionsCreated,
		SessionsFinished: r.stats.sessionsFinished,
		Answers:          answers,
		TurnTimeouts:     r.stats.turnTimeouts,
		StoreConflicts:   r.stats.storeConflicts,
		Sweeps:           r.stats.sweeps,
		SweepErrors:      r.stats.sweepErrors,
		LastSweepLatency: r.stats.lastSweepLatency,
	}
}
