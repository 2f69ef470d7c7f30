package quiz

import (
	"errors"
	"math/rand"
	"time"

	"github.com/adamwahada/WorldMapQuiz/internal/judge"
)

// Default timer lengths.
const (
	DefaultTurnDuration   = 20 * time.Second
	DefaultLobbyCountdown = 10 * time.Minute
)

// Machine applies session operations. It owns the clock and the randomness
// so tests can drive both.
type Machine struct {
	Now            func() time.Time
	Intn           func(n int) int
	TurnDuration   time.Duration
	LobbyCountdown time.Duration
}

// NewMachine returns a Machine using the wall clock and math/rand.
func NewMachine() *Machine {
	return &Machine{
		Now:            time.Now,
		Intn:           rand.Intn,
		TurnDuration:   DefaultTurnDuration,
		LobbyCountdown: DefaultLobbyCountdown,
	}
}

type EffectType string

const (
	EffectCreated    EffectType = "created"
	EffectJoined     EffectType = "joined"
	EffectLobbyArmed EffectType = "lobby_armed"
	EffectStarted    EffectType = "started"
	EffectPicked     EffectType = "picked"
	EffectDrawn      EffectType = "drawn"
	EffectJudged     EffectType = "judged"
	EffectSkipped    EffectType = "skipped"
	EffectTimedOut   EffectType = "timed_out"
	EffectLeft       EffectType = "left"
	EffectFinished   EffectType = "finished"
	EffectDeleted    EffectType = "deleted"
)

// Effect describes one observable change produced by an operation.
type Effect struct {
	Type      EffectType `json:"type"`
	PlayerID  string     `json:"playerId,omitempty"`
	CountryID string     `json:"countryId,omitempty"`
	Outcome   *Outcome   `json:"outcome,omitempty"`
	WinnerID  string     `json:"winnerId,omitempty"`
}

type OutcomeKind string

const (
	OutcomeExact OutcomeKind = "exact"
	OutcomeFuzzy OutcomeKind = "fuzzy"
	OutcomeWrong OutcomeKind = "wrong"
)

// Outcome is the verdict on a submitted answer. CorrectName is only revealed
// on a wrong answer.
type Outcome struct {
	Kind        OutcomeKind `json:"kind"`
	CountryID   string      `json:"countryId"`
	Points      int         `json:"points"`
	Distance    int         `json:"distance"`
	CorrectName string      `json:"correctName,omitempty"`
}

// Transition is the result of an operation: the new session and what
// happened to produce it. An empty Effects slice means nothing changed.
type Transition struct {
	Session Session
	Effects []Effect
}

// Changed reports whether the transition must be persisted.
func (t Transition) Changed() bool { return len(t.Effects) > 0 }

// Outcome returns the judged outcome, if the transition contains one.
func (t Transition) Outcome() (Outcome, bool) {
	for _, e := range t.Effects {
		if e.Type == EffectJudged && e.Outcome != nil {
			return *e.Outcome, true
		}
	}
	return Outcome{}, false
}

// Drawn returns the country drawn by a random roll, if any.
func (t Transition) Drawn() (string, bool) {
	for _, e := range t.Effects {
		if e.Type == EffectDrawn {
			return e.CountryID, true
		}
	}
	return "", false
}

func (t *Transition) emit(e Effect) { t.Effects = append(t.Effects, e) }

func (m *Machine) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func (m *Machine) intn(n int) int {
	if m.Intn == nil {
		return rand.Intn(n)
	}
	return m.Intn(n)
}

func (m *Machine) turnDuration() time.Duration {
	if m.TurnDuration <= 0 {
		return DefaultTurnDuration
	}
	return m.TurnDuration
}

// NewCode draws a join code from the machine's randomness.
func (m *Machine) NewCode() string { return NewCode(m.intn) }

// Create builds a waiting session owned by ownerID, who joins as the first
// player. maxPlayers of 0 falls back to settings.Players.
func (m *Machine) Create(ownerID, ownerName string, settings Settings, maxPlayers int, countries []Country) (Transition, error) {
	if ownerID == "" {
		return Transition{}, ErrForbidden
	}
	name, err := NormalizeName(ownerName)
	if err != nil {
		return Transition{}, err
	}
	if maxPlayers == 0 {
		maxPlayers = settings.Players
	}
	if maxPlayers < MinPlayers || maxPlayers > MaxPlayers {
		return Transition{}, ErrInvalidSettings
	}
	if settings.Players != 0 && settings.Players != maxPlayers {
		return Transition{}, ErrInvalidSettings
	}
	settings.Players = maxPlayers
	if !settings.Difficulty.Valid() || settings.Minutes < 1 || settings.Minutes > maxMinutes {
		return Transition{}, ErrInvalidSettings
	}
	if len(countries) == 0 {
		return Transition{}, ErrInvalidSettings
	}

	now := m.now()
	s := Session{
		OwnerID:    ownerID,
		Code:       m.NewCode(),
		Status:     StatusWaiting,
		MaxPlayers: maxPlayers,
		Settings:   settings,
		Players: map[string]Player{
			ownerID: {ID: ownerID, Name: name, Status: PlayerActive, JoinedAt: now},
		},
		Order:      []string{ownerID},
		Countries:  make(map[string]CountryState, len(countries)),
		NextAction: InitialAction(settings.Difficulty),
		CreatedAt:  now,
	}
	for _, c := range countries {
		if c.ID == "" {
			return Transition{}, ErrInvalidSettings
		}
		s.Countries[c.ID] = CountryState{Country: c, Status: CountryUnanswered}
	}

	t := Transition{Session: s}
	t.emit(Effect{Type: EffectCreated, PlayerID: ownerID})
	return t, nil
}

// Join adds playerID to a waiting session addressed by code. Checks run in
// order: status, membership, capacity. Players who left still hold their
// seat.
func (m *Machine) Join(in Session, code, playerID, name string) (Transition, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return Transition{}, err
	}
	if code != in.Code {
		return Transition{}, ErrSessionNotFound
	}
	if playerID == "" {
		return Transition{}, ErrForbidden
	}
	name, err = NormalizeName(name)
	if err != nil {
		return Transition{}, err
	}
	if in.Status != StatusWaiting {
		return Transition{}, ErrNotJoinable
	}
	if _, ok := in.Players[playerID]; ok {
		return Transition{}, ErrAlreadyJoined
	}
	if len(in.Order) >= in.MaxPlayers {
		return Transition{}, ErrRoomFull
	}

	now := m.now()
	t := Transition{Session: in.Clone()}
	s := &t.Session
	s.Players[playerID] = Player{ID: playerID, Name: name, Status: PlayerActive, JoinedAt: now}
	s.Order = append(s.Order, playerID)
	t.emit(Effect{Type: EffectJoined, PlayerID: playerID})

	if s.LobbyEndsAt == nil && m.LobbyCountdown > 0 && s.ActiveCount() >= MinPlayers {
		s.LobbyEndsAt = timePtr(now.Add(m.LobbyCountdown))
		t.emit(Effect{Type: EffectLobbyArmed})
	}
	return t, nil
}

// Start moves a waiting session into play. Only the owner may start.
func (m *Machine) Start(in Session, requesterID string) (Transition, error) {
	if requesterID != in.OwnerID {
		return Transition{}, ErrNotOwner
	}
	if in.hasLeft(requesterID) {
		return Transition{}, ErrForbidden
	}
	if in.Status != StatusWaiting {
		return Transition{}, ErrAlreadyStarted
	}
	if in.ActiveCount() < MinPlayers {
		return Transition{}, ErrInsufficientPlayers
	}
	t := Transition{Session: in.Clone()}
	m.start(&t, m.now())
	return t, nil
}

func (m *Machine) start(t *Transition, now time.Time) {
	s := &t.Session
	s.Status = StatusPlaying
	s.StartedAt = timePtr(now)
	s.GlobalEndsAt = timePtr(now.Add(time.Duration(s.Settings.Minutes) * time.Minute))
	s.TurnEndsAt = timePtr(now.Add(m.turnDuration()))
	s.NextAction = InitialAction(s.Settings.Difficulty)
	s.Active = nil
	s.TurnIndex = 0
	if len(s.Order) > 0 && s.Players[s.Order[0]].Status == PlayerLeft {
		s.TurnIndex = nextSeat(*s, 0)
	}
	t.emit(Effect{Type: EffectStarted})
}

// requireTurn checks that playerID may act on a playing session now.
func requireTurn(s Session, playerID string) error {
	switch s.Status {
	case StatusPlaying:
	case StatusFinished:
		return ErrFinished
	default:
		return ErrNotPlaying
	}
	p, ok := s.Players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	if p.Status == PlayerLeft {
		return ErrForbidden
	}
	cur, err := s.CurrentPlayerID()
	if err != nil {
		return err
	}
	if cur != playerID {
		return ErrNotYourTurn
	}
	return nil
}

func wake(s *Session, playerID string) {
	if p := s.Players[playerID]; p.Status == PlayerIdle {
		p.Status = PlayerActive
		s.Players[playerID] = p
	}
}

// Pick opens countryID as the target of the current turn.
func (m *Machine) Pick(in Session, playerID, countryID string) (Transition, error) {
	if err := requireTurn(in, playerID); err != nil {
		return Transition{}, err
	}
	cs, ok := in.Countries[countryID]
	if !ok {
		return Transition{}, ErrUnknownCountry
	}
	drawActive := in.Active != nil && in.Active.Random
	if !CanInteract(in.Settings.Difficulty, ActionPick, in.NextAction, drawActive) {
		return Transition{}, ErrDiceRequired
	}
	if in.Active != nil && in.Active.CountryID != countryID {
		return Transition{}, ErrLockViolation
	}
	if cs.Status != CountryUnanswered {
		return Transition{}, ErrAlreadyAnswered
	}
	if in.Active != nil {
		// Selecting the open target again changes nothing.
		return Transition{Session: in}, nil
	}

	t := Transition{Session: in.Clone()}
	s := &t.Session
	wake(s, playerID)
	s.Active = &Target{CountryID: countryID, PlayerID: playerID, OpenedAt: m.now()}
	t.emit(Effect{Type: EffectPicked, PlayerID: playerID, CountryID: countryID})
	return t, nil
}

// Roll draws an unanswered country uniformly at random and locks the turn
// to it.
func (m *Machine) Roll(in Session, playerID string) (Transition, error) {
	if err := requireTurn(in, playerID); err != nil {
		return Transition{}, err
	}
	if in.Active != nil {
		return Transition{}, ErrLockViolation
	}
	if !CanInteract(in.Settings.Difficulty, ActionRandom, in.NextAction, false) {
		return Transition{}, ErrPickRequired
	}
	candidates := in.Unanswered()
	if len(candidates) == 0 {
		return Transition{}, ErrNoCountriesLeft
	}
	idx := m.intn(len(candidates))
	if idx < 0 || idx >= len(candidates) {
		return Transition{}, ErrCorruptState
	}
	countryID := candidates[idx]

	t := Transition{Session: in.Clone()}
	s := &t.Session
	wake(s, playerID)
	s.Active = &Target{CountryID: countryID, PlayerID: playerID, Random: true, OpenedAt: m.now()}
	t.emit(Effect{Type: EffectDrawn, PlayerID: playerID, CountryID: countryID})
	return t, nil
}

// Submit judges raw against the open target. countryID is optional; when
// given and already resolved the call fails with ErrAlreadyAnswered, which
// makes a resubmission after a successful answer harmless.
func (m *Machine) Submit(in Session, playerID, countryID, raw string) (Transition, error) {
	switch in.Status {
	case StatusPlaying:
	case StatusFinished:
		return Transition{}, ErrFinished
	default:
		return Transition{}, ErrNotPlaying
	}
	if _, ok := in.Players[playerID]; !ok {
		return Transition{}, ErrPlayerNotFound
	}
	if countryID != "" {
		cs, ok := in.Countries[countryID]
		if !ok {
			return Transition{}, ErrUnknownCountry
		}
		if cs.Status != CountryUnanswered {
			return Transition{}, ErrAlreadyAnswered
		}
	}
	if err := requireTurn(in, playerID); err != nil {
		return Transition{}, err
	}
	if in.Active == nil {
		return Transition{}, ErrNoActiveTarget
	}
	if countryID != "" && countryID != in.Active.CountryID {
		return Transition{}, ErrLockViolation
	}
	target := in.Countries[in.Active.CountryID]
	if target.Status != CountryUnanswered {
		return Transition{}, ErrCorruptState
	}

	verdict, err := judge.Judge(raw, target.Name)
	if err != nil {
		if errors.Is(err, judge.ErrEmptyAnswer) {
			return Transition{}, ErrEmptyAnswer
		}
		return Transition{}, err
	}

	out := Outcome{CountryID: target.ID, Points: verdict.Points(), Distance: verdict.Distance}
	switch {
	case verdict.Exact:
		out.Kind = OutcomeExact
		target.Status = CountryCorrect
	case verdict.Accepted:
		out.Kind = OutcomeFuzzy
		target.Status = CountryCorrect
	default:
		out.Kind = OutcomeWrong
		out.CorrectName = target.Name
		target.Status = CountryIncorrect
	}

	now := m.now()
	t := Transition{Session: in.Clone()}
	s := &t.Session
	wake(s, playerID)
	s.Countries[target.ID] = target
	p := s.Players[playerID]
	p.Score += out.Points
	s.Players[playerID] = p
	t.emit(Effect{Type: EffectJudged, PlayerID: playerID, CountryID: target.ID, Outcome: &out})

	m.resolveTurn(&t, now)
	return t, nil
}

// Skip ends the current turn without answering. An open target goes back to
// the unanswered pool.
func (m *Machine) Skip(in Session, playerID string) (Transition, error) {
	if err := requireTurn(in, playerID); err != nil {
		return Transition{}, err
	}
	t := Transition{Session: in.Clone()}
	s := &t.Session
	wake(s, playerID)
	e := Effect{Type: EffectSkipped, PlayerID: playerID}
	if s.Active != nil {
		e.CountryID = s.Active.CountryID
	}
	t.emit(e)
	m.resolveTurn(&t, m.now())
	return t, nil
}

// resolveTurn clears the open target, rotates to the next seated player,
// resets the turn timer and applies the difficulty policy. It finishes the
// session when nothing is left to answer.
func (m *Machine) resolveTurn(t *Transition, now time.Time) {
	s := &t.Session
	s.Active = nil
	s.TurnIndex = nextSeat(*s, s.TurnIndex)
	s.TurnEndsAt = timePtr(now.Add(m.turnDuration()))
	s.NextAction = NextAction(s.Settings.Difficulty, s.NextAction)
	if len(s.Unanswered()) == 0 {
		finish(t, now)
	}
}

// nextSeat returns the index after from, skipping players who left. When
// every player has left it falls back to plain rotation.
func nextSeat(s Session, from int) int {
	n := len(s.Order)
	if n == 0 {
		return 0
	}
	for step := 1; step <= n; step++ {
		i := (from + step) % n
		if s.Players[s.Order[i]].Status != PlayerLeft {
			return i
		}
	}
	return (from + 1) % n
}

func finish(t *Transition, now time.Time) {
	s := &t.Session
	s.Status = StatusFinished
	s.FinishedAt = timePtr(now)
	s.Active = nil
	s.TurnEndsAt = nil
	if w, ok := s.Winner(); ok {
		s.WinnerID = w.ID
	}
	t.emit(Effect{Type: EffectFinished, WinnerID: s.WinnerID})
}

// TickLobby auto-starts a waiting session once its lobby countdown elapsed.
func (m *Machine) TickLobby(in Session, now time.Time) Transition {
	if in.Status != StatusWaiting || in.LobbyEndsAt == nil || now.Before(*in.LobbyEndsAt) {
		return Transition{Session: in}
	}
	if in.ActiveCount() < MinPlayers {
		return Transition{Session: in}
	}
	t := Transition{Session: in.Clone()}
	m.start(&t, now)
	return t
}

// TickGlobal finishes a playing session whose game clock ran out.
func (m *Machine) TickGlobal(in Session, now time.Time) Transition {
	if in.Status != StatusPlaying || in.GlobalEndsAt == nil || now.Before(*in.GlobalEndsAt) {
		return Transition{Session: in}
	}
	t := Transition{Session: in.Clone()}
	finish(&t, now)
	return t
}

// TickTurn forces a skip when the current turn ran out. The player who
// timed out is marked idle until they act again.
func (m *Machine) TickTurn(in Session, now time.Time) (Transition, error) {
	if in.Status != StatusPlaying || in.TurnEndsAt == nil || now.Before(*in.TurnEndsAt) {
		return Transition{Session: in}, nil
	}
	cur, err := in.CurrentPlayerID()
	if err != nil {
		return Transition{}, err
	}
	t := Transition{Session: in.Clone()}
	s := &t.Session
	e := Effect{Type: EffectTimedOut, PlayerID: cur}
	if s.Active != nil {
		e.CountryID = s.Active.CountryID
	}
	if p := s.Players[cur]; p.Status == PlayerActive {
		p.Status = PlayerIdle
		s.Players[cur] = p
	}
	t.emit(e)
	m.resolveTurn(&t, now)
	return t, nil
}

// Advance fires every timer of in that is due at now: lobby, then the game
// clock, then the turn clock.
func (m *Machine) Advance(in Session, now time.Time) (Transition, error) {
	out := Transition{Session: in}
	for _, tick := range []func(Session) (Transition, error){
		func(s Session) (Transition, error) { return m.TickLobby(s, now), nil },
		func(s Session) (Transition, error) { return m.TickGlobal(s, now), nil },
		func(s Session) (Transition, error) { return m.TickTurn(s, now) },
	} {
		t, err := tick(out.Session)
		if err != nil {
			return Transition{}, err
		}
		out.Session = t.Session
		out.Effects = append(out.Effects, t.Effects...)
	}
	return out, nil
}

// RemovePlayer marks targetID as left. Players may remove themselves; the
// owner may remove anyone. A player who leaves on their own turn forfeits
// it.
func (m *Machine) RemovePlayer(in Session, requesterID, targetID string) (Transition, error) {
	if in.Status == StatusFinished {
		return Transition{}, ErrFinished
	}
	p, ok := in.Players[targetID]
	if !ok {
		return Transition{}, ErrPlayerNotFound
	}
	if requesterID != targetID && (requesterID != in.OwnerID || in.hasLeft(requesterID)) {
		return Transition{}, ErrForbidden
	}
	if p.Status == PlayerLeft {
		return Transition{}, ErrAlreadyLeft
	}

	now := m.now()
	t := Transition{Session: in.Clone()}
	s := &t.Session
	p.Status = PlayerLeft
	p.LeftAt = timePtr(now)
	s.Players[targetID] = p
	t.emit(Effect{Type: EffectLeft, PlayerID: targetID})

	switch s.Status {
	case StatusWaiting:
		if s.ActiveCount() < MinPlayers {
			s.LobbyEndsAt = nil
		}
	case StatusPlaying:
		if s.ActiveCount() == 0 {
			finish(&t, now)
			return t, nil
		}
		cur, err := s.CurrentPlayerID()
		if err != nil {
			return Transition{}, err
		}
		if cur == targetID {
			e := Effect{Type: EffectSkipped, PlayerID: targetID}
			if s.Active != nil {
				e.CountryID = s.Active.CountryID
			}
			t.emit(e)
			m.resolveTurn(&t, now)
		}
	}
	return t, nil
}

// Delete checks that requesterID may delete in. Only the owner may delete,
// and only before the game starts.
func (m *Machine) Delete(in Session, requesterID string) error {
	if requesterID != in.OwnerID || in.hasLeft(requesterID) {
		return ErrForbidden
	}
	if in.Status != StatusWaiting {
		return ErrNotDeletable
	}
	return nil
}
