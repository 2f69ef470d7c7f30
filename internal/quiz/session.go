// Package quiz holds the session lifecycle, turn rotation and answer
// bookkeeping of a multiplayer map quiz.
//
// A Session is a plain value. Every operation on Machine takes a Session and
// returns a Transition holding a new Session plus the effects it produced;
// the input is never modified. Persistence and broadcasting live elsewhere.
package quiz

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

func (s Status) rank() int {
	switch s {
	case StatusWaiting:
		return 0
	case StatusPlaying:
		return 1
	case StatusFinished:
		return 2
	}
	return -1
}

// Before reports whether s comes strictly before o in the lifecycle.
func (s Status) Before(o Status) bool { return s.rank() < o.rank() }

type PlayerStatus string

const (
	PlayerActive PlayerStatus = "active"
	PlayerLeft   PlayerStatus = "left"
	PlayerIdle   PlayerStatus = "idle"
)

type CountryStatus string

const (
	CountryUnanswered CountryStatus = "unanswered"
	CountryCorrect    CountryStatus = "correct"
	CountryIncorrect  CountryStatus = "incorrect"
)

const (
	MinPlayers = 2
	MaxPlayers = 4

	maxMinutes    = 24 * 60
	maxNameLength = 32
)

// Settings is the only configuration a creator chooses.
type Settings struct {
	Players    int  `json:"players"`
	Difficulty Mode `json:"difficulty"`
	Minutes    int  `json:"minutes"`
}

// Country is immutable reference data.
type Country struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CountryState struct {
	Country
	Status CountryStatus `json:"status"`
}

type Player struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Score    int          `json:"score"`
	Status   PlayerStatus `json:"status"`
	JoinedAt time.Time    `json:"joinedAt"`
	LeftAt   *time.Time   `json:"leftAt,omitempty"`
}

// Target is the single country open for answering.
type Target struct {
	CountryID string    `json:"countryId"`
	PlayerID  string    `json:"playerId"`
	Random    bool      `json:"random"`
	OpenedAt  time.Time `json:"openedAt"`
}

// Session is the aggregate root persisted as one document.
//
// Timers are stored as end timestamps only; remaining time is always derived
// from the wall clock so a reload resumes without drift.
type Session struct {
	ID         string                  `json:"id"`
	Version    int64                   `json:"version"`
	OwnerID    string                  `json:"ownerId"`
	Code       string                  `json:"code"`
	Status     Status                  `json:"status"`
	MaxPlayers int                     `json:"maxPlayers"`
	Settings   Settings                `json:"settings"`
	Players    map[string]Player       `json:"players"`
	Order      []string                `json:"order"`
	Countries  map[string]CountryState `json:"countries"`
	TurnIndex  int                     `json:"turnIndex"`
	NextAction Action                  `json:"nextAction"`
	Active     *Target                 `json:"active,omitempty"`
	WinnerID   string                  `json:"winnerId,omitempty"`

	CreatedAt    time.Time  `json:"createdAt"`
	LobbyEndsAt  *time.Time `json:"lobbyEndsAt,omitempty"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	GlobalEndsAt *time.Time `json:"globalEndsAt,omitempty"`
	TurnEndsAt   *time.Time `json:"turnEndsAt,omitempty"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	c := s
	c.Players = make(map[string]Player, len(s.Players))
	for id, p := range s.Players {
		p.LeftAt = cloneTime(p.LeftAt)
		c.Players[id] = p
	}
	c.Order = slices.Clone(s.Order)
	c.Countries = make(map[string]CountryState, len(s.Countries))
	for id, cs := range s.Countries {
		c.Countries[id] = cs
	}
	if s.Active != nil {
		a := *s.Active
		c.Active = &a
	}
	c.LobbyEndsAt = cloneTime(s.LobbyEndsAt)
	c.StartedAt = cloneTime(s.StartedAt)
	c.GlobalEndsAt = cloneTime(s.GlobalEndsAt)
	c.TurnEndsAt = cloneTime(s.TurnEndsAt)
	c.FinishedAt = cloneTime(s.FinishedAt)
	return c
}

// Validate checks the structural invariants a well-formed session keeps.
// A failure means the stored document is corrupt.
func (s Session) Validate() error {
	if s.Status.rank() < 0 || !s.Settings.Difficulty.Valid() {
		return ErrCorruptState
	}
	if len(s.Order) != len(s.Players) || len(s.Order) > s.MaxPlayers {
		return ErrCorruptState
	}
	for _, id := range s.Order {
		if _, ok := s.Players[id]; !ok {
			return ErrCorruptState
		}
	}
	if _, ok := s.Players[s.OwnerID]; !ok {
		return ErrCorruptState
	}
	if len(s.Order) > 0 && (s.TurnIndex < 0 || s.TurnIndex >= len(s.Order)) {
		return ErrCorruptState
	}
	if s.Active != nil {
		if _, ok := s.Countries[s.Active.CountryID]; !ok {
			return ErrCorruptState
		}
	}
	return nil
}

// CurrentPlayerID returns the id of the player whose turn it is.
func (s Session) CurrentPlayerID() (string, error) {
	if s.TurnIndex < 0 || s.TurnIndex >= len(s.Order) {
		return "", ErrCorruptState
	}
	return s.Order[s.TurnIndex], nil
}

// ActiveCount is the number of players that have not left.
func (s Session) ActiveCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Status != PlayerLeft {
			n++
		}
	}
	return n
}

func (s Session) hasLeft(playerID string) bool {
	p, ok := s.Players[playerID]
	return ok && p.Status == PlayerLeft
}

// Unanswered returns the ids of unanswered countries in a stable order.
func (s Session) Unanswered() []string {
	ids := make([]string, 0, len(s.Countries))
	for id, cs := range s.Countries {
		if cs.Status == CountryUnanswered {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Standings returns players in turn order.
func (s Session) Standings() []Player {
	out := make([]Player, 0, len(s.Order))
	for _, id := range s.Order {
		out = append(out, s.Players[id])
	}
	return out
}

// Winner returns the player with the strictly highest score; ties go to the
// earliest player in turn order.
func (s Session) Winner() (Player, bool) {
	var best Player
	found := false
	for _, id := range s.Order {
		p := s.Players[id]
		if !found || p.Score > best.Score {
			best, found = p, true
		}
	}
	return best, found
}

// Timers holds remaining durations derived from the stored end timestamps.
type Timers struct {
	Lobby  time.Duration
	Global time.Duration
	Turn   time.Duration
}

// Remaining derives the countdowns at now.
func (s Session) Remaining(now time.Time) Timers {
	t := Timers{
		Lobby:  remaining(s.LobbyEndsAt, now),
		Global: remaining(s.GlobalEndsAt, now),
		Turn:   remaining(s.TurnEndsAt, now),
	}
	if s.Status != StatusWaiting {
		t.Lobby = 0
	}
	if s.Status != StatusPlaying {
		t.Turn = 0
		if s.Status == StatusFinished {
			t.Global = 0
		}
	}
	return t
}

// NextDeadline is the earliest timestamp at which a timer of s fires, or nil
// when no timer is pending.
func (s Session) NextDeadline() *time.Time {
	var candidates []*time.Time
	switch s.Status {
	case StatusWaiting:
		if s.ActiveCount() >= MinPlayers {
			candidates = append(candidates, s.LobbyEndsAt)
		}
	case StatusPlaying:
		candidates = append(candidates, s.GlobalEndsAt, s.TurnEndsAt)
	}
	var next *time.Time
	for _, c := range candidates {
		if c != nil && (next == nil || c.Before(*next)) {
			next = c
		}
	}
	return cloneTime(next)
}

func remaining(end *time.Time, now time.Time) time.Duration {
	if end == nil {
		return 0
	}
	return max(0, end.Sub(now))
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func timePtr(t time.Time) *time.Time { return &t }

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeLength is the length of a join code.
const CodeLength = 6

// NewCode returns a random join code using intn as the source of randomness.
func NewCode(intn func(int) int) string {
	b := make([]byte, CodeLength)
	for i := range b {
		b[i] = codeAlphabet[intn(len(codeAlphabet))]
	}
	return string(b)
}

// NormalizeCode trims and upper-cases a user-entered join code.
func NormalizeCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != CodeLength {
		return "", ErrInvalidCode
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(codeAlphabet, code[i]) < 0 {
			return "", ErrInvalidCode
		}
	}
	return code, nil
}

// NormalizeName trims a display name and checks its length.
func NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}
