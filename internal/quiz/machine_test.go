package quiz

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCountries = []Country{
	{ID: "CA", Name: "Canada"},
	{ID: "FR", Name: "France"},
	{ID: "MG", Name: "Madagascar"},
	{ID: "PE", Name: "Peru"},
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMachine(t *testing.T) (*Machine, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := &Machine{
		Now:            clock.Now,
		Intn:           func(int) int { return 0 },
		TurnDuration:   DefaultTurnDuration,
		LobbyCountdown: DefaultLobbyCountdown,
	}
	return m, clock
}

// newLobby creates a session owned by "a" and joins the given extra players.
func newLobby(t *testing.T, m *Machine, mode Mode, players int, extra ...string) Session {
	t.Helper()
	tr, err := m.Create("a", "Alice", Settings{Players: players, Difficulty: mode, Minutes: 5}, 0, testCountries)
	require.NoError(t, err)
	s := tr.Session
	for _, id := range extra {
		tr, err = m.Join(s, s.Code, id, "Player "+id)
		require.NoError(t, err)
		s = tr.Session
	}
	return s
}

func newGame(t *testing.T, m *Machine, mode Mode, extra ...string) Session {
	t.Helper()
	s := newLobby(t, m, mode, 4, extra...)
	tr, err := m.Start(s, "a")
	require.NoError(t, err)
	return tr.Session
}

func TestCreate(t *testing.T) {
	m, clock := newTestMachine(t)

	tr, err := m.Create("a", "  Alice ", Settings{Difficulty: ModeEasy, Minutes: 10}, 3, testCountries)
	require.NoError(t, err)
	s := tr.Session

	assert.Equal(t, StatusWaiting, s.Status)
	assert.Equal(t, "a", s.OwnerID)
	assert.Equal(t, 3, s.MaxPlayers)
	assert.Equal(t, 3, s.Settings.Players)
	assert.Equal(t, "AAAAAA", s.Code)
	assert.Equal(t, []string{"a"}, s.Order)
	assert.Equal(t, "Alice", s.Players["a"].Name)
	assert.Equal(t, clock.t, s.CreatedAt)
	assert.Len(t, s.Countries, len(testCountries))
	for _, cs := range s.Countries {
		assert.Equal(t, CountryUnanswered, cs.Status)
	}
	assert.Nil(t, s.GlobalEndsAt)
	assert.Nil(t, s.LobbyEndsAt)
	assert.Equal(t, []Effect{{Type: EffectCreated, PlayerID: "a"}}, tr.Effects)
}

func TestCreateRejectsInvalidSettings(t *testing.T) {
	m, _ := newTestMachine(t)

	tests := []struct {
		name       string
		owner      string
		ownerName  string
		settings   Settings
		maxPlayers int
		countries  []Country
		wantErr    error
	}{
		{"no owner", "", "Alice", Settings{Players: 2, Difficulty: ModeEasy, Minutes: 5}, 0, testCountries, ErrForbidden},
		{"blank name", "a", "   ", Settings{Players: 2, Difficulty: ModeEasy, Minutes: 5}, 0, testCountries, ErrInvalidName},
		{"one player", "a", "Alice", Settings{Players: 1, Difficulty: ModeEasy, Minutes: 5}, 0, testCountries, ErrInvalidSettings},
		{"five players", "a", "Alice", Settings{Difficulty: ModeEasy, Minutes: 5}, 5, testCountries, ErrInvalidSettings},
		{"players mismatch", "a", "Alice", Settings{Players: 2, Difficulty: ModeEasy, Minutes: 5}, 3, testCountries, ErrInvalidSettings},
		{"zero minutes", "a", "Alice", Settings{Players: 2, Difficulty: ModeEasy}, 0, testCountries, ErrInvalidSettings},
		{"unknown mode", "a", "Alice", Settings{Players: 2, Difficulty: "insane", Minutes: 5}, 0, testCountries, ErrInvalidSettings},
		{"no countries", "a", "Alice", Settings{Players: 2, Difficulty: ModeEasy, Minutes: 5}, 0, nil, ErrInvalidSettings},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Create(tt.owner, tt.ownerName, tt.settings, tt.maxPlayers, tt.countries)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestJoin(t *testing.T) {
	m, clock := newTestMachine(t)
	s := newLobby(t, m, ModeEasy, 3)

	tr, err := m.Join(s, " aaaaaa ", "b", "Bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tr.Session.Order)
	assert.Equal(t, []Effect{{Type: EffectJoined, PlayerID: "b"}, {Type: EffectLobbyArmed}}, tr.Effects)
	require.NotNil(t, tr.Session.LobbyEndsAt)
	assert.Equal(t, clock.t.Add(DefaultLobbyCountdown), *tr.Session.LobbyEndsAt)
	assert.Len(t, s.Order, 1, "input session must not change")

	armed := *tr.Session.LobbyEndsAt
	clock.Advance(time.Minute)
	tr, err = m.Join(tr.Session, "AAAAAA", "c", "Cleo")
	require.NoError(t, err)
	assert.Equal(t, armed, *tr.Session.LobbyEndsAt, "lobby countdown is armed once")
}

func TestJoinRejections(t *testing.T) {
	m, _ := newTestMachine(t)
	lobby := newLobby(t, m, ModeEasy, 2, "b")

	started, err := m.Start(lobby, "a")
	require.NoError(t, err)

	left, err := m.RemovePlayer(lobby, "b", "b")
	require.NoError(t, err)

	tests := []struct {
		name    string
		s       Session
		code    string
		player  string
		wantErr error
	}{
		{"malformed code", lobby, "AB", "c", ErrInvalidCode},
		{"other session", lobby, "ZZZZZZ", "c", ErrSessionNotFound},
		{"status before membership", started.Session, "AAAAAA", "b", ErrNotJoinable},
		{"status before capacity", started.Session, "AAAAAA", "c", ErrNotJoinable},
		{"already joined before capacity", lobby, "AAAAAA", "b", ErrAlreadyJoined},
		{"full", lobby, "AAAAAA", "c", ErrRoomFull},
		{"left players keep their seat", left.Session, "AAAAAA", "c", ErrRoomFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Join(tt.s, tt.code, tt.player, "Someone")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestStart(t *testing.T) {
	m, clock := newTestMachine(t)
	lobby := newLobby(t, m, ModeHard, 4)

	_, err := m.Start(lobby, "a")
	assert.ErrorIs(t, err, ErrInsufficientPlayers)

	tr, err := m.Join(lobby, lobby.Code, "b", "Bob")
	require.NoError(t, err)
	lobby = tr.Session

	_, err = m.Start(lobby, "b")
	assert.ErrorIs(t, err, ErrNotOwner)

	tr, err = m.Start(lobby, "a")
	require.NoError(t, err)
	s := tr.Session
	assert.Equal(t, StatusPlaying, s.Status)
	assert.Equal(t, 0, s.TurnIndex)
	assert.Equal(t, ActionRandom, s.NextAction)
	assert.Equal(t, clock.t.Add(5*time.Minute), *s.GlobalEndsAt)
	assert.Equal(t, clock.t.Add(DefaultTurnDuration), *s.TurnEndsAt)

	_, err = m.Start(s, "a")
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestFuzzyAnswerScoresTwo(t *testing.T) {
	m, _ := newTestMachine(t)
	s := newGame(t, m, ModeEasy, "b")

	tr, err := m.Pick(s, "a", "CA")
	require.NoError(t, err)
	require.NotNil(t, tr.Session.Active)
	assert.False(t, tr.Session.Active.Random)

	tr, err = m.Submit(tr.Session, "a", "CA", "canda")
	require.NoError(t, err)
	out, ok := tr.Outcome()
	require.True(t, ok)
	assert.Equal(t, Outcome{Kind: OutcomeFuzzy, CountryID: "CA", Points: 2, Distance: 1}, out)

	s = tr.Session
	assert.Equal(t, 2, s.Players["a"].Score)
	assert.Equal(t, CountryCorrect, s.Countries["CA"].Status)
	assert.Nil(t, s.Active)
	assert.Equal(t, 1, s.TurnIndex, "turn passes to the next player")
	assert.Equal(t, ActionPick, s.NextAction)
}

func TestWrongAnswerRevealsName(t *testing.T) {
	m, _ := newTestMachine(t)
	s := newGame(t, m, ModeEasy, "b")

	tr, err := m.Pick(s, "a", "PE")
	require.NoError(t, err)
	tr, err = m.Submit(tr.Session, "a", "", "pure")
	require.NoError(t, err)

	out, _ := tr.Outcome()
	assert.Equal(t, OutcomeWrong, out.Kind)
	assert.Equal(t, 0, out.Points)
	assert.Equal(t, "Peru", out.CorrectName)
	assert.Equal(t, CountryIncorrect, tr.Session.Countries["PE"].Status)
	assert.Equal(t, 0, tr.Session.Players["a"].Score)
}

func TestHardModeRequiresDice(t *testing.T) {
	m, _ := newTestMachine(t)
	s := newGame(t, m, ModeHard, "b")

	_, err := m.Pick(s, "a", "CA")
	assert.ErrorIs(t, err, ErrDiceRequired)

	tr, err := m.Roll(s, "a")
	require.NoError(t, err)
	drawn, ok := tr.Drawn()
	require.True(t, ok)
	assert.Equal(t, "CA", drawn, "intn(0) draws the first unanswered country in id order")
	require.NotNil(t, tr.Session.Active)
	assert.True(t, tr.Session.Active.Random)
	s = tr.Session

	_, err = m.Pick(s, "a", "FR")
	assert.ErrorIs(t, err, ErrLockViolation)

	_, err = m.Roll(s, "a")
	assert.ErrorIs(t, err, ErrLockViolation)

	same, err := m.Pick(s, "a", "CA")
	require.NoError(t, err)
	assert.False(t, same.Changed())

	tr, err = m.Submit(s, "a", "CA", "Canada")
	require.NoError(t, err)
	out, _ := tr.Outcome()
	assert.Equal(t, OutcomeExact, out.Kind)
	assert.Equal(t, 3, tr.Session.Players["a"].Score)
	assert.Equal(t, ActionRandom, tr.Session.NextAction)

	_, err = m.Pick(tr.Session, "b", "FR")
	assert.ErrorIs(t, err, ErrDiceRequired)
}

func TestMediumModeAlternates(t *testing.T) {
	m, _ := newTestMachine(t)
	s := newGame(t, m, ModeMedium, "b")
	require.Equal(t, ActionPick, s.NextAction)

	_, err := m.Roll(s, "a")
	assert.ErrorIs(t, err, ErrPickRequired)

	players := []string{"a", "b"}
	for turn := 0; turn < 6; turn++ {
		want := ActionPick
		if turn%2 == 1 {
			want = ActionRandom
		}
		assert.Equal(t, want, s.NextAction, "turn %d", turn)

		tr, err := m.Skip(s, players[turn%2])
		require.NoError(t, err)
		s = tr.Session
	}

	_, err = m.Pick(s, "a", "CA")
	require.NoError(t, err, "after an even number of turns the policy is back to pick")

	s.NextAction = ActionRandom
	_, err = m.Pick(s, "a", "CA")
	assert.ErrorIs(t, err, ErrDiceRequired)
}

func TestSubmitTwiceIsRejected(t *testing.T) {
	m, _ := newTestMachine(t)
	s := newGame(t, m, ModeEasy, "b")

	tr, err := m.Pick(s, "a", "FR")
	require.NoError(t, err)
	first, err := m.Submit(tr.Session, "a", "FR", "France")
	require.NoError(t, err)

	_, err = m.Submit(first.Session, "a", "FR", "France")
	assert.ErrorIs(t, err, ErrAlreadyAnswered)
	assert.Equal(t, 3, first.Session.Players["a"].Score)

	// A second player replaying the stale snapshot is not their turn.
	_, err = m.Submit(tr.Session, "b", "FR", "France")
	assert.ErrorIs(t, err, ErrNotYourTurn)
}

func TestSubmitRejections(t *testing.T) {
	m, _ := newTestMachine(t)
	s := newGame(t, m, ModeEasy, "b")

	_, err := m.Submit(s, "a", "", "Canada")
	assert.ErrorIs(t, err, ErrNoActiveTarget)

	tr, err := m.Pick(s, "a", "CA")
	require.NoError(t, err)

	_, err = m.Submit(tr.Session, "a", "", "   ")
	assert.ErrorIs(t, err, ErrEmptyAnswer)

	_, err = m.Submit(tr.Session, "b", "", "Canada")
	assert.ErrorIs(t, err, ErrNotYourTurn)

	_, err = m.Submit(tr.Session, "a", "FR", "France")
	assert.ErrorIs(t, err, ErrLockViolation)

	_, err = m.Submit(tr.Session, "z", "", "Canada")
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	lobby := newLobby(t, m, ModeEasy, 2, "b")
	_, err = m.Submit(lobby, "a", "", "Canada")
	assert.ErrorIs(t, err, ErrNotPlaying)
}

func TestPickRejections(t *testing.T) {
	m, _ := newTestMachine(t)
	s := newGame(t, m, ModeEasy, "b")

	_, err := m.Pick(s, "b", "CA")
	assert.ErrorIs(t, err, ErrNotYourTurn)

	_, err = m.Pick(s, "a", "XX")
	assert.ErrorIs(t, err, ErrUnknownCountry)

	tr, err := m.Pick(s, "a", "CA")
	require.NoError(t, err)
	_, err = m.Pick(tr.Session, "a", "FR")
	assert.ErrorIs(t, err, ErrLockViolation)

	tr, err = m.Submit(tr.Session, "a", "", "Canada")
	require.NoError(t, err)
	_, err = m.Pick(tr.Session, "b", "CA")
	assert.ErrorIs(t, err, ErrAlreadyAnswered)
}

func TestRollWithNothingLeft(t *testing.T) {
	m, _ := newTestMachine(t)
	s := newGame(t, m, ModeHard, "b")
	for id, cs := range s.Countries {
		cs.Status = CountryIncorrect
		s.Countries[id] = cs
	}
	_, err := m.Roll(s, "a")
	assert.ErrorIs(t, err, ErrNoCountriesLeft)
}

func TestSkipReturnsCountryToPool(t *testing.T) {
	m, _ := newTestMachine(t)
	s := newGame(t, m, ModeEasy, "b")

	tr, err := m.Pick(s, "a", "MG")
	require.NoError(t, err)
	tr, err = m.Skip(tr.Session, "a")
	require.NoError(t, err)

	assert.Equal(t, []Effect{{Type: EffectSkipped, PlayerID: "a", CountryID: "MG"}}, tr.Effects)
	assert.Equal(t, CountryUnanswered, tr.Session.Countries["MG"].Status)
	assert.Nil(t, tr.Session.Active)
	assert.Equal(t, 1, tr.Session.TurnIndex)
}

func TestTickTurnTimesOut(t *testing.T) {
	m, clock := newTestMachine(t)
	s := newGame(t, m, ModeEasy, "b")

	tr, err := m.Pick(s, "a", "CA")
	require.NoError(t, err)
	s = tr.Session

	clock.Advance(DefaultTurnDuration - time.Second)
	tr, err = m.TickTurn(s, clock.Now())
	require.NoError(t, err)
	assert.False(t, tr.Changed())

	clock.Advance(time.Second)
	tr, err = m.TickTurn(s, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, []Effect{{Type: EffectTimedOut, PlayerID: "a", CountryID: "CA"}}, tr.Effects)
	s = tr.Session
	assert.Equal(t, PlayerIdle, s.Players["a"].Status)
	assert.Equal(t, CountryUnanswered, s.Countries["CA"].Status)
	assert.Equal(t, 1, s.TurnIndex)
	assert.Equal(t, clock.t.Add(DefaultTurnDuration), *s.TurnEndsAt)

	tr, err = m.Skip(s, "b")
	require.NoError(t, err)
	tr, err = m.Pick(tr.Session, "a", "FR")
	require.NoError(t, err)
	assert.Equal(t, PlayerActive, tr.Session.Players["a"].Status, "acting again clears idle")
}

func TestTickGlobalPicksWinner(t *testing.T) {
	m, clock := newTestMachine(t)
	s := newGame(t, m, ModeEasy, "b", "c")
	for id, score := range map[string]int{"a": 9, "b": 12, "c": 12} {
		p := s.Players[id]
		p.Score = score
		s.Players[id] = p
	}

	tr := m.TickGlobal(s, clock.Now())
	assert.False(t, tr.Changed())

	clock.Advance(5 * time.Minute)
	tr = m.TickGlobal(s, clock.Now())
	assert.Equal(t, []Effect{{Type: EffectFinished, WinnerID: "b"}}, tr.Effects)
	assert.Equal(t, StatusFinished, tr.Session.Status)
	assert.Equal(t, "b", tr.Session.WinnerID)
	assert.Nil(t, tr.Session.TurnEndsAt)

	_, err := m.Pick(tr.Session, "b", "CA")
	assert.ErrorIs(t, err, ErrFinished)
}

func TestTickLobbyAutoStarts(t *testing.T) {
	m, clock := newTestMachine(t)
	s := newLobby(t, m, ModeEasy, 3, "b")

	clock.Advance(DefaultLobbyCountdown)
	tr := m.TickLobby(s, clock.Now())
	assert.Equal(t, []Effect{{Type: EffectStarted}}, tr.Effects)
	assert.Equal(t, StatusPlaying, tr.Session.Status)
	assert.Equal(t, clock.t.Add(5*time.Minute), *tr.Session.GlobalEndsAt)
}

func TestLeavingLobbyDisarmsCountdown(t *testing.T) {
	m, clock := newTestMachine(t)
	s := newLobby(t, m, ModeEasy, 3, "b")
	require.NotNil(t, s.LobbyEndsAt)

	tr, err := m.RemovePlayer(s, "b", "b")
	require.NoError(t, err)
	assert.Nil(t, tr.Session.LobbyEndsAt)
	assert.Nil(t, tr.Session.NextDeadline())

	clock.Advance(DefaultLobbyCountdown)
	assert.False(t, m.TickLobby(tr.Session, clock.Now()).Changed())
}

func TestGameFinishesWhenAllAnswered(t *testing.T) {
	m, _ := newTestMachine(t)
	s := newGame(t, m, ModeEasy, "b")

	players := []string{"a", "b"}
	for i, c := range testCountries {
		p := players[i%2]
		tr, err := m.Pick(s, p, c.ID)
		require.NoError(t, err)
		tr, err = m.Submit(tr.Session, p, c.ID, c.Name)
		require.NoError(t, err)
		s = tr.Session
	}
	assert.Equal(t, StatusFinished, s.Status)
	assert.Equal(t, "a", s.WinnerID, "6 points each, ties go to the first player")
}

func TestRemovePlayer(t *testing.T) {
	m, _ := newTestMachine(t)
	s := newGame(t, m, ModeEasy, "b", "c")

	_, err := m.RemovePlayer(s, "b", "c")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = m.RemovePlayer(s, "a", "z")
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	tr, err := m.Pick(s, "a", "CA")
	require.NoError(t, err)

	// The owner leaving on their own turn forfeits it.
	tr, err = m.RemovePlayer(tr.Session, "a", "a")
	require.NoError(t, err)
	s = tr.Session
	assert.Equal(t, PlayerLeft, s.Players["a"].Status)
	assert.NotNil(t, s.Players["a"].LeftAt)
	assert.Equal(t, 1, s.TurnIndex)
	assert.Nil(t, s.Active)
	assert.Equal(t, CountryUnanswered, s.Countries["CA"].Status)

	_, err = m.RemovePlayer(s, "a", "a")
	assert.ErrorIs(t, err, ErrAlreadyLeft)

	_, err = m.RemovePlayer(s, "a", "c")
	assert.ErrorIs(t, err, ErrForbidden, "leaving drops owner rights")

	tr, err = m.RemovePlayer(s, "c", "c")
	require.NoError(t, err)
	s = tr.Session

	tr, err = m.Skip(s, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Session.TurnIndex, "rotation skips players who left")

	_, err = m.Pick(tr.Session, "a", "FR")
	assert.ErrorIs(t, err, ErrForbidden)

	tr, err = m.RemovePlayer(tr.Session, "b", "b")
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, tr.Session.Status, "a game with nobody left ends")
}

func TestDelete(t *testing.T) {
	m, _ := newTestMachine(t)
	lobby := newLobby(t, m, ModeEasy, 2, "b")

	assert.ErrorIs(t, m.Delete(lobby, "b"), ErrForbidden)
	assert.NoError(t, m.Delete(lobby, "a"))

	tr, err := m.Start(lobby, "a")
	require.NoError(t, err)
	assert.ErrorIs(t, m.Delete(tr.Session, "a"), ErrNotDeletable)
}

func TestOwnerWhoLeftLosesOwnerRights(t *testing.T) {
	m, _ := newTestMachine(t)
	lobby := newLobby(t, m, ModeEasy, 3, "b", "c")

	tr, err := m.RemovePlayer(lobby, "a", "a")
	require.NoError(t, err)
	s := tr.Session
	require.Equal(t, PlayerLeft, s.Players["a"].Status)

	_, err = m.RemovePlayer(s, "a", "b")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = m.Start(s, "a")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, m.Delete(s, "a"), ErrForbidden)

	assert.Equal(t, StatusWaiting, s.Status)
	assert.Equal(t, PlayerActive, s.Players["b"].Status)
}

func TestAdvanceStatusNeverRegresses(t *testing.T) {
	m, clock := newTestMachine(t)
	s := newLobby(t, m, ModeMedium, 3, "b", "c")

	prev := s.Status
	for step := 0; step < 50; step++ {
		clock.Advance(15 * time.Second)
		tr, err := m.Advance(s, clock.Now())
		require.NoError(t, err)
		s = tr.Session
		assert.False(t, s.Status.Before(prev), "status went from %s to %s", prev, s.Status)
		prev = s.Status
		require.NoError(t, s.Validate())
	}
	assert.Equal(t, StatusPlaying, s.Status)

	clock.Advance(5 * time.Minute)
	tr, err := m.Advance(s, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, tr.Session.Status)
	assert.Len(t, tr.Effects, 1, "a finished game does not also time out the turn")
}

func TestOperationsDoNotMutateInput(t *testing.T) {
	m, _ := newTestMachine(t)
	s := newGame(t, m, ModeEasy, "b")
	before, err := json.Marshal(s)
	require.NoError(t, err)

	tr, err := m.Pick(s, "a", "CA")
	require.NoError(t, err)
	_, err = m.Submit(tr.Session, "a", "CA", "Canada")
	require.NoError(t, err)
	_, err = m.RemovePlayer(s, "b", "b")
	require.NoError(t, err)

	after, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestRemainingSurvivesReload(t *testing.T) {
	m, clock := newTestMachine(t)
	s := newGame(t, m, ModeEasy, "b")
	clock.Advance(7 * time.Second)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	var loaded Session
	require.NoError(t, json.Unmarshal(data, &loaded))

	want := Timers{Global: 5*time.Minute - 7*time.Second, Turn: 13 * time.Second}
	assert.Equal(t, want, s.Remaining(clock.Now()))
	assert.Equal(t, want, loaded.Remaining(clock.Now()))

	clock.Advance(time.Hour)
	assert.Equal(t, Timers{}, loaded.Remaining(clock.Now()), "remaining time never goes negative")
}

func TestValidateDetectsCorruption(t *testing.T) {
	m, _ := newTestMachine(t)
	s := newGame(t, m, ModeEasy, "b")
	require.NoError(t, s.Validate())

	s.TurnIndex = 7
	assert.ErrorIs(t, s.Validate(), ErrCorruptState)
	_, err := m.Pick(s, "a", "CA")
	assert.ErrorIs(t, err, ErrCorruptState)
	assert.True(t, Resync(err))
}
