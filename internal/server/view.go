package server

import (
	"sort"
	"time"

	"github.com/adamwahada/WorldMapQuiz/internal/quiz"
)

type PlayerView struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Score  int               `json:"score"`
	Status quiz.PlayerStatus `json:"status"`
	Owner  bool              `json:"owner"`
}

// CountryView hides the name of a country until it has been answered.
type CountryView struct {
	ID     string             `json:"id"`
	Name   string             `json:"name,omitempty"`
	Status quiz.CountryStatus `json:"status"`
}

type TargetView struct {
	CountryID string `json:"countryId"`
	PlayerID  string `json:"playerId"`
	Random    bool   `json:"random"`
}

type TimersView struct {
	LobbyMs  int64 `json:"lobbyMs"`
	GlobalMs int64 `json:"globalMs"`
	TurnMs   int64 `json:"turnMs"`
}

// SessionView is the snapshot every client renders. Remaining times are
// derived from the stored deadlines at the moment the view is built.
type SessionView struct {
	ID              string        `json:"id"`
	Code            string        `json:"code"`
	Version         int64         `json:"version"`
	Status          quiz.Status   `json:"status"`
	OwnerID         string        `json:"ownerId"`
	MaxPlayers      int           `json:"maxPlayers"`
	Settings        quiz.Settings `json:"settings"`
	Players         []PlayerView  `json:"players"`
	Countries       []CountryView `json:"countries"`
	Unanswered      int           `json:"unanswered"`
	CurrentPlayerID string        `json:"currentPlayerId,omitempty"`
	NextAction      quiz.Action   `json:"nextAction"`
	Active          *TargetView   `json:"active,omitempty"`
	WinnerID        string        `json:"winnerId,omitempty"`
	Timers          TimersView    `json:"timers"`
	CreatedAt       time.Time     `json:"createdAt"`
	StartedAt       *time.Time    `json:"startedAt,omitempty"`
	FinishedAt      *time.Time    `json:"finishedAt,omitempty"`
}

func newSessionView(s quiz.Session, now time.Time) SessionView {
	v := SessionView{
		ID:         s.ID,
		Code:       s.Code,
		Version:    s.Version,
		Status:     s.Status,
		OwnerID:    s.OwnerID,
		MaxPlayers: s.MaxPlayers,
		Settings:   s.Settings,
		Players:    make([]PlayerView, 0, len(s.Order)),
		Countries:  make([]CountryView, 0, len(s.Countries)),
		NextAction: s.NextAction,
		WinnerID:   s.WinnerID,
		CreatedAt:  s.CreatedAt,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}

	for _, id := range s.Order {
		p := s.Players[id]
		v.Players = append(v.Players, PlayerView{
			ID:     p.ID,
			Name:   p.Name,
			Score:  p.Score,
			Status: p.Status,
			Owner:  p.ID == s.OwnerID,
		})
	}

	for _, cs := range s.Countries {
		c := CountryView{ID: cs.ID, Status: cs.Status}
		if cs.Status != quiz.CountryUnanswered {
			c.Name = cs.Name
		} else {
			v.Unanswered++
		}
		v.Countries = append(v.Countries, c)
	}
	sort.Slice(v.Countries, func(i, j int) bool { return v.Countries[i].ID < v.Countries[j].ID })

	if s.Status == quiz.StatusPlaying {
		if cur, err := s.CurrentPlayerID(); err == nil {
			v.CurrentPlayerID = cur
		}
	}
	if s.Active != nil {
		v.Active = &TargetView{CountryID: s.Active.CountryID, PlayerID: s.Active.PlayerID, Random: s.Active.Random}
	}

	t := s.Remaining(now)
	v.Timers = TimersView{
		LobbyMs:  t.Lobby.Milliseconds(),
		GlobalMs: t.Global.Milliseconds(),
		TurnMs:   t.Turn.Milliseconds(),
	}
	return v
}
