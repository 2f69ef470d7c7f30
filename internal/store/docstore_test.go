package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adamwahada/WorldMapQuiz/internal/database"
	"github.com/adamwahada/WorldMapQuiz/internal/migrations"
	"github.com/adamwahada/WorldMapQuiz/internal/quiz"
)

func newTestStore(t *testing.T) *DocStore {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.Memory)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return NewDocStore(db)
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newSession(t *testing.T, owner, code string) quiz.Session {
	t.Helper()
	m := &quiz.Machine{
		Now:          func() time.Time { return epoch },
		Intn:         func(int) int { return 0 },
		TurnDuration: 20 * time.Second,
	}
	tr, err := m.Create(owner, "Owner", quiz.Settings{Players: 2, Difficulty: quiz.ModeEasy, Minutes: 5}, 0,
		[]quiz.Country{{ID: "CA", Name: "Canada"}, {ID: "FR", Name: "France"}})
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	s := tr.Session
	s.Code = code
	return s
}

func TestCreateAndGet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	created, err := st.Create(ctx, newSession(t, "p1", "ABC123"), Quota{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected an id to be assigned")
	}
	if created.Version != 1 {
		t.Errorf("version = %d, want 1", created.Version)
	}

	got, err := st.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Code != "ABC123" || got.OwnerID != "p1" || len(got.Countries) != 2 {
		t.Errorf("unexpected session: %+v", got)
	}
	if !got.CreatedAt.Equal(epoch) {
		t.Errorf("createdAt = %v, want %v", got.CreatedAt, epoch)
	}

	byCode, err := st.GetByCode(ctx, "ABC123")
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if byCode.ID != created.ID {
		t.Errorf("GetByCode id = %s, want %s", byCode.ID, created.ID)
	}

	if _, err := st.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing: got %v, want ErrNotFound", err)
	}
	if _, err := st.GetByCode(ctx, "ZZZZZZ"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByCode missing: got %v, want ErrNotFound", err)
	}
}

func TestCreateRejectsLiveCodeCollision(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.Create(ctx, newSession(t, "p1", "ABC123"), Quota{}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := st.Create(ctx, newSession(t, "p2", "ABC123"), Quota{})
	if !errors.Is(err, ErrCodeTaken) {
		t.Fatalf("got %v, want ErrCodeTaken", err)
	}
}

func TestCreateQuota(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	q := Quota{Limit: 2, Since: epoch.Add(-24 * time.Hour)}

	for _, code := range []string{"AAAAA1", "AAAAA2"} {
		if _, err := st.Create(ctx, newSession(t, "p1", code), q); err != nil {
			t.Fatalf("Create %s: %v", code, err)
		}
	}
	if _, err := st.Create(ctx, newSession(t, "p1", "AAAAA3"), q); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("third create: got %v, want ErrQuotaExceeded", err)
	}
	if _, err := st.Create(ctx, newSession(t, "p2", "AAAAA3"), q); err != nil {
		t.Fatalf("another player is not limited: %v", err)
	}

	n, err := st.CountCreations(ctx, "p1", epoch.Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountCreations: %v", err)
	}
	if n != 2 {
		t.Errorf("creations = %d, want 2", n)
	}
	n, err = st.CountCreations(ctx, "p1", epoch)
	if err != nil {
		t.Fatalf("CountCreations: %v", err)
	}
	if n != 0 {
		t.Errorf("creations after window start = %d, want 0", n)
	}
}

func TestUpdateVersionConflict(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	s, err := st.Create(ctx, newSession(t, "p1", "ABC123"), Quota{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	first := s.Clone()
	first.Settings.Minutes = 7
	updated, err := st.Update(ctx, first)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("version = %d, want 2", updated.Version)
	}

	stale := s.Clone()
	stale.Settings.Minutes = 9
	if _, err := st.Update(ctx, stale); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale update: got %v, want ErrVersionConflict", err)
	}

	got, err := st.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Settings.Minutes != 7 || got.Version != 2 {
		t.Errorf("stored minutes=%d version=%d, want 7 and 2", got.Settings.Minutes, got.Version)
	}

	ghost := s.Clone()
	ghost.ID = "ghost"
	if _, err := st.Update(ctx, ghost); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing update: got %v, want ErrNotFound", err)
	}
}

func TestFinishedSessionReleasesCode(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	old, err := st.Create(ctx, newSession(t, "p1", "ABC123"), Quota{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	old.Status = quiz.StatusFinished
	if _, err := st.Update(ctx, old); err != nil {
		t.Fatalf("Update: %v", err)
	}

	fresh, err := st.Create(ctx, newSession(t, "p2", "ABC123"), Quota{})
	if err != nil {
		t.Fatalf("code of a finished session should be reusable: %v", err)
	}
	got, err := st.GetByCode(ctx, "ABC123")
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if got.ID != fresh.ID {
		t.Errorf("GetByCode returned %s, want the live session %s", got.ID, fresh.ID)
	}
}

func TestListDueAndLive(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	waiting, err := st.Create(ctx, newSession(t, "p1", "AAAAA1"), Quota{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	playing := newSession(t, "p2", "AAAAA2")
	playing.Status = quiz.StatusPlaying
	turnEnds := epoch.Add(20 * time.Second)
	globalEnds := epoch.Add(5 * time.Minute)
	playing.TurnEndsAt = &turnEnds
	playing.GlobalEndsAt = &globalEnds
	playing, err = st.Create(ctx, playing, Quota{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ids, err := st.ListDue(ctx, epoch.Add(10*time.Second), 10)
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("nothing should be due yet, got %v", ids)
	}

	ids, err = st.ListDue(ctx, turnEnds, 10)
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(ids) != 1 || ids[0] != playing.ID {
		t.Errorf("due = %v, want [%s]", ids, playing.ID)
	}

	live, err := st.ListLive(ctx, 10)
	if err != nil {
		t.Fatalf("ListLive: %v", err)
	}
	if len(live) != 2 {
		t.Errorf("live = %d sessions, want 2", len(live))
	}

	if err := st.Delete(ctx, waiting.ID, waiting.Version-1); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("stale delete: got %v, want ErrVersionConflict", err)
	}
	if err := st.Delete(ctx, waiting.ID, waiting.Version); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := st.Delete(ctx, waiting.ID, waiting.Version); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}
