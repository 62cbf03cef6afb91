package store

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pathakanu/payduebot/internal/dates"
	"github.com/pathakanu/payduebot/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_fk=1", name, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite memory: %v", err)
	}
	if err := db.AutoMigrate(&model.UserRecord{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return New(db)
}

func date(t *testing.T, s string) dates.Date {
	t.Helper()
	d, err := dates.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func cardNames(cards []model.Card) []string {
	names := make([]string, len(cards))
	for i, c := range cards {
		names[i] = c.Name
	}
	return names
}

func TestCardsMissingUserIsEmpty(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	cards, err := s.Cards("nobody")
	if err != nil {
		t.Fatalf("Cards: %v", err)
	}
	if len(cards) != 0 {
		t.Fatalf("expected empty list, got %+v", cards)
	}
}

func TestAddCardKeepsDueDateOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	if err := s.AddCard("user", "electricity", date(t, "2024-06-20")); err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	if err := s.AddCard("user", "rent", date(t, "2024-06-05")); err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	if err := s.AddCard("user", "water", date(t, "2024-06-12")); err != nil {
		t.Fatalf("AddCard: %v", err)
	}

	cards, err := s.Cards("user")
	if err != nil {
		t.Fatalf("Cards: %v", err)
	}
	want := []string{"rent", "water", "electricity"}
	got := cardNames(cards)
	if len(got) != len(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestDeleteCard(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	if _, err := s.DeleteCard("ghost", 0); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := s.AddCard("user", "rent", date(t, "2024-06-05")); err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	if err := s.AddCard("user", "water", date(t, "2024-06-12")); err != nil {
		t.Fatalf("AddCard: %v", err)
	}

	for _, bad := range []int{-1, 2} {
		if _, err := s.DeleteCard("user", bad); !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("index %d: expected ErrIndexOutOfRange, got %v", bad, err)
		}
	}

	name, err := s.DeleteCard("user", 0)
	if err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}
	if name != "rent" {
		t.Fatalf("deleted %q, want rent", name)
	}

	cards, err := s.Cards("user")
	if err != nil {
		t.Fatalf("Cards: %v", err)
	}
	if len(cards) != 1 || cards[0].Name != "water" {
		t.Fatalf("remaining cards = %+v", cards)
	}
}

func TestAdvanceCardRollsAndResorts(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	if err := s.AddCard("user", "rent", date(t, "2024-06-05")); err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	if err := s.AddCard("user", "water", date(t, "2024-06-12")); err != nil {
		t.Fatalf("AddCard: %v", err)
	}

	advanced, err := s.AdvanceCard("user", 0)
	if err != nil {
		t.Fatalf("AdvanceCard: %v", err)
	}
	if advanced.Name != "rent" || advanced.DueDate.String() != "2024-07-05" {
		t.Fatalf("advanced = %+v", advanced)
	}

	cards, err := s.Cards("user")
	if err != nil {
		t.Fatalf("Cards: %v", err)
	}
	want := []string{"water", "rent"}
	got := cardNames(cards)
	if got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("order after advance = %v, want %v", got, want)
	}

	if _, err := s.AdvanceCard("user", 5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestStateRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	state, pending, err := s.State("user")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state != model.StateNone || pending != "" {
		t.Fatalf("fresh user state = %q/%q", state, pending)
	}

	if err := s.SetState("user", model.StateAwaitingDay, "rent"); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	state, pending, err = s.State("user")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state != model.StateAwaitingDay || pending != "rent" {
		t.Fatalf("state = %q/%q", state, pending)
	}

	if err := s.SetState("user", model.StateNone, ""); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	state, _, err = s.State("user")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state != model.StateNone {
		t.Fatalf("state after clear = %q", state)
	}
}

func TestSaveCardsBatch(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	if err := s.AddCard("a", "rent", date(t, "2024-06-05")); err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	if err := s.AddCard("b", "water", date(t, "2024-06-12")); err != nil {
		t.Fatalf("AddCard: %v", err)
	}

	updates := map[string][]model.Card{
		"a": {
			{Name: "rent", DueDate: date(t, "2024-07-05")},
			{Name: "phone", DueDate: date(t, "2024-07-01")},
		},
	}
	if err := s.SaveCards(updates); err != nil {
		t.Fatalf("SaveCards: %v", err)
	}

	cards, err := s.Cards("a")
	if err != nil {
		t.Fatalf("Cards: %v", err)
	}
	got := cardNames(cards)
	if len(got) != 2 || got[0] != "phone" || got[1] != "rent" {
		t.Fatalf("cards for a = %v", got)
	}

	// Untouched user stays as-is.
	cards, err = s.Cards("b")
	if err != nil {
		t.Fatalf("Cards: %v", err)
	}
	if len(cards) != 1 || cards[0].Name != "water" {
		t.Fatalf("cards for b = %+v", cards)
	}
}
