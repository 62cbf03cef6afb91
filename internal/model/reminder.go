package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/pathakanu/payduebot/internal/dates"
)

// Card is one payment reminder: a display name plus the next unpaid due date.
type Card struct {
	Name    string     `json:"name"`
	DueDate dates.Date `json:"due_date"`
}

// State tags where a user is inside a multi-turn command flow.
type State string

const (
	// StateNone means no flow is in progress.
	StateNone State = ""
	// StateAwaitingName means the add flow is waiting for the item name.
	StateAwaitingName State = "awaiting_name"
	// StateAwaitingDay means the add flow is waiting for the day of month.
	StateAwaitingDay State = "awaiting_day"
	// StateAwaitingDeleteIndex means the delete flow is waiting for a list index.
	StateAwaitingDeleteIndex State = "awaiting_delete_index"
	// StateAwaitingPaidIndex means the mark-paid flow is waiting for a list index.
	StateAwaitingPaidIndex State = "awaiting_paid_index"
)

// UserRecord is one user's persisted document: their cards as a JSON array
// plus the conversation state. The whole row is rewritten on every mutation.
type UserRecord struct {
	UserID      string `gorm:"primaryKey"`
	Cards       string `gorm:"type:text;not null;default:'[]'"`
	State       State  `gorm:"type:text;not null;default:''"`
	PendingName string `gorm:"type:text;not null;default:''"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CardList decodes the cards column.
func (r *UserRecord) CardList() ([]Card, error) {
	if r.Cards == "" {
		return nil, nil
	}
	var cards []Card
	if err := json.Unmarshal([]byte(r.Cards), &cards); err != nil {
		return nil, fmt.Errorf("decode cards for %s: %w", r.UserID, err)
	}
	return cards, nil
}

// SetCards encodes cards into the cards column.
func (r *UserRecord) SetCards(cards []Card) error {
	if cards == nil {
		cards = []Card{}
	}
	encoded, err := json.Marshal(cards)
	if err != nil {
		return fmt.Errorf("encode cards for %s: %w", r.UserID, err)
	}
	r.Cards = string(encoded)
	return nil
}

// SortCards orders cards ascending by due date, keeping the existing order
// for equal dates.
func SortCards(cards []Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].DueDate.Before(cards[j].DueDate)
	})
}
