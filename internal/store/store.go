// Package store owns all access to the persisted reminder dataset. Every
// operation is a single database transaction over one user's row, so a
// read-modify-write never interleaves with another writer for the same user.
package store

import (
	"errors"
	"fmt"

	"github.com/pathakanu/payduebot/internal/dates"
	"github.com/pathakanu/payduebot/internal/model"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound is returned when an operation targets a user with no record.
	ErrUserNotFound = errors.New("user not found")
	// ErrIndexOutOfRange is returned when a card index falls outside the list.
	ErrIndexOutOfRange = errors.New("card index out of range")
)

// Store provides card and conversation-state persistence keyed by user id.
type Store struct {
	db *gorm.DB
}

// New wraps a GORM connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Cards returns a user's cards in ascending due-date order. A user with no
// record has an empty list, never an error.
func (s *Store) Cards(userID string) ([]model.Card, error) {
	record, found, err := fetchRecord(s.db, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return record.CardList()
}

// AddCard appends a card and re-sorts the list, creating the user record if
// it does not exist yet.
func (s *Store) AddCard(userID, name string, due dates.Date) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		record, found, err := fetchRecord(tx, userID)
		if err != nil {
			return err
		}
		if !found {
			record = model.UserRecord{UserID: userID}
		}

		cards, err := record.CardList()
		if err != nil {
			return err
		}
		cards = append(cards, model.Card{Name: name, DueDate: due})
		model.SortCards(cards)
		if err := record.SetCards(cards); err != nil {
			return err
		}
		return tx.Save(&record).Error
	})
}

// DeleteCard removes the card at a zero-based index and returns its name.
func (s *Store) DeleteCard(userID string, index int) (string, error) {
	var name string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		record, found, err := fetchRecord(tx, userID)
		if err != nil {
			return err
		}
		if !found {
			return ErrUserNotFound
		}

		cards, err := record.CardList()
		if err != nil {
			return err
		}
		if index < 0 || index >= len(cards) {
			return ErrIndexOutOfRange
		}
		name = cards[index].Name
		cards = append(cards[:index], cards[index+1:]...)
		if err := record.SetCards(cards); err != nil {
			return err
		}
		return tx.Save(&record).Error
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// AdvanceCard rolls the card at a zero-based index to its next monthly due
// date, re-sorts the list, and returns the updated card.
func (s *Store) AdvanceCard(userID string, index int) (model.Card, error) {
	var advanced model.Card
	err := s.db.Transaction(func(tx *gorm.DB) error {
		record, found, err := fetchRecord(tx, userID)
		if err != nil {
			return err
		}
		if !found {
			return ErrUserNotFound
		}

		cards, err := record.CardList()
		if err != nil {
			return err
		}
		if index < 0 || index >= len(cards) {
			return ErrIndexOutOfRange
		}
		cards[index].DueDate = dates.NextMonth(cards[index].DueDate)
		advanced = cards[index]
		model.SortCards(cards)
		if err := record.SetCards(cards); err != nil {
			return err
		}
		return tx.Save(&record).Error
	})
	if err != nil {
		return model.Card{}, err
	}
	return advanced, nil
}

// State returns a user's conversation state and the pending item name held
// by an in-flight add flow. A missing record reads as StateNone.
func (s *Store) State(userID string) (model.State, string, error) {
	record, found, err := fetchRecord(s.db, userID)
	if err != nil {
		return model.StateNone, "", err
	}
	if !found {
		return model.StateNone, "", nil
	}
	return record.State, record.PendingName, nil
}

// SetState stores a user's conversation state, creating the record if needed.
func (s *Store) SetState(userID string, state model.State, pendingName string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		record, found, err := fetchRecord(tx, userID)
		if err != nil {
			return err
		}
		if !found {
			record = model.UserRecord{UserID: userID}
		}
		record.State = state
		record.PendingName = pendingName
		return tx.Save(&record).Error
	})
}

// AllRecords returns every user record, for the sweep job.
func (s *Store) AllRecords() ([]model.UserRecord, error) {
	var records []model.UserRecord
	if err := s.db.Order("user_id asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return records, nil
}

// SaveCards persists replacement card lists for several users in a single
// transaction. Lists are re-sorted before writing.
func (s *Store) SaveCards(updates map[string][]model.Card) error {
	if len(updates) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for userID, cards := range updates {
			record, found, err := fetchRecord(tx, userID)
			if err != nil {
				return err
			}
			if !found {
				record = model.UserRecord{UserID: userID}
			}
			model.SortCards(cards)
			if err := record.SetCards(cards); err != nil {
				return err
			}
			if err := tx.Save(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func fetchRecord(tx *gorm.DB, userID string) (model.UserRecord, bool, error) {
	var record model.UserRecord
	err := tx.Where("user_id = ?", userID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.UserRecord{}, false, nil
	}
	if err != nil {
		return model.UserRecord{}, false, fmt.Errorf("load record %s: %w", userID, err)
	}
	return record, true, nil
}
