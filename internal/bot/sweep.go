package bot

import (
	"fmt"
	"strings"

	"github.com/pathakanu/payduebot/internal/dates"
	"github.com/pathakanu/payduebot/internal/model"
)

const (
	// graceDays is the slack after a due date before an unpaid card is
	// auto-rolled to the next month.
	graceDays = 1
	// lookaheadDays is the horizon within which a card appears in a
	// due notification.
	lookaheadDays = 5
)

type dueCard struct {
	name string
	due  dates.Date
}

// runSweep advances overdue cards, persists all changes in one write, and
// pushes one message per user with cards due inside the lookahead window.
func (b *Bot) runSweep() {
	today := b.today()

	records, err := b.store.AllRecords()
	if err != nil {
		b.logger.Printf("sweep: %v", err)
		return
	}

	due := make(map[string][]dueCard)
	dirty := make(map[string][]model.Card)
	order := make([]string, 0, len(records))

	for _, record := range records {
		cards, err := record.CardList()
		if err != nil {
			b.logger.Printf("sweep: %v", err)
			continue
		}

		changed := false
		for i := range cards {
			// Past the due date plus grace: roll forward unacknowledged.
			if cards[i].DueDate.DaysUntil(today) > graceDays {
				cards[i].DueDate = dates.NextMonth(cards[i].DueDate)
				changed = true
			}
			// The just-advanced date is checked too; a card whose new due
			// date is already close stays in this run's notification.
			if today.DaysUntil(cards[i].DueDate) <= lookaheadDays {
				if len(due[record.UserID]) == 0 {
					order = append(order, record.UserID)
				}
				due[record.UserID] = append(due[record.UserID], dueCard{name: cards[i].Name, due: cards[i].DueDate})
			}
		}
		if changed {
			dirty[record.UserID] = cards
		}
	}

	if err := b.store.SaveCards(dirty); err != nil {
		b.logger.Printf("sweep: persist: %v", err)
	}

	for _, userID := range order {
		message := composeDueMessage(today, due[userID])
		if err := b.messenger.SendWhatsAppMessage(userID, message); err != nil {
			b.logger.Printf("sweep: push to %s: %v", userID, err)
			continue
		}
	}
}

func composeDueMessage(today dates.Date, cards []dueCard) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, sweepHeaderFmt, len(cards))
	for _, card := range cards {
		md := card.due.Time().Format("01/02")
		remain := today.DaysUntil(card.due) + 1
		fmt.Fprintf(&sb, sweepLineFmt, card.name, md, remain)
	}
	sb.WriteString(sweepFooter)
	return sb.String()
}
