package bot

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pathakanu/payduebot/internal/config"
	"github.com/pathakanu/payduebot/internal/dates"
	"github.com/pathakanu/payduebot/internal/model"
	"github.com/pathakanu/payduebot/internal/store"
	"github.com/robfig/cron/v3"
)

// ChatClient answers free-form messages that match no command.
type ChatClient interface {
	SendMessage(ctx context.Context, userID, message string) (string, error)
}

// Messenger delivers outbound pushes and verifies inbound webhook signatures.
type Messenger interface {
	SendWhatsAppMessage(to, body string) error
	ValidateSignature(url string, params map[string]string, signature string) bool
}

// Bot coordinates the command interpreter, the chat model, and the due sweep.
type Bot struct {
	cfg       *config.Config
	store     *store.Store
	chat      ChatClient
	messenger Messenger
	cron      *cron.Cron
	logger    *log.Logger
	now       func() time.Time
}

// New creates a fully configured Bot instance.
func New(cfg *config.Config, st *store.Store, chat ChatClient, messenger Messenger, logger *log.Logger) *Bot {
	return &Bot{
		cfg:       cfg,
		store:     st,
		chat:      chat,
		messenger: messenger,
		cron:      cron.New(cron.WithLocation(cfg.LocalTimezone)),
		logger:    logger,
		now:       time.Now,
	}
}

// StartScheduler registers the due sweep and starts the scheduler loop.
func (b *Bot) StartScheduler() error {
	_, err := b.cron.AddFunc(b.cfg.SweepCron, func() {
		b.runSweep()
	})
	if err != nil {
		return err
	}
	b.cron.Start()
	return nil
}

// StopScheduler stops the cron scheduler gracefully.
func (b *Bot) StopScheduler() {
	if b.cron == nil {
		return
	}
	ctx := b.cron.Stop()
	<-ctx.Done()
}

// Handler returns the HTTP handler for incoming Twilio messages.
func (b *Bot) Handler() http.HandlerFunc {
	return b.handleIncomingMessage
}

// handleIncomingMessage processes Twilio webhook POST requests.
func (b *Bot) handleIncomingMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		b.logger.Printf("webhook: parse error: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if b.cfg.TwilioAuthToken != "" {
		params := make(map[string]string, len(r.PostForm))
		for key, values := range r.PostForm {
			if len(values) > 0 {
				params[key] = values[0]
			}
		}
		url := b.cfg.WebhookBaseURL + r.URL.RequestURI()
		signature := r.Header.Get("X-Twilio-Signature")
		if !b.messenger.ValidateSignature(url, params, signature) {
			b.logger.Printf("webhook: invalid signature from %s", r.RemoteAddr)
			http.Error(w, "invalid signature", http.StatusForbidden)
			return
		}
	}

	from := r.FormValue("From")
	body := strings.TrimSpace(r.FormValue("Body"))
	if from == "" || body == "" {
		b.writeTwilioResponse(w, msgNeedText)
		return
	}

	userID := sanitizeWhatsAppNumber(from)
	b.writeTwilioResponse(w, b.handleText(r.Context(), userID, body))
}

// handleText runs one turn of the per-user command state machine and returns
// the reply. Command keywords pre-empt whatever flow is in progress.
func (b *Bot) handleText(ctx context.Context, userID, text string) string {
	switch text {
	case cmdAddCard:
		if err := b.store.SetState(userID, model.StateAwaitingName, ""); err != nil {
			b.logger.Printf("set state: user %s: %v", userID, err)
			return msgOperationFailed
		}
		return msgAskName
	case cmdListCards:
		if err := b.store.SetState(userID, model.StateNone, ""); err != nil {
			b.logger.Printf("set state: user %s: %v", userID, err)
			return msgOperationFailed
		}
		return b.formatCards(userID)
	case cmdDeleteCard:
		if err := b.store.SetState(userID, model.StateAwaitingDeleteIndex, ""); err != nil {
			b.logger.Printf("set state: user %s: %v", userID, err)
			return msgOperationFailed
		}
		return msgAskDeleteIndex + "\n" + b.formatCards(userID)
	case cmdMarkPaid:
		if err := b.store.SetState(userID, model.StateAwaitingPaidIndex, ""); err != nil {
			b.logger.Printf("set state: user %s: %v", userID, err)
			return msgOperationFailed
		}
		return msgAskPaidIndex + "\n" + b.formatCards(userID)
	}

	state, pendingName, err := b.store.State(userID)
	if err != nil {
		b.logger.Printf("get state: user %s: %v", userID, err)
		return msgOperationFailed
	}

	switch state {
	case model.StateAwaitingName:
		if err := b.store.SetState(userID, model.StateAwaitingDay, text); err != nil {
			b.logger.Printf("set state: user %s: %v", userID, err)
			return msgOperationFailed
		}
		return fmt.Sprintf(msgAskDayFmt, text)

	case model.StateAwaitingDay:
		day, ok := parseDayOfMonth(text)
		if !ok {
			// State stays put so the user can retry the day.
			return msgBadDay
		}
		due := dates.ForDayOfMonth(b.today(), day)
		if err := b.store.AddCard(userID, pendingName, due); err != nil {
			b.logger.Printf("add card: user %s: %v", userID, err)
			return msgOperationFailed
		}
		if err := b.store.SetState(userID, model.StateNone, ""); err != nil {
			b.logger.Printf("set state: user %s: %v", userID, err)
		}
		return fmt.Sprintf(msgAddedFmt, pendingName, due)

	case model.StateAwaitingDeleteIndex:
		return b.finishDelete(userID, text)

	case model.StateAwaitingPaidIndex:
		return b.finishMarkPaid(userID, text)
	}

	if text == cmdHelp {
		return msgHelp
	}

	reply, err := b.chat.SendMessage(ctx, userID, text)
	if err != nil {
		b.logger.Printf("chat: user %s: %v", userID, err)
		return msgChatUnavailable
	}
	return reply
}

func (b *Bot) finishDelete(userID, text string) string {
	if err := b.store.SetState(userID, model.StateNone, ""); err != nil {
		b.logger.Printf("set state: user %s: %v", userID, err)
		return msgOperationFailed
	}

	index, ok := parseIndex(text)
	if !ok {
		return msgBadIndex
	}

	name, err := b.store.DeleteCard(userID, index-1)
	if err != nil {
		if !errors.Is(err, store.ErrIndexOutOfRange) && !errors.Is(err, store.ErrUserNotFound) {
			b.logger.Printf("delete card: user %s: %v", userID, err)
		}
		return msgOperationFailed
	}
	return fmt.Sprintf(msgDeletedFmt, name)
}

func (b *Bot) finishMarkPaid(userID, text string) string {
	if err := b.store.SetState(userID, model.StateNone, ""); err != nil {
		b.logger.Printf("set state: user %s: %v", userID, err)
		return msgOperationFailed
	}

	index, ok := parseIndex(text)
	if !ok {
		return msgBadIndex
	}

	card, err := b.store.AdvanceCard(userID, index-1)
	if err != nil {
		if !errors.Is(err, store.ErrIndexOutOfRange) && !errors.Is(err, store.ErrUserNotFound) {
			b.logger.Printf("advance card: user %s: %v", userID, err)
		}
		return msgOperationFailed
	}
	return fmt.Sprintf(msgPaidFmt, card.Name, card.DueDate)
}

// formatCards renders a user's list as numbered "name - date" lines.
func (b *Bot) formatCards(userID string) string {
	cards, err := b.store.Cards(userID)
	if err != nil {
		b.logger.Printf("list cards: user %s: %v", userID, err)
		return msgOperationFailed
	}
	return formatCardList(cards)
}

func formatCardList(cards []model.Card) string {
	if len(cards) == 0 {
		return msgEmptyList
	}
	var sb strings.Builder
	for i, card := range cards {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d. %s - %s", i+1, card.Name, card.DueDate)
	}
	return sb.String()
}

func (b *Bot) today() dates.Date {
	return dates.FromTime(b.now().In(b.cfg.LocalTimezone))
}

func (b *Bot) writeTwilioResponse(w http.ResponseWriter, message string) {
	twiml := struct {
		XMLName xml.Name `xml:"Response"`
		Message string   `xml:"Message"`
	}{
		Message: message,
	}

	w.Header().Set("Content-Type", "application/xml")
	if err := xml.NewEncoder(w).Encode(twiml); err != nil {
		b.logger.Printf("twilio response encode: %v", err)
	}
}

// parseDayOfMonth accepts 1-31; anything else is a format error.
func parseDayOfMonth(text string) (int, bool) {
	day, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || day < 1 || day > 31 {
		return 0, false
	}
	return day, true
}

// parseIndex accepts any integer; range checks happen against the list.
func parseIndex(text string) (int, bool) {
	index, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, false
	}
	return index, true
}

func sanitizeWhatsAppNumber(from string) string {
	// Twilio prepends whatsapp: to the number.
	return strings.TrimPrefix(from, "whatsapp:")
}
