// Package delivery decides whether a subscriber may receive a gallery
// link right now and which one, and performs the send.
package delivery

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/musevip/musebot/app/models"
	"github.com/musevip/musebot/app/repository"
	"github.com/musevip/musebot/internal/pkg/catalog"
)

// Sender delivers one gallery link to a chat. The production
// implementation talks to the Telegram Bot API.
type Sender interface {
	SendGalleryLink(chatID int64, url string) error
}

// Outcome is the complete result space of a delivery attempt. There is no
// other state.
type Outcome int

const (
	OutcomeDelivered Outcome = iota
	OutcomeAlreadyDeliveredToday
	OutcomeNotSubscribed
	OutcomeNoContentLeft
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeAlreadyDeliveredToday:
		return "already_delivered_today"
	case OutcomeNotSubscribed:
		return "not_subscribed"
	case OutcomeNoContentLeft:
		return "no_content_left"
	default:
		return "unknown"
	}
}

// Result carries the outcome and, for OutcomeDelivered, the sent URL.
type Result struct {
	Outcome Outcome
	URL     string
}

// Engine wires the catalog, the store and the outbound sender together.
// The reference location fixes what "today" means for the once-per-day
// rule.
type Engine struct {
	store  repository.Store
	source *catalog.Source
	sender Sender
	loc    *time.Location

	// now is swappable for tests.
	now func() time.Time
}

// NewEngine builds the delivery engine. All collaborators are injected;
// the engine keeps no package-level state.
func NewEngine(store repository.Store, source *catalog.Source, sender Sender, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		store:  store,
		source: source,
		sender: sender,
		loc:    loc,
		now:    time.Now,
	}
}

// SetClock replaces the engine clock. Tests use it to cross calendar-day
// boundaries without sleeping.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// PickNext returns the first pool URL whose fingerprint is not in the
// delivered set, preserving pool order. The second return is false when
// the chat has exhausted the pool.
func PickNext(delivered map[string]struct{}, pool []string) (string, bool) {
	for _, url := range pool {
		if _, ok := delivered[catalog.Fingerprint(url)]; !ok {
			return url, true
		}
	}
	return "", false
}

// Deliver runs one delivery attempt for a chat. The eligibility check,
// the send and the bookkeeping run inside a single store transaction with
// the subscriber row locked, so a double-tap or a race with the daily
// batch cannot deliver twice.
func (e *Engine) Deliver(ctx context.Context, chatID int64) (Result, error) {
	cat, err := e.source.Load(ctx)
	if err != nil {
		// A broken source degrades to an empty pool; the subscriber gets
		// the "no content" message instead of an error.
		log.Printf("delivery: catalog load failed, treating as empty: %v", err)
	}
	return e.deliverFrom(chatID, cat)
}

func (e *Engine) deliverFrom(chatID int64, cat *catalog.Catalog) (Result, error) {
	result := Result{}
	now := e.now()

	err := e.store.Transaction(func(tx repository.Store) error {
		user, err := tx.VIPUsers().GetByChatIDForUpdate(chatID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result.Outcome = OutcomeNotSubscribed
				return nil
			}
			return err
		}
		if !user.IsActive(now) {
			result.Outcome = OutcomeNotSubscribed
			return nil
		}
		if user.SentOn(now, e.loc) {
			result.Outcome = OutcomeAlreadyDeliveredToday
			return nil
		}

		delivered, err := tx.Deliveries().FingerprintsByChatID(chatID)
		if err != nil {
			return err
		}
		url, ok := PickNext(delivered, cat.Pool())
		if !ok {
			result.Outcome = OutcomeNoContentLeft
			return nil
		}

		// Send before recording: a failed send rolls the transaction back
		// and the link stays available for the next attempt.
		if err := e.sender.SendGalleryLink(chatID, url); err != nil {
			return err
		}

		if err := tx.Deliveries().Record(&models.GalleryDelivery{
			ChatID:      chatID,
			Fingerprint: catalog.Fingerprint(url),
			URL:         url,
			DeliveredAt: now,
		}); err != nil {
			return err
		}
		if err := tx.VIPUsers().SetLastSentAt(chatID, now); err != nil {
			return err
		}

		result.Outcome = OutcomeDelivered
		result.URL = url
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}
