package payment

import (
	"context"
	"log"
	"time"

	"github.com/musevip/musebot/app/models"
	"github.com/musevip/musebot/app/repository"
)

// Notifier sends the post-activation welcome message. Failures are logged
// and never fail the activation itself.
type Notifier interface {
	SendWelcome(chatID int64) error
}

// ActivationInput is one approved payment as confirmed against the
// processor's API.
type ActivationInput struct {
	PaymentID string
	ChatID    int64
	Username  string
	Amount    float64
	Currency  string
	RawJSON   string
}

// Activator opens or renews subscription windows. It is idempotent under
// at-least-once webhook delivery: the payment_events unique index makes
// replays of the same payment id a no-op.
type Activator struct {
	store    repository.Store
	notifier Notifier
	duration time.Duration

	now func() time.Time
}

// NewActivator builds an activator with an explicit window duration.
func NewActivator(store repository.Store, notifier Notifier, duration time.Duration) *Activator {
	return &Activator{
		store:    store,
		notifier: notifier,
		duration: duration,
		now:      time.Now,
	}
}

// NewActivatorFromEnv builds an activator with the configured VIP window.
func NewActivatorFromEnv(store repository.Store, notifier Notifier) *Activator {
	return NewActivator(store, notifier, Duration())
}

// SetClock replaces the activator clock, for tests.
func (a *Activator) SetClock(now func() time.Time) {
	a.now = now
}

// Activate records the payment and (re)opens the chat's VIP window. It
// returns whether this call actually activated: false means the payment
// id was seen before; the window is not extended twice and the welcome
// message is not repeated.
//
// The dedup insert and the window upsert commit together. A failure
// rolls the event row back too, so the processor's next retry of the
// same payment id starts clean instead of hitting a dedup row for an
// activation that never happened.
func (a *Activator) Activate(ctx context.Context, in ActivationInput) (bool, error) {
	_ = ctx
	now := a.now()
	user := &models.VIPUser{
		ChatID:   in.ChatID,
		Username: in.Username,
		VIPSince: now,
		VIPUntil: now.Add(a.duration),
		// LastSentAt deliberately nil: a renewal immediately allows the
		// next delivery.
	}
	if err := user.Validate(); err != nil {
		return false, err
	}

	activated := false
	var eventID uint
	err := a.store.Transaction(func(tx repository.Store) error {
		created, stored, err := tx.PaymentEvents().CreateIfNotExists(&models.PaymentEvent{
			Provider:    models.PaymentProviderMercadoPago,
			PaymentID:   in.PaymentID,
			ChatID:      in.ChatID,
			Amount:      in.Amount,
			Currency:    in.Currency,
			Status:      models.PaymentStatusApproved,
			PayloadJSON: in.RawJSON,
		})
		if err != nil {
			return err
		}
		if !created {
			log.Printf("payment %s already processed, skipping activation", in.PaymentID)
			return nil
		}

		if err := tx.VIPUsers().Upsert(user); err != nil {
			return err
		}
		eventID = stored.ID
		activated = true
		return nil
	})
	if err != nil || !activated {
		return false, err
	}

	var welcomeErr error
	if a.notifier != nil {
		if welcomeErr = a.notifier.SendWelcome(in.ChatID); welcomeErr != nil {
			log.Printf("welcome message for chat %d failed: %v", in.ChatID, welcomeErr)
		}
	}

	a.markProcessed(eventID, welcomeErr)
	return true, nil
}

func (a *Activator) markProcessed(eventID uint, processingErr error) {
	msg := ""
	if processingErr != nil {
		msg = processingErr.Error()
	}
	if err := a.store.PaymentEvents().MarkProcessed(eventID, msg); err != nil {
		log.Printf("failed to mark payment event %d processed: %v", eventID, err)
	}
}
