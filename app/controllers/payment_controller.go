package controllers

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/musevip/musebot/app/models"
	"github.com/musevip/musebot/internal/pkg/payment"
)

// paymentFetcher re-fetches payment detail by id; implemented by the
// payment client.
type paymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*payment.Payment, error)
}

// paymentActivator opens subscription windows; implemented by the
// activator.
type paymentActivator interface {
	Activate(ctx context.Context, in payment.ActivationInput) (bool, error)
}

var (
	payFetcher   paymentFetcher
	payActivator paymentActivator
)

// InitializePaymentController wires the payment webhook's collaborators.
func InitializePaymentController(fetcher paymentFetcher, activator paymentActivator) {
	payFetcher = fetcher
	payActivator = activator
}

// WrapPaymentWebhook returns HandlePaymentWebhook wrapped in the shared
// webhook error boundary: failures are logged and acknowledged.
func WrapPaymentWebhook() fiber.Handler {
	return webhookBoundary("payment_webhook", HandlePaymentWebhook)
}

// notificationBody is the JSON shape of processor notifications. Only the
// payment id is read from it; everything else comes from the API fetch.
type notificationBody struct {
	Type string `json:"type"`
	Data struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// HandlePaymentWebhook processes payment notifications. The shared-secret
// middleware has already authenticated the caller; from here every
// failure is an ack-and-log, never an error surfaced to the processor.
// The notification payload is never trusted for the approval decision:
// the payment is re-fetched by id first.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	topic, paymentID := notificationPayment(c)
	if paymentID == "" {
		log.Printf("payment webhook: no payment id (topic=%q), ignoring", topic)
		return nil
	}
	if topic != "" && topic != "payment" {
		log.Printf("payment webhook: ignoring topic %q", topic)
		return nil
	}

	p, err := payFetcher.GetPayment(c.UserContext(), paymentID)
	if err != nil {
		return err
	}

	if p.Status != models.PaymentStatusApproved {
		log.Printf("payment %d has status %q, not activating", p.ID, p.Status)
		return nil
	}
	if !payment.Matches(p.TransactionAmount, p.CurrencyID) {
		log.Printf("payment %d amount mismatch: got %.2f %s", p.ID, p.TransactionAmount, p.CurrencyID)
		return nil
	}

	chatID, err := p.ChatID()
	if err != nil {
		return err
	}

	raw, _ := json.Marshal(p)
	activated, err := payActivator.Activate(c.UserContext(), payment.ActivationInput{
		PaymentID: paymentID,
		ChatID:    chatID,
		Amount:    p.TransactionAmount,
		Currency:  p.CurrencyID,
		RawJSON:   string(raw),
	})
	if err != nil {
		return err
	}
	if activated {
		log.Printf("payment %s activated VIP for chat %d", paymentID, chatID)
	}
	return nil
}

// notificationPayment extracts the topic and payment id from the request.
// The processor uses query parameters on some notification kinds and a
// JSON body on others.
func notificationPayment(c *fiber.Ctx) (topic string, paymentID string) {
	topic = strings.TrimSpace(c.Query("topic", c.Query("type")))

	if id := strings.TrimSpace(c.Query("id", c.Query("data.id"))); id != "" {
		return topic, id
	}

	var body notificationBody
	if err := json.Unmarshal(c.Body(), &body); err == nil {
		if topic == "" {
			topic = strings.TrimSpace(body.Type)
		}
		return topic, strings.TrimSpace(body.Data.ID.String())
	}
	return topic, ""
}
