package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/musevip/musebot/app/repository"
	"github.com/musevip/musebot/internal/pkg/catalog"
	"github.com/musevip/musebot/internal/pkg/delivery"
	"github.com/musevip/musebot/internal/pkg/payment"
	"github.com/musevip/musebot/internal/pkg/telegram"
)

// messageSender is the outbound chat channel used by the dispatcher.
type messageSender interface {
	SendText(chatID int64, text string) error
	SendGalleryLink(chatID int64, url string) error
}

// deliverer runs delivery attempts; implemented by the delivery engine.
type deliverer interface {
	Deliver(ctx context.Context, chatID int64) (delivery.Result, error)
}

// checkoutCreator creates payment links; implemented by the payment client.
type checkoutCreator interface {
	CreatePreference(ctx context.Context, chatID int64, title string, price float64, currency string) (string, error)
}

var (
	botSender   messageSender
	botEngine   deliverer
	botCheckout checkoutCreator
	botStore    repository.Store
	botSource   *catalog.Source
)

// InitializeTelegramController wires the dispatcher's collaborators.
func InitializeTelegramController(sender messageSender, engine deliverer, checkout checkoutCreator, store repository.Store, source *catalog.Source) {
	botSender = sender
	botEngine = engine
	botCheckout = checkout
	botStore = store
	botSource = source
}

// HandleTelegramWebhook receives chat updates. Whatever happens inside,
// the platform gets its acknowledgement; user-visible results travel back
// through the send API.
func HandleTelegramWebhook(c *fiber.Ctx) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(c.Body(), &update); err != nil {
		log.Printf("telegram webhook: malformed update: %v", err)
		return ackJSON(c)
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		// Edited messages, callbacks and other update kinds are ignored.
		return ackJSON(c)
	}

	dispatchCommand(c.UserContext(), msg.Chat.ID, msg.Text)
	return ackJSON(c)
}

// dispatchCommand is the total mapping from inbound text to a response.
// It never returns an error to the webhook: every failure is logged and
// ends in a best-effort message to the user or silence.
func dispatchCommand(ctx context.Context, chatID int64, text string) {
	switch text {
	case telegram.ButtonGalleries:
		handleGalleries(ctx, chatID)
	case telegram.ButtonBuyVIP:
		handleBuyVIP(ctx, chatID)
	case telegram.ButtonStatus:
		handleStatus(chatID)
	case telegram.ButtonAbout:
		sendOrLog(chatID, aboutText())
	default:
		// /start and anything unrecognized both land on the menu.
		sendOrLog(chatID, menuText)
	}
}

const (
	menuText = "💄 <b>Muse VIP</b>\nDaily private galleries for subscribers.\nPick an option from the menu below 👇"

	notSubscribedText     = "🔒 Your muse sleeps until you renew VIP 💋"
	alreadyDeliveredText  = "✨ You already received today's muse. Come back tomorrow 🌙"
	noContentLeftText     = "⚠️ No new galleries yet. Please wait 🔮"
	checkoutFailedText    = "😿 The payment page is unavailable right now. Try again in a moment."
	freePreviewUpsellText = "💎 Want a new gallery every day? Tap " + telegram.ButtonBuyVIP
	statusActiveTemplate  = "💎 <b>VIP active</b>\nTime left: %s ✨"
	statusExpiredText     = "🌑 <b>VIP expired</b>\nTap " + telegram.ButtonBuyVIP + " to wake your muse again 💋"
	statusNotSubscribed   = "🌘 You are not a VIP yet.\nTap " + telegram.ButtonBuyVIP + " to begin 💄"
	checkoutMessageFormat = "💳 <b>Your VIP checkout</b>:\n%s\n\nAccess activates automatically after payment ✨"
)

// aboutText renders the about blurb with the configured window length.
func aboutText() string {
	days := int(payment.Duration().Hours()) / 24
	return fmt.Sprintf("🔮 One new gallery every day while your VIP is active.\n💎 VIP lasts %d days per payment.\n✨ The first gallery is free — tap %s to try.", days, telegram.ButtonGalleries)
}

func handleGalleries(ctx context.Context, chatID int64) {
	result, err := botEngine.Deliver(ctx, chatID)
	if err != nil {
		log.Printf("deliver for chat %d failed: %v", chatID, err)
		sendOrLog(chatID, noContentLeftText)
		return
	}

	switch result.Outcome {
	case delivery.OutcomeDelivered:
		// The engine already sent the gallery inside its transaction.
	case delivery.OutcomeAlreadyDeliveredToday:
		sendOrLog(chatID, alreadyDeliveredText)
	case delivery.OutcomeNoContentLeft:
		sendOrLog(chatID, noContentLeftText)
	case delivery.OutcomeNotSubscribed:
		handleNotSubscribed(ctx, chatID)
	}
}

// handleNotSubscribed serves the permanently repeatable free preview when
// the catalog reserves one, then the upsell.
func handleNotSubscribed(ctx context.Context, chatID int64) {
	cat, err := botSource.Load(ctx)
	if err == nil {
		if preview, ok := cat.Preview(); ok {
			if err := botSender.SendGalleryLink(chatID, preview); err != nil {
				log.Printf("free preview for chat %d failed: %v", chatID, err)
			}
			sendOrLog(chatID, freePreviewUpsellText)
			return
		}
	}
	sendOrLog(chatID, notSubscribedText)
}

func handleBuyVIP(ctx context.Context, chatID int64) {
	title := fmt.Sprintf("Muse VIP — %d days", int(payment.Duration().Hours())/24)
	checkoutURL, err := botCheckout.CreatePreference(ctx, chatID, title, payment.Price(), payment.Currency())
	if err != nil {
		log.Printf("checkout creation for chat %d failed: %v", chatID, err)
		sendOrLog(chatID, checkoutFailedText)
		return
	}
	sendOrLog(chatID, fmt.Sprintf(checkoutMessageFormat, telegram.Esc(checkoutURL)))
}

func handleStatus(chatID int64) {
	user, err := botStore.VIPUsers().GetByChatID(chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sendOrLog(chatID, statusNotSubscribed)
			return
		}
		log.Printf("status lookup for chat %d failed: %v", chatID, err)
		sendOrLog(chatID, statusNotSubscribed)
		return
	}

	if left := user.TimeLeft(timeNow()); left > 0 {
		sendOrLog(chatID, fmt.Sprintf(statusActiveTemplate, formatTimeLeft(left)))
		return
	}
	sendOrLog(chatID, statusExpiredText)
}

func sendOrLog(chatID int64, text string) {
	if err := botSender.SendText(chatID, text); err != nil {
		log.Printf("send to chat %d failed: %v", chatID, err)
	}
}
