// Package telegram wraps the Bot API for outbound sends. Inbound updates
// arrive over the webhook and are parsed by the controller.
package telegram

import (
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/musevip/musebot/internal/pkg/env"
)

// Reply-menu labels. The dispatcher matches inbound text against these,
// so keyboard and dispatcher must agree on the exact strings.
const (
	ButtonGalleries = "🎁 Galleries"
	ButtonBuyVIP    = "💎 Buy VIP"
	ButtonStatus    = "⏳ My status"
	ButtonAbout     = "ℹ️ About"
)

const welcomeText = "💋 <b>Welcome to VIP!</b>\nYour muse is awake. Tap <b>" + ButtonGalleries + "</b> to receive today's gallery 🎁"

// Bot sends messages to chats. It satisfies delivery.Sender and
// payment.Notifier.
type Bot struct {
	api *tgbotapi.BotAPI
}

// NewBotFromEnv authorizes against the Bot API with TELEGRAM_BOT_TOKEN.
func NewBotFromEnv() (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(strings.TrimSpace(env.GetEnv("TELEGRAM_BOT_TOKEN", "")))
	if err != nil {
		return nil, err
	}
	return &Bot{api: api}, nil
}

// Esc escapes untrusted text for HTML parse mode. Every interpolated
// value that did not originate in this codebase goes through it.
func Esc(s string) string {
	return html.EscapeString(s)
}

// SendText sends an HTML-formatted message with the standard reply menu.
func (b *Bot) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = menuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

// SendGalleryLink delivers one gallery URL with the link preview off.
func (b *Bot) SendGalleryLink(chatID int64, url string) error {
	msg := tgbotapi.NewMessage(chatID, "🎁 <b>Your muse today</b>:\n"+Esc(url)+" 💋")
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := b.api.Send(msg)
	return err
}

// SendWelcome sends the post-payment welcome once per activation.
func (b *Bot) SendWelcome(chatID int64) error {
	return b.SendText(chatID, welcomeText)
}

func menuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonGalleries),
			tgbotapi.NewKeyboardButton(ButtonBuyVIP),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonStatus),
			tgbotapi.NewKeyboardButton(ButtonAbout),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}
