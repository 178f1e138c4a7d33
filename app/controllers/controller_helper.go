package controllers

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/musevip/musebot/internal/pkg/mail"
)

// ackJSON is the trivial acknowledgement every webhook returns. The chat
// and payment platforms only care that we answered 200; outcomes are
// communicated to the user in-band.
func ackJSON(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// webhookBoundary is the single error boundary around external-facing
// handlers: any error is logged, optionally reported to the operator, and
// converted into the generic acknowledgement so the calling platform does
// not start a retry storm. Hard rejections (secret mismatch) happen in
// middleware before this wrapper runs.
func webhookBoundary(name string, handler func(c *fiber.Ctx) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := handler(c); err != nil {
			log.Printf("%s handler failed: %v", name, err)
			mail.NotifyOperator(
				fmt.Sprintf("musebot: %s handler failed", name),
				fmt.Sprintf("<p>Error: %s</p><p>Path: %s</p>", err.Error(), c.Path()),
			)
		}
		return ackJSON(c)
	}
}

// timeNow is swappable in tests.
var timeNow = time.Now

// formatTimeLeft renders a remaining duration as "Nd HHh" for the status
// message.
func formatTimeLeft(d time.Duration) string {
	if d <= 0 {
		return "0d 0h"
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}
