package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/musevip/musebot/internal/pkg/env"
)

// SharedSecretMiddleware protects machine-facing endpoints (payment
// webhook, cron trigger, admin) with a shared secret passed as the
// "secret" query parameter or the X-Webhook-Secret header. A missing
// configured secret rejects every call rather than silently opening the
// endpoint.
func SharedSecretMiddleware(envKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		expected := strings.TrimSpace(env.GetEnv(envKey, ""))
		if expected == "" {
			log.Printf("shared secret middleware: %s is not configured, rejecting", envKey)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Endpoint not configured"})
		}

		got := extractSecret(c)
		if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Invalid secret"})
		}

		return c.Next()
	}
}

func extractSecret(c *fiber.Ctx) string {
	if secret := strings.TrimSpace(c.Query("secret")); secret != "" {
		return secret
	}
	return strings.TrimSpace(c.Get("X-Webhook-Secret"))
}
