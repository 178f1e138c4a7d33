package controllers

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/musevip/musebot/internal/pkg/delivery"
)

// batchDeliverer runs the daily batch; implemented by the delivery engine.
type batchDeliverer interface {
	DeliverAll(ctx context.Context) (delivery.BatchSummary, error)
}

var cronEngine batchDeliverer

// InitializeCronController wires the batch engine.
func InitializeCronController(engine batchDeliverer) {
	cronEngine = engine
}

// HandleCronDaily runs one delivery attempt for every active subscriber.
// It is triggered by an external scheduler, protected by CRON_SECRET, and
// answers with the outcome counts.
func HandleCronDaily(c *fiber.Ctx) error {
	summary, err := cronEngine.DeliverAll(c.UserContext())
	if err != nil {
		log.Printf("daily batch failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Batch run failed"})
	}

	log.Printf("daily batch: %d attempted, %d delivered, %d already sent, %d exhausted, %d errors",
		summary.Attempted, summary.Delivered, summary.AlreadyDelivered, summary.NoContentLeft, summary.Errors)
	return c.Status(fiber.StatusOK).JSON(summary)
}
