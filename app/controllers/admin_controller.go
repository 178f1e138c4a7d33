package controllers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/musevip/musebot/app/repository"
	"github.com/musevip/musebot/internal/pkg/statistics"
)

// Subscribers whose window ended longer ago than this are eligible for
// the administrative purge.
const purgeInactivity = 365 * 24 * time.Hour

var adminStore repository.Store

// InitializeAdminController wires the admin endpoints' store.
func InitializeAdminController(store repository.Store) {
	adminStore = store
}

// HandleAdminStatus returns subscription and delivery counters. Read-only
// and protected by ADMIN_SECRET.
func HandleAdminStatus(c *fiber.Ctx) error {
	data, err := statistics.GetStatistics(adminStore)
	if err != nil {
		log.Printf("admin status failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Statistics unavailable"})
	}
	return c.Status(fiber.StatusOK).JSON(data)
}

// HandleAdminPurge deletes subscriber rows that expired more than a year
// ago. The delivery ledger is kept: a returning subscriber must still
// never receive a repeat.
func HandleAdminPurge(c *fiber.Ctx) error {
	cutoff := timeNow().Add(-purgeInactivity)
	purged, err := adminStore.VIPUsers().PurgeExpiredBefore(cutoff)
	if err != nil {
		log.Printf("admin purge failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Purge failed"})
	}

	statistics.Invalidate()
	log.Printf("admin purge removed %d subscribers expired before %s", purged, cutoff.Format(time.RFC3339))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"purged": purged})
}
