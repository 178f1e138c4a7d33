package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/musevip/musebot/internal/pkg/cache"
	"github.com/musevip/musebot/internal/pkg/database"
	"github.com/musevip/musebot/internal/pkg/env"
	"github.com/musevip/musebot/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	requireEnv("TELEGRAM_BOT_TOKEN", "DB_USER", "DB_NAME")
	database.SetupDatabase()
	cache.SetupCache()

	app := fiber.New(fiber.Config{
		AppName: "musebot",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}

// requireEnv fails fast on missing required configuration instead of
// limping into per-request failures.
func requireEnv(keys ...string) {
	for _, key := range keys {
		if env.GetEnv(key, "") == "" {
			log.Fatalf("%s is required", key)
		}
	}
}
