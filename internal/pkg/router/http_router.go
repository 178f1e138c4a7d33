package router

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/musevip/musebot/app/controllers"
	"github.com/musevip/musebot/app/repository"
	"github.com/musevip/musebot/internal/pkg/catalog"
	"github.com/musevip/musebot/internal/pkg/constants"
	"github.com/musevip/musebot/internal/pkg/database"
	"github.com/musevip/musebot/internal/pkg/delivery"
	"github.com/musevip/musebot/internal/pkg/env"
	"github.com/musevip/musebot/internal/pkg/middleware"
	"github.com/musevip/musebot/internal/pkg/payment"
	"github.com/musevip/musebot/internal/pkg/telegram"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	factory := repository.NewFactory(database.GetDB())
	store := factory.GetStore()

	bot, err := telegram.NewBotFromEnv()
	if err != nil {
		// Without the bot token nothing in this service can answer users.
		log.Fatalf("telegram bot setup failed: %v", err)
	}

	loc, err := time.LoadLocation(env.GetEnv("BOT_TIMEZONE", "America/Mexico_City"))
	if err != nil {
		log.Fatalf("invalid BOT_TIMEZONE: %v", err)
	}

	source := catalog.NewSourceFromEnv()
	engine := delivery.NewEngine(store, source, bot, loc)
	mpClient := payment.NewClientFromEnv()
	activator := payment.NewActivatorFromEnv(store, bot)

	controllers.InitializeTelegramController(bot, engine, mpClient, store, source)
	controllers.InitializePaymentController(mpClient, activator)
	controllers.InitializeCronController(engine)
	controllers.InitializeAdminController(store)

	h.registerRoutes(app)
}

func (h HttpRouter) registerRoutes(app *fiber.App) {
	webhooks := app.Group("/", limiter.New(limiter.Config{Max: 60}))

	webhooks.Post(constants.TelegramWebhookRoute, controllers.HandleTelegramWebhook)

	paymentSecret := middleware.SharedSecretMiddleware("PAYMENT_WEBHOOK_SECRET")
	webhooks.Post(constants.PaymentWebhookRoute, paymentSecret, controllers.WrapPaymentWebhook())
	webhooks.Get(constants.PaymentWebhookRoute, paymentSecret, controllers.WrapPaymentWebhook())

	app.Post(constants.CronDailyRoute, middleware.SharedSecretMiddleware("CRON_SECRET"), controllers.HandleCronDaily)

	adminSecret := middleware.SharedSecretMiddleware("ADMIN_SECRET")
	app.Get(constants.AdminStatusRoute, adminSecret, controllers.HandleAdminStatus)
	app.Post(constants.AdminPurgeRoute, adminSecret, controllers.HandleAdminPurge)

	app.Get(constants.HealthRoute, func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
