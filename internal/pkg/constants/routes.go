package constants

// Static route constants
const (
	TelegramWebhookRoute = "/telegram/webhook"
	PaymentWebhookRoute  = "/payments/webhook"
	CronDailyRoute       = "/cron/daily"
	AdminStatusRoute     = "/admin/status"
	AdminPurgeRoute      = "/admin/purge"
	HealthRoute          = "/health"
)
