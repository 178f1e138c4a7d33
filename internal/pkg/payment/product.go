package payment

import (
	"strconv"
	"strings"
	"time"

	"github.com/musevip/musebot/internal/pkg/env"
)

// The VIP product is configuration, not engine logic: price, currency and
// window length all come from env with the values the bot historically
// used as defaults.

func Price() float64 {
	raw := strings.TrimSpace(env.GetEnv("VIP_PRICE", "50"))
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || price <= 0 {
		return 50
	}
	return price
}

func Currency() string {
	return strings.ToUpper(strings.TrimSpace(env.GetEnv("VIP_CURRENCY", "MXN")))
}

func Duration() time.Duration {
	raw := strings.TrimSpace(env.GetEnv("VIP_DURATION_DAYS", "30"))
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

// Matches reports whether a fetched payment carries the expected amount
// and currency for the VIP product.
func Matches(amount float64, currency string) bool {
	return amount == Price() && strings.EqualFold(currency, Currency())
}
