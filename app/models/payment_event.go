package models

import "time"

const (
	PaymentProviderMercadoPago = "mercadopago"

	PaymentStatusApproved = "approved"
)

// PaymentEvent stores processed payment notifications with deduplication
// metadata. The unique (provider, payment_id) index is the replay guard:
// the processor delivers webhooks at least once, activation must happen
// at most once.
type PaymentEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index:ux_payment_events_provider_payment,unique,priority:1" json:"provider"`
	PaymentID       string     `gorm:"type:varchar(191);not null;index:ux_payment_events_provider_payment,unique,priority:2" json:"payment_id"`
	ChatID          int64      `gorm:"not null;index" json:"chat_id"`
	Amount          float64    `gorm:"not null" json:"amount"`
	Currency        string     `gorm:"type:varchar(8);not null" json:"currency"`
	Status          string     `gorm:"type:varchar(32);not null" json:"status"`
	PayloadJSON     string     `gorm:"type:longtext" json:"payload_json"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
