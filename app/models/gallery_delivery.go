package models

import "time"

// GalleryDelivery records one gallery link sent to one chat. Rows are
// append-only; the (chat_id, fingerprint) set is exactly the set of links
// the chat must never receive again.
type GalleryDelivery struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ChatID      int64     `gorm:"not null;index:ux_gallery_deliveries_chat_fp,unique,priority:1" json:"chat_id"`
	Fingerprint string    `gorm:"type:char(64);not null;index:ux_gallery_deliveries_chat_fp,unique,priority:2" json:"fingerprint"`
	URL         string    `gorm:"type:varchar(2048);not null" json:"url"`
	DeliveredAt time.Time `gorm:"type:timestamp;not null" json:"delivered_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
