package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// VIPUser holds one subscriber row per Telegram chat. The chat id is the
// only key; renewing VIP rewrites the whole window and clears LastSentAt.
type VIPUser struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ChatID     int64      `gorm:"uniqueIndex;not null" json:"chat_id" validate:"required"`
	Username   string     `gorm:"type:varchar(150);default:''" json:"username" validate:"max=150"`
	VIPSince   time.Time  `gorm:"type:timestamp;not null" json:"vip_since"`
	VIPUntil   time.Time  `gorm:"type:timestamp;not null;index" json:"vip_until"`
	LastSentAt *time.Time `gorm:"type:timestamp;default:null" json:"last_sent_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *VIPUser) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// IsActive reports whether the subscription window still covers now.
// The boundary is exclusive: a user whose window ends exactly now is expired.
func (u *VIPUser) IsActive(now time.Time) bool {
	return now.Before(u.VIPUntil)
}

// SentOn reports whether the last delivery happened on the same calendar
// date as now in the given location. This is a date comparison, not a
// rolling 24h window: 23:59 and 00:01 the next day are different days.
func (u *VIPUser) SentOn(now time.Time, loc *time.Location) bool {
	if u.LastSentAt == nil {
		return false
	}
	ly, lm, ld := u.LastSentAt.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()
	return ly == ny && lm == nm && ld == nd
}

// TimeLeft returns the remaining subscription time, zero when expired.
func (u *VIPUser) TimeLeft(now time.Time) time.Duration {
	if !u.IsActive(now) {
		return 0
	}
	return u.VIPUntil.Sub(now)
}
