package repository

import (
	"time"

	"github.com/musevip/musebot/app/models"
)

// VIPUserRepository defines the database operations on subscriber rows.
type VIPUserRepository interface {
	GetByChatID(chatID int64) (*models.VIPUser, error)
	// GetByChatIDForUpdate behaves like GetByChatID but takes a row lock
	// when called inside Store.Transaction.
	GetByChatIDForUpdate(chatID int64) (*models.VIPUser, error)
	Upsert(user *models.VIPUser) error
	SetLastSentAt(chatID int64, at time.Time) error
	ListActive(now time.Time) ([]models.VIPUser, error)
	CountActive(now time.Time) (int64, error)
	CountExpired(now time.Time) (int64, error)
	PurgeExpiredBefore(cutoff time.Time) (int64, error)
}

// DeliveryRepository defines the append-only gallery delivery ledger.
type DeliveryRepository interface {
	Record(delivery *models.GalleryDelivery) error
	FingerprintsByChatID(chatID int64) (map[string]struct{}, error)
	Count() (int64, error)
	CountByChatID(chatID int64) (int64, error)
}

// PaymentEventRepository defines idempotent payment notification storage.
type PaymentEventRepository interface {
	// CreateIfNotExists inserts the event unless one with the same
	// (provider, payment_id) already exists. It returns whether a new row
	// was created together with the stored row.
	CreateIfNotExists(event *models.PaymentEvent) (bool, *models.PaymentEvent, error)
	MarkProcessed(id uint, processingError string) error
}

// Store bundles all repositories behind a single storage interface. There
// is exactly one production implementation (GORM/MySQL); in-memory stores
// exist only as test doubles.
type Store interface {
	VIPUsers() VIPUserRepository
	Deliveries() DeliveryRepository
	PaymentEvents() PaymentEventRepository
	// Transaction runs fn against a Store view whose operations share one
	// database transaction. The delivery eligibility check and the
	// resulting mutations must run inside a single Transaction call so
	// that two concurrent requests for the same chat cannot both deliver.
	Transaction(fn func(Store) error) error
}
