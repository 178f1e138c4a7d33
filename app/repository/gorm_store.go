package repository

import "gorm.io/gorm"

// gormStore is the production Store backed by GORM/MySQL.
type gormStore struct {
	db *gorm.DB
}

// NewStore creates the production store over a GORM handle.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) VIPUsers() VIPUserRepository {
	return &gormVIPUserRepository{db: s.db}
}

func (s *gormStore) Deliveries() DeliveryRepository {
	return &gormDeliveryRepository{db: s.db}
}

func (s *gormStore) PaymentEvents() PaymentEventRepository {
	return &gormPaymentEventRepository{db: s.db}
}

func (s *gormStore) Transaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
