package repository

import (
	"gorm.io/gorm"

	"github.com/musevip/musebot/app/models"
)

type gormDeliveryRepository struct {
	db *gorm.DB
}

func (r *gormDeliveryRepository) Record(delivery *models.GalleryDelivery) error {
	return r.db.Create(delivery).Error
}

func (r *gormDeliveryRepository) FingerprintsByChatID(chatID int64) (map[string]struct{}, error) {
	var fingerprints []string
	err := r.db.Model(&models.GalleryDelivery{}).
		Where("chat_id = ?", chatID).
		Pluck("fingerprint", &fingerprints).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(fingerprints))
	for _, fp := range fingerprints {
		seen[fp] = struct{}{}
	}
	return seen, nil
}

func (r *gormDeliveryRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.GalleryDelivery{}).Count(&count).Error
	return count, err
}

func (r *gormDeliveryRepository) CountByChatID(chatID int64) (int64, error) {
	var count int64
	err := r.db.Model(&models.GalleryDelivery{}).Where("chat_id = ?", chatID).Count(&count).Error
	return count, err
}
