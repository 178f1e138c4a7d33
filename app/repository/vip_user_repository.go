package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/musevip/musebot/app/models"
)

type gormVIPUserRepository struct {
	db *gorm.DB
}

func (r *gormVIPUserRepository) GetByChatID(chatID int64) (*models.VIPUser, error) {
	var user models.VIPUser
	if err := r.db.Where("chat_id = ?", chatID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormVIPUserRepository) GetByChatIDForUpdate(chatID int64) (*models.VIPUser, error) {
	var user models.VIPUser
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("chat_id = ?", chatID).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormVIPUserRepository) Upsert(user *models.VIPUser) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username",
			"vip_since",
			"vip_until",
			"last_sent_at",
			"updated_at",
		}),
	}).Create(user).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("chat_id = ?", user.ChatID).First(user).Error
}

func (r *gormVIPUserRepository) SetLastSentAt(chatID int64, at time.Time) error {
	return r.db.Model(&models.VIPUser{}).
		Where("chat_id = ?", chatID).
		Update("last_sent_at", at).Error
}

func (r *gormVIPUserRepository) ListActive(now time.Time) ([]models.VIPUser, error) {
	var users []models.VIPUser
	err := r.db.Where("vip_until > ?", now).Order("chat_id").Find(&users).Error
	return users, err
}

func (r *gormVIPUserRepository) CountActive(now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.VIPUser{}).Where("vip_until > ?", now).Count(&count).Error
	return count, err
}

func (r *gormVIPUserRepository) CountExpired(now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.VIPUser{}).Where("vip_until <= ?", now).Count(&count).Error
	return count, err
}

func (r *gormVIPUserRepository) PurgeExpiredBefore(cutoff time.Time) (int64, error) {
	tx := r.db.Where("vip_until < ?", cutoff).Delete(&models.VIPUser{})
	return tx.RowsAffected, tx.Error
}
