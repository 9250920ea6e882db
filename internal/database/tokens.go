package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/takumbeng/covoit-backend/internal/models"
)

// TokenStore is the gorm-backed device-token persistence used for FCM push.
type TokenStore struct {
	db *gorm.DB
}

func NewTokenStore(db *gorm.DB) *TokenStore {
	return &TokenStore{db: db}
}

func (s *TokenStore) Register(ctx context.Context, userID uint, token, platform string) error {
	record := models.DeviceToken{
		UserID:   userID,
		Token:    token,
		Platform: platform,
	}
	// Re-registering the same token moves it to the new user.
	return s.db.WithContext(ctx).
		Where("token = ?", token).
		Assign(map[string]interface{}{"user_id": userID, "platform": platform}).
		FirstOrCreate(&record).Error
}

func (s *TokenStore) Remove(ctx context.Context, userID uint, token string) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&models.DeviceToken{}).Error
}

func (s *TokenStore) TokensForUser(ctx context.Context, userID uint) ([]string, error) {
	var tokens []string
	err := s.db.WithContext(ctx).
		Model(&models.DeviceToken{}).
		Where("user_id = ?", userID).
		Pluck("token", &tokens).Error
	return tokens, err
}
