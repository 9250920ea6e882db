package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/takumbeng/covoit-backend/internal/models"
)

// PaymentStore is the gorm-backed payment persistence. Status changes go
// through UpdateIfStatus so concurrent transitions on the same record
// serialize at the database.
type PaymentStore struct {
	db *gorm.DB
}

func NewPaymentStore(db *gorm.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

func (s *PaymentStore) Create(ctx context.Context, payment *models.Payment) error {
	return s.db.WithContext(ctx).Create(payment).Error
}

func (s *PaymentStore) FindByID(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *PaymentStore) FindByTxRef(ctx context.Context, txRef string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).Where("tx_ref = ?", txRef).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *PaymentStore) FindByBookingID(ctx context.Context, bookingID uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdateIfStatus is a conditional update: fields are applied only when the
// record still has the expected status. The matched flag tells the caller
// whether its transition won.
func (s *PaymentStore) UpdateIfStatus(ctx context.Context, id uint, expected models.PaymentStatus, fields map[string]interface{}) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
