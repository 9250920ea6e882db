package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/takumbeng/covoit-backend/internal/models"
)

// BookingStore is the gorm-backed booking persistence.
type BookingStore struct {
	db *gorm.DB
}

func NewBookingStore(db *gorm.DB) *BookingStore {
	return &BookingStore{db: db}
}

func (s *BookingStore) Create(ctx context.Context, booking *models.Booking) error {
	return s.db.WithContext(ctx).Create(booking).Error
}

func (s *BookingStore) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.WithContext(ctx).Preload("Journey").First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (s *BookingStore) FindByJourneyID(ctx context.Context, journeyID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Where("journey_id = ?", journeyID).
		Preload("Passenger").
		Find(&bookings).Error
	return bookings, err
}

func (s *BookingStore) FindByPassengerID(ctx context.Context, passengerID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Where("passenger_id = ?", passengerID).
		Preload("Journey").
		Preload("Journey.Driver").
		Find(&bookings).Error
	return bookings, err
}

func (s *BookingStore) UpdateIfStatus(ctx context.Context, id uint, expected models.BookingStatus, fields map[string]interface{}) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
