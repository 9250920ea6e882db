package database

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/takumbeng/covoit-backend/internal/models"
	"github.com/takumbeng/covoit-backend/internal/services"
)

// JourneyStore is the gorm-backed journey persistence.
type JourneyStore struct {
	db *gorm.DB
}

func NewJourneyStore(db *gorm.DB) *JourneyStore {
	return &JourneyStore{db: db}
}

func (s *JourneyStore) Create(ctx context.Context, journey *models.Journey) error {
	return s.db.WithContext(ctx).Create(journey).Error
}

func (s *JourneyStore) FindByID(ctx context.Context, id uint) (*models.Journey, error) {
	var journey models.Journey
	if err := s.db.WithContext(ctx).Preload("Driver").First(&journey, id).Error; err != nil {
		return nil, err
	}
	return &journey, nil
}

func (s *JourneyStore) FindByDriverID(ctx context.Context, driverID uint) ([]models.Journey, error) {
	var journeys []models.Journey
	err := s.db.WithContext(ctx).
		Where("driver_id = ?", driverID).
		Order("departure_date DESC, departure_time DESC").
		Find(&journeys).Error
	return journeys, err
}

func (s *JourneyStore) Search(ctx context.Context, criteria services.JourneySearch) ([]models.Journey, error) {
	query := s.db.WithContext(ctx).
		Preload("Driver").
		Where("status = ? AND available_seats > 0", models.JourneyStatusScheduled)

	if criteria.DepartureCity != "" {
		query = query.Where("LOWER(departure_city) = LOWER(?)", strings.TrimSpace(criteria.DepartureCity))
	}
	if criteria.ArrivalCity != "" {
		query = query.Where("LOWER(arrival_city) = LOWER(?)", strings.TrimSpace(criteria.ArrivalCity))
	}
	if criteria.Date != "" {
		query = query.Where("departure_date = ?", criteria.Date)
	}

	var journeys []models.Journey
	err := query.Order("departure_date ASC, departure_time ASC").Find(&journeys).Error
	return journeys, err
}

func (s *JourneyStore) UpdateIfStatus(ctx context.Context, id uint, expected models.JourneyStatus, fields map[string]interface{}) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Journey{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AdjustSeats applies a seat delta atomically, refusing any change that would
// leave availableSeats outside [0, totalSeats].
func (s *JourneyStore) AdjustSeats(ctx context.Context, id uint, delta int) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Journey{}).
		Where("id = ? AND available_seats + ? >= 0 AND available_seats + ? <= total_seats", id, delta, delta).
		UpdateColumn("available_seats", gorm.Expr("available_seats + ?", delta))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
