package services

import (
	"context"

	"github.com/takumbeng/covoit-backend/internal/models"
)

// Store contracts consumed by the services. The database package provides the
// gorm-backed implementations; tests substitute in-memory fakes. All status
// mutations go through conditional updates (expected current status), never
// blind overwrites, so concurrent transition attempts on the same record
// serialize: the loser sees a false matched flag and must re-read.

type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uint) (*models.Payment, error)
	FindByTxRef(ctx context.Context, txRef string) (*models.Payment, error)
	FindByBookingID(ctx context.Context, bookingID uint) (*models.Payment, error)
	// UpdateIfStatus applies fields only when the payment still has the
	// expected status. Returns whether a row matched.
	UpdateIfStatus(ctx context.Context, id uint, expected models.PaymentStatus, fields map[string]interface{}) (bool, error)
}

// JourneySearch filters the journey listing. Zero values are wildcards.
type JourneySearch struct {
	DepartureCity string
	ArrivalCity   string
	Date          string // YYYY-MM-DD
}

type JourneyStore interface {
	Create(ctx context.Context, journey *models.Journey) error
	FindByID(ctx context.Context, id uint) (*models.Journey, error)
	FindByDriverID(ctx context.Context, driverID uint) ([]models.Journey, error)
	// Search returns scheduled journeys with seats left, matching the
	// criteria, ordered by departure date then time ascending.
	Search(ctx context.Context, criteria JourneySearch) ([]models.Journey, error)
	UpdateIfStatus(ctx context.Context, id uint, expected models.JourneyStatus, fields map[string]interface{}) (bool, error)
	// AdjustSeats atomically applies delta to availableSeats, refusing any
	// change that would leave it outside [0, totalSeats]. Returns whether a
	// row matched.
	AdjustSeats(ctx context.Context, id uint, delta int) (bool, error)
}

type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id uint) (*models.Booking, error)
	FindByJourneyID(ctx context.Context, journeyID uint) ([]models.Booking, error)
	FindByPassengerID(ctx context.Context, passengerID uint) ([]models.Booking, error)
	UpdateIfStatus(ctx context.Context, id uint, expected models.BookingStatus, fields map[string]interface{}) (bool, error)
}
