package services

import (
	"context"
	"errors"
	"log"

	"github.com/takumbeng/covoit-backend/internal/models"
)

// BookingService handles seat reservations against journeys. It reserves
// seats through the journey manager's conditional seat adjustment, so two
// passengers racing for the last seats cannot both win.
type BookingService struct {
	bookings BookingStore
	journeys *JourneyService
	store    JourneyStore
	payments PaymentStore
	ledger   PaymentLedger
	notifier Notifier
}

func NewBookingService(bookings BookingStore, journeys *JourneyService, store JourneyStore, payments PaymentStore, ledger PaymentLedger, notifier Notifier) *BookingService {
	return &BookingService{
		bookings: bookings,
		journeys: journeys,
		store:    store,
		payments: payments,
		ledger:   ledger,
		notifier: notifier,
	}
}

// Create reserves seats on a scheduled journey. The booking starts pending;
// it is confirmed only once its payment reaches held.
func (s *BookingService) Create(ctx context.Context, passengerID, journeyID uint, seats int) (*models.Booking, error) {
	if seats < 1 {
		return nil, validationf("at least one seat must be booked")
	}

	journey, err := s.store.FindByID(ctx, journeyID)
	if err != nil {
		return nil, ErrNotFound
	}
	if journey.Status != models.JourneyStatusScheduled {
		return nil, validationf("journey is %s and not open for booking", journey.Status)
	}
	if journey.DriverID == passengerID {
		return nil, validationf("drivers cannot book their own journey")
	}

	if err := s.journeys.AdjustAvailableSeats(ctx, journeyID, -seats); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		JourneyID:   journeyID,
		PassengerID: passengerID,
		Seats:       seats,
		TotalAmount: int64(seats) * journey.PricePerSeat,
		Status:      models.BookingStatusPending,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		// Give the reserved seats back; the reservation never materialized.
		if aerr := s.journeys.AdjustAvailableSeats(ctx, journeyID, seats); aerr != nil {
			log.Printf("Failed to restore %d seats on journey %d: %v", seats, journeyID, aerr)
		}
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, journey.DriverID, EventBookingCreated, map[string]interface{}{
			"bookingId": booking.ID,
			"journeyId": journeyID,
			"seats":     seats,
		})
	}
	return booking, nil
}

// Get returns a booking visible to its passenger or the journey's driver.
func (s *BookingService) Get(ctx context.Context, bookingID, requesterID uint) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, ErrNotFound
	}
	journey, err := s.store.FindByID(ctx, booking.JourneyID)
	if err != nil {
		return nil, ErrNotFound
	}
	if booking.PassengerID != requesterID && journey.DriverID != requesterID {
		return nil, ErrUnauthorized
	}
	return booking, nil
}

// ListByPassenger returns a passenger's bookings.
func (s *BookingService) ListByPassenger(ctx context.Context, passengerID uint) ([]models.Booking, error) {
	return s.bookings.FindByPassengerID(ctx, passengerID)
}

// CancelByPassenger withdraws a reservation before the trip ends. A pending
// booking is simply cancelled; a confirmed one has its held payment refunded.
// Seats go back to the journey while it is still bookable.
func (s *BookingService) CancelByPassenger(ctx context.Context, bookingID, passengerID uint) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, ErrNotFound
	}
	if booking.PassengerID != passengerID {
		return nil, ErrUnauthorized
	}

	journey, err := s.store.FindByID(ctx, booking.JourneyID)
	if err != nil {
		return nil, ErrNotFound
	}
	if journey.Status == models.JourneyStatusCompleted {
		return nil, &InvalidStateTransitionError{
			Entity:    "booking",
			Current:   string(booking.Status),
			Attempted: string(models.BookingStatusCancelled),
		}
	}

	switch booking.Status {
	case models.BookingStatusPending:
		ok, uerr := s.bookings.UpdateIfStatus(ctx, bookingID, models.BookingStatusPending, map[string]interface{}{
			"status": models.BookingStatusCancelled,
		})
		if uerr != nil {
			return nil, uerr
		}
		if !ok {
			return nil, s.staleBookingError(ctx, bookingID)
		}
	case models.BookingStatusConfirmed:
		payment, perr := s.payments.FindByBookingID(ctx, bookingID)
		if perr != nil {
			return nil, ErrNotFound
		}
		if rerr := s.ledger.Refund(ctx, payment.ID); rerr != nil {
			if errors.Is(rerr, ErrPaymentNotHeld) {
				return nil, s.staleBookingError(ctx, bookingID)
			}
			return nil, rerr
		}
	default:
		return nil, &InvalidStateTransitionError{
			Entity:    "booking",
			Current:   string(booking.Status),
			Attempted: string(models.BookingStatusCancelled),
		}
	}

	// Restore seats only while the journey can still take passengers.
	if journey.Status == models.JourneyStatusScheduled {
		if aerr := s.journeys.AdjustAvailableSeats(ctx, booking.JourneyID, booking.Seats); aerr != nil {
			log.Printf("Failed to restore %d seats on journey %d: %v", booking.Seats, booking.JourneyID, aerr)
		}
	}

	return s.bookings.FindByID(ctx, bookingID)
}

func (s *BookingService) staleBookingError(ctx context.Context, bookingID uint) error {
	current := "unknown"
	if fresh, err := s.bookings.FindByID(ctx, bookingID); err == nil {
		current = string(fresh.Status)
	}
	return &InvalidStateTransitionError{
		Entity:    "booking",
		Current:   current,
		Attempted: string(models.BookingStatusCancelled),
	}
}
