package services

import (
	"context"
	"log"
	"time"

	"github.com/takumbeng/covoit-backend/internal/models"
)

// PaymentLedger is the slice of the payment service the journey lifecycle
// needs: it never mutates payment records itself.
type PaymentLedger interface {
	Release(ctx context.Context, paymentID uint) error
	Refund(ctx context.Context, paymentID uint) error
}

// JourneyService owns the journey state machine: scheduled -> in_progress ->
// completed, with cancellation allowed from scheduled or in_progress.
// Completion and cancellation fan escrow releases/refunds out over the
// journey's bookings.
type JourneyService struct {
	journeys JourneyStore
	bookings BookingStore
	payments PaymentStore
	ledger   PaymentLedger
	notifier Notifier
}

func NewJourneyService(journeys JourneyStore, bookings BookingStore, payments PaymentStore, ledger PaymentLedger, notifier Notifier) *JourneyService {
	return &JourneyService{
		journeys: journeys,
		bookings: bookings,
		payments: payments,
		ledger:   ledger,
		notifier: notifier,
	}
}

// CreateJourneyRequest is a driver's new trip offer.
type CreateJourneyRequest struct {
	DriverID      uint
	DepartureCity string
	ArrivalCity   string
	DepartureDate string // YYYY-MM-DD
	DepartureTime string // HH:MM
	Seats         int
	PricePerSeat  int64
	Currency      string
	Vehicle       string
}

// Create validates and persists a new scheduled journey with all seats open.
func (s *JourneyService) Create(ctx context.Context, req CreateJourneyRequest) (*models.Journey, error) {
	if req.Seats < 1 {
		return nil, validationf("journey must offer at least one seat")
	}
	if req.PricePerSeat <= 0 {
		return nil, validationf("price per seat must be positive")
	}
	if req.DepartureCity == "" || req.ArrivalCity == "" {
		return nil, validationf("departure and arrival cities are required")
	}
	if _, err := time.Parse("2006-01-02", req.DepartureDate); err != nil {
		return nil, validationf("departure date must be YYYY-MM-DD")
	}
	if _, err := time.Parse("15:04", req.DepartureTime); err != nil {
		return nil, validationf("departure time must be HH:MM")
	}

	currency := req.Currency
	if currency == "" {
		currency = "XAF"
	}

	journey := &models.Journey{
		DriverID:       req.DriverID,
		DepartureCity:  req.DepartureCity,
		ArrivalCity:    req.ArrivalCity,
		DepartureDate:  req.DepartureDate,
		DepartureTime:  req.DepartureTime,
		TotalSeats:     req.Seats,
		AvailableSeats: req.Seats,
		PricePerSeat:   req.PricePerSeat,
		Currency:       currency,
		Vehicle:        req.Vehicle,
		Status:         models.JourneyStatusScheduled,
	}
	if err := s.journeys.Create(ctx, journey); err != nil {
		return nil, err
	}
	return journey, nil
}

// Search lists bookable journeys matching the criteria. Absent fields are
// wildcards; only scheduled journeys with seats left are returned, ordered
// by departure.
func (s *JourneyService) Search(ctx context.Context, criteria JourneySearch) ([]models.Journey, error) {
	return s.journeys.Search(ctx, criteria)
}

// Get returns a journey by id.
func (s *JourneyService) Get(ctx context.Context, journeyID uint) (*models.Journey, error) {
	journey, err := s.journeys.FindByID(ctx, journeyID)
	if err != nil {
		return nil, ErrNotFound
	}
	return journey, nil
}

// ListByDriver returns a driver's own journeys.
func (s *JourneyService) ListByDriver(ctx context.Context, driverID uint) ([]models.Journey, error) {
	return s.journeys.FindByDriverID(ctx, driverID)
}

// Start moves a scheduled journey to in_progress. Only the owning driver may
// start it.
func (s *JourneyService) Start(ctx context.Context, journeyID, requestingDriverID uint) (*models.Journey, error) {
	journey, err := s.journeys.FindByID(ctx, journeyID)
	if err != nil {
		return nil, ErrNotFound
	}
	if journey.DriverID != requestingDriverID {
		return nil, ErrUnauthorized
	}

	now := time.Now()
	ok, err := s.journeys.UpdateIfStatus(ctx, journeyID, models.JourneyStatusScheduled, map[string]interface{}{
		"status":     models.JourneyStatusInProgress,
		"started_at": &now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		fresh, ferr := s.journeys.FindByID(ctx, journeyID)
		current := string(journey.Status)
		if ferr == nil {
			current = string(fresh.Status)
		}
		return nil, &InvalidStateTransitionError{
			Entity:    "journey",
			Current:   current,
			Attempted: string(models.JourneyStatusInProgress),
		}
	}

	s.notifyConfirmedPassengers(ctx, journeyID, EventJourneyStarted)
	return s.journeys.FindByID(ctx, journeyID)
}

// EscrowOutcome records one release/refund attempt during a completion or
// cancellation fan-out.
type EscrowOutcome struct {
	BookingID uint   `json:"bookingId"`
	PaymentID uint   `json:"paymentId,omitempty"`
	Action    string `json:"action"` // released, refunded, skipped, failed
	Error     string `json:"error,omitempty"`
}

// LifecycleSummary aggregates a completion/cancellation: the journey
// transition itself plus the per-booking escrow outcomes. Escrow failures
// degrade the result, they never roll the journey back.
type LifecycleSummary struct {
	Journey  *models.Journey `json:"journey"`
	Outcomes []EscrowOutcome `json:"payments"`
	Failed   int             `json:"failedPayments"`
}

// Complete moves an in-progress journey to completed and releases every held
// payment on its bookings. Each release is attempted independently; one
// failure neither blocks the others nor undoes the completion.
func (s *JourneyService) Complete(ctx context.Context, journeyID, requestingDriverID uint) (*LifecycleSummary, error) {
	journey, err := s.journeys.FindByID(ctx, journeyID)
	if err != nil {
		return nil, ErrNotFound
	}
	if journey.DriverID != requestingDriverID {
		return nil, ErrUnauthorized
	}

	now := time.Now()
	ok, err := s.journeys.UpdateIfStatus(ctx, journeyID, models.JourneyStatusInProgress, map[string]interface{}{
		"status":   models.JourneyStatusCompleted,
		"ended_at": &now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		fresh, ferr := s.journeys.FindByID(ctx, journeyID)
		current := string(journey.Status)
		if ferr == nil {
			current = string(fresh.Status)
		}
		return nil, &InvalidStateTransitionError{
			Entity:    "journey",
			Current:   current,
			Attempted: string(models.JourneyStatusCompleted),
		}
	}

	summary := s.fanOutEscrow(ctx, journeyID, "released", s.ledger.Release)
	s.notifyConfirmedPassengers(ctx, journeyID, EventJourneyCompleted)

	summary.Journey, _ = s.journeys.FindByID(ctx, journeyID)
	return summary, nil
}

// Cancel terminates a scheduled or in-progress journey and refunds every held
// payment, with the same independent-outcome policy as Complete.
func (s *JourneyService) Cancel(ctx context.Context, journeyID, requestingDriverID uint) (*LifecycleSummary, error) {
	journey, err := s.journeys.FindByID(ctx, journeyID)
	if err != nil {
		return nil, ErrNotFound
	}
	if journey.DriverID != requestingDriverID {
		return nil, ErrUnauthorized
	}

	now := time.Now()
	fields := map[string]interface{}{
		"status":   models.JourneyStatusCancelled,
		"ended_at": &now,
	}
	ok, err := s.journeys.UpdateIfStatus(ctx, journeyID, models.JourneyStatusScheduled, fields)
	if err != nil {
		return nil, err
	}
	if !ok {
		ok, err = s.journeys.UpdateIfStatus(ctx, journeyID, models.JourneyStatusInProgress, fields)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		fresh, ferr := s.journeys.FindByID(ctx, journeyID)
		current := string(journey.Status)
		if ferr == nil {
			current = string(fresh.Status)
		}
		return nil, &InvalidStateTransitionError{
			Entity:    "journey",
			Current:   current,
			Attempted: string(models.JourneyStatusCancelled),
		}
	}

	summary := s.fanOutEscrow(ctx, journeyID, "refunded", s.ledger.Refund)
	s.finalizePendingBookings(ctx, journeyID)
	s.notifyConfirmedPassengers(ctx, journeyID, EventJourneyCancelled)

	summary.Journey, _ = s.journeys.FindByID(ctx, journeyID)
	return summary, nil
}

// AdjustAvailableSeats applies a seat delta for the booking collaborator,
// enforcing 0 <= availableSeats <= totalSeats.
func (s *JourneyService) AdjustAvailableSeats(ctx context.Context, journeyID uint, delta int) error {
	if _, err := s.journeys.FindByID(ctx, journeyID); err != nil {
		return ErrNotFound
	}
	ok, err := s.journeys.AdjustSeats(ctx, journeyID, delta)
	if err != nil {
		return err
	}
	if !ok {
		if delta < 0 {
			return ErrSeatsExhausted
		}
		return ErrSeatsOverflow
	}
	return nil
}

// fanOutEscrow runs op over every held payment on the journey's bookings,
// recording each outcome independently.
func (s *JourneyService) fanOutEscrow(ctx context.Context, journeyID uint, action string, op func(context.Context, uint) error) *LifecycleSummary {
	summary := &LifecycleSummary{}

	bookings, err := s.bookings.FindByJourneyID(ctx, journeyID)
	if err != nil {
		log.Printf("Failed to list bookings for journey %d: %v", journeyID, err)
		return summary
	}

	for _, booking := range bookings {
		payment, perr := s.payments.FindByBookingID(ctx, booking.ID)
		if perr != nil {
			summary.Outcomes = append(summary.Outcomes, EscrowOutcome{
				BookingID: booking.ID,
				Action:    "skipped",
			})
			continue
		}
		if payment.Status != models.PaymentStatusHeld {
			summary.Outcomes = append(summary.Outcomes, EscrowOutcome{
				BookingID: booking.ID,
				PaymentID: payment.ID,
				Action:    "skipped",
			})
			continue
		}
		if oerr := op(ctx, payment.ID); oerr != nil {
			log.Printf("Escrow %s failed for payment %d on journey %d: %v", action, payment.ID, journeyID, oerr)
			summary.Failed++
			summary.Outcomes = append(summary.Outcomes, EscrowOutcome{
				BookingID: booking.ID,
				PaymentID: payment.ID,
				Action:    "failed",
				Error:     oerr.Error(),
			})
			continue
		}
		summary.Outcomes = append(summary.Outcomes, EscrowOutcome{
			BookingID: booking.ID,
			PaymentID: payment.ID,
			Action:    action,
		})
	}

	return summary
}

// finalizePendingBookings closes out not-yet-confirmed bookings on a
// cancelled journey. The journey is terminal, so no seat restoration applies.
func (s *JourneyService) finalizePendingBookings(ctx context.Context, journeyID uint) {
	bookings, err := s.bookings.FindByJourneyID(ctx, journeyID)
	if err != nil {
		return
	}
	for _, booking := range bookings {
		if booking.Status != models.BookingStatusPending {
			continue
		}
		if _, err := s.bookings.UpdateIfStatus(ctx, booking.ID, models.BookingStatusPending, map[string]interface{}{
			"status": models.BookingStatusCancelled,
		}); err != nil {
			log.Printf("Failed to cancel pending booking %d on journey %d: %v", booking.ID, journeyID, err)
		}
	}
}

func (s *JourneyService) notifyConfirmedPassengers(ctx context.Context, journeyID uint, event string) {
	if s.notifier == nil {
		return
	}
	bookings, err := s.bookings.FindByJourneyID(ctx, journeyID)
	if err != nil {
		log.Printf("Failed to list bookings for journey %d notifications: %v", journeyID, err)
		return
	}
	for _, booking := range bookings {
		switch booking.Status {
		case models.BookingStatusConfirmed, models.BookingStatusCompleted, models.BookingStatusRefunded:
			s.notifier.Notify(ctx, booking.PassengerID, event, map[string]interface{}{
				"journeyId": journeyID,
				"bookingId": booking.ID,
			})
		}
	}
}
