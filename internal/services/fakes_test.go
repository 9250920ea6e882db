package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/takumbeng/covoit-backend/internal/gateway"
	"github.com/takumbeng/covoit-backend/internal/models"
)

// In-memory stores with the same conditional-update semantics as the gorm
// implementations: a status mutation only lands when the record still has the
// expected status, and the caller learns whether a row matched.

type fakePaymentStore struct {
	mu       sync.Mutex
	nextID   uint
	payments map[uint]*models.Payment
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{payments: make(map[uint]*models.Payment)}
}

func (s *fakePaymentStore) Create(_ context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	payment.ID = s.nextID
	clone := *payment
	s.payments[payment.ID] = &clone
	return nil
}

func (s *fakePaymentStore) FindByID(_ context.Context, id uint) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payment, ok := s.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *payment
	return &clone, nil
}

func (s *fakePaymentStore) FindByTxRef(_ context.Context, txRef string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, payment := range s.payments {
		if payment.TxRef == txRef {
			clone := *payment
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakePaymentStore) FindByBookingID(_ context.Context, bookingID uint) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, payment := range s.payments {
		if payment.BookingID == bookingID {
			clone := *payment
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakePaymentStore) UpdateIfStatus(_ context.Context, id uint, expected models.PaymentStatus, fields map[string]interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payment, ok := s.payments[id]
	if !ok || payment.Status != expected {
		return false, nil
	}
	for column, value := range fields {
		switch column {
		case "status":
			payment.Status = value.(models.PaymentStatus)
		case "tx_ref":
			payment.TxRef = value.(string)
		case "flw_ref":
			payment.FlwRef = value.(string)
		case "transaction_id":
			payment.TransactionID = asInt64(value)
		case "method":
			payment.Method = value.(models.PaymentMethod)
		case "failure_reason":
			payment.FailureReason = value.(string)
		case "released_at":
			payment.ReleasedAt = value.(*time.Time)
		}
	}
	return true, nil
}

type fakeJourneyStore struct {
	mu       sync.Mutex
	nextID   uint
	journeys map[uint]*models.Journey
}

func newFakeJourneyStore() *fakeJourneyStore {
	return &fakeJourneyStore{journeys: make(map[uint]*models.Journey)}
}

func (s *fakeJourneyStore) Create(_ context.Context, journey *models.Journey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	journey.ID = s.nextID
	clone := *journey
	s.journeys[journey.ID] = &clone
	return nil
}

func (s *fakeJourneyStore) FindByID(_ context.Context, id uint) (*models.Journey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	journey, ok := s.journeys[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *journey
	return &clone, nil
}

func (s *fakeJourneyStore) FindByDriverID(_ context.Context, driverID uint) ([]models.Journey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var results []models.Journey
	for _, journey := range s.journeys {
		if journey.DriverID == driverID {
			results = append(results, *journey)
		}
	}
	return results, nil
}

func (s *fakeJourneyStore) Search(_ context.Context, criteria JourneySearch) ([]models.Journey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var results []models.Journey
	for _, journey := range s.journeys {
		if journey.Status != models.JourneyStatusScheduled || journey.AvailableSeats < 1 {
			continue
		}
		if criteria.DepartureCity != "" && !strings.EqualFold(criteria.DepartureCity, journey.DepartureCity) {
			continue
		}
		if criteria.ArrivalCity != "" && !strings.EqualFold(criteria.ArrivalCity, journey.ArrivalCity) {
			continue
		}
		if criteria.Date != "" && criteria.Date != journey.DepartureDate {
			continue
		}
		results = append(results, *journey)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].DepartureDate != results[j].DepartureDate {
			return results[i].DepartureDate < results[j].DepartureDate
		}
		return results[i].DepartureTime < results[j].DepartureTime
	})
	return results, nil
}

func (s *fakeJourneyStore) UpdateIfStatus(_ context.Context, id uint, expected models.JourneyStatus, fields map[string]interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	journey, ok := s.journeys[id]
	if !ok || journey.Status != expected {
		return false, nil
	}
	for column, value := range fields {
		switch column {
		case "status":
			journey.Status = value.(models.JourneyStatus)
		case "started_at":
			journey.StartedAt = value.(*time.Time)
		case "ended_at":
			journey.EndedAt = value.(*time.Time)
		}
	}
	return true, nil
}

func (s *fakeJourneyStore) AdjustSeats(_ context.Context, id uint, delta int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	journey, ok := s.journeys[id]
	if !ok {
		return false, nil
	}
	next := journey.AvailableSeats + delta
	if next < 0 || next > journey.TotalSeats {
		return false, nil
	}
	journey.AvailableSeats = next
	return true, nil
}

type fakeBookingStore struct {
	mu       sync.Mutex
	nextID   uint
	bookings map[uint]*models.Booking
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{bookings: make(map[uint]*models.Booking)}
}

func (s *fakeBookingStore) Create(_ context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	booking.ID = s.nextID
	clone := *booking
	s.bookings[booking.ID] = &clone
	return nil
}

func (s *fakeBookingStore) FindByID(_ context.Context, id uint) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	booking, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *booking
	return &clone, nil
}

func (s *fakeBookingStore) FindByJourneyID(_ context.Context, journeyID uint) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var results []models.Booking
	for _, booking := range s.bookings {
		if booking.JourneyID == journeyID {
			results = append(results, *booking)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (s *fakeBookingStore) FindByPassengerID(_ context.Context, passengerID uint) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var results []models.Booking
	for _, booking := range s.bookings {
		if booking.PassengerID == passengerID {
			results = append(results, *booking)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (s *fakeBookingStore) UpdateIfStatus(_ context.Context, id uint, expected models.BookingStatus, fields map[string]interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	booking, ok := s.bookings[id]
	if !ok || booking.Status != expected {
		return false, nil
	}
	for column, value := range fields {
		if column == "status" {
			booking.Status = value.(models.BookingStatus)
		}
	}
	return true, nil
}

func asInt64(value interface{}) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// fakeGateway scripts provider answers per test.
type fakeGateway struct {
	mu           sync.Mutex
	chargeResult *gateway.ChargeResult
	chargeErr    error
	verifyResult *gateway.VerifyResult
	verifyErr    error
	chargeCalls  int
	verifyCalls  int
}

func (g *fakeGateway) ChargeMobileMoney(_ context.Context, _ gateway.MobileMoneyCharge) (*gateway.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.chargeCalls++
	return g.chargeResult, g.chargeErr
}

func (g *fakeGateway) ChargeCard(_ context.Context, _ gateway.CardCharge) (*gateway.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.chargeCalls++
	return g.chargeResult, g.chargeErr
}

func (g *fakeGateway) VerifyTransaction(_ context.Context, _ int64) (*gateway.VerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	return g.verifyResult, g.verifyErr
}

// recordingNotifier captures dispatched events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	RecipientID uint
	Event       string
}

func (n *recordingNotifier) Notify(_ context.Context, recipientID uint, event string, _ map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{RecipientID: recipientID, Event: event})
}

func (n *recordingNotifier) received(recipientID uint, event string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e.RecipientID == recipientID && e.Event == event {
			return true
		}
	}
	return false
}
