package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takumbeng/covoit-backend/internal/models"
)

type bookingFixture struct {
	*journeyFixture
	service *BookingService
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	jf := newJourneyFixture(t)
	return &bookingFixture{
		journeyFixture: jf,
		service:        NewBookingService(jf.bookings, jf.service, jf.journeys, jf.payments, jf.ledger, jf.notifier),
	}
}

func TestCreateBookingReservesSeats(t *testing.T) {
	f := newBookingFixture(t)
	journey := f.seedJourney(t, models.JourneyStatusScheduled) // 4 seats, 5000 each

	booking, err := f.service.Create(context.Background(), 2, journey.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.Equal(t, int64(15000), booking.TotalAmount)

	fresh, err := f.journeys.FindByID(context.Background(), journey.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.AvailableSeats)

	assert.True(t, f.notifier.received(1, EventBookingCreated))
}

func TestCreateBookingRefusesOverbooking(t *testing.T) {
	f := newBookingFixture(t)
	journey := f.seedJourney(t, models.JourneyStatusScheduled)

	_, err := f.service.Create(context.Background(), 2, journey.ID, 3)
	require.NoError(t, err)

	// One seat left; a two-seat request must lose cleanly
	_, err = f.service.Create(context.Background(), 3, journey.ID, 2)
	require.ErrorIs(t, err, ErrSeatsExhausted)

	fresh, err := f.journeys.FindByID(context.Background(), journey.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.AvailableSeats, "losing request must not touch the count")
}

func TestCreateBookingRequiresScheduledJourney(t *testing.T) {
	f := newBookingFixture(t)
	journey := f.seedJourney(t, models.JourneyStatusInProgress)

	_, err := f.service.Create(context.Background(), 2, journey.ID, 1)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestDriverCannotBookOwnJourney(t *testing.T) {
	f := newBookingFixture(t)
	journey := f.seedJourney(t, models.JourneyStatusScheduled)

	_, err := f.service.Create(context.Background(), journey.DriverID, journey.ID, 1)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestCreateBookingRejectsZeroSeats(t *testing.T) {
	f := newBookingFixture(t)
	journey := f.seedJourney(t, models.JourneyStatusScheduled)

	_, err := f.service.Create(context.Background(), 2, journey.ID, 0)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestGetBookingVisibility(t *testing.T) {
	f := newBookingFixture(t)
	journey := f.seedJourney(t, models.JourneyStatusScheduled)
	booking, err := f.service.Create(context.Background(), 2, journey.ID, 1)
	require.NoError(t, err)

	_, err = f.service.Get(context.Background(), booking.ID, 2)
	require.NoError(t, err)
	_, err = f.service.Get(context.Background(), booking.ID, journey.DriverID)
	require.NoError(t, err)
	_, err = f.service.Get(context.Background(), booking.ID, 42)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestCancelPendingBookingRestoresSeats(t *testing.T) {
	f := newBookingFixture(t)
	journey := f.seedJourney(t, models.JourneyStatusScheduled)
	booking, err := f.service.Create(context.Background(), 2, journey.ID, 2)
	require.NoError(t, err)

	cancelled, err := f.service.CancelByPassenger(context.Background(), booking.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)

	fresh, err := f.journeys.FindByID(context.Background(), journey.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, fresh.AvailableSeats)
}

func TestCancelConfirmedBookingRefundsEscrow(t *testing.T) {
	f := newBookingFixture(t)
	journey := f.seedJourney(t, models.JourneyStatusScheduled)
	booking, payment := f.seedHeldBooking(t, journey, 2, 2)
	_, err := f.journeys.AdjustSeats(context.Background(), journey.ID, -2)
	require.NoError(t, err)

	cancelled, err := f.service.CancelByPassenger(context.Background(), booking.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusRefunded, cancelled.Status)

	refunded, err := f.payments.FindByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.Status)

	fresh, err := f.journeys.FindByID(context.Background(), journey.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, fresh.AvailableSeats, "seats return while the journey is still bookable")
}

func TestCancelConfirmedBookingInProgressKeepsSeats(t *testing.T) {
	f := newBookingFixture(t)
	journey := f.seedJourney(t, models.JourneyStatusInProgress)
	booking, _ := f.seedHeldBooking(t, journey, 2, 2)
	_, err := f.journeys.AdjustSeats(context.Background(), journey.ID, -2)
	require.NoError(t, err)

	cancelled, err := f.service.CancelByPassenger(context.Background(), booking.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusRefunded, cancelled.Status)

	fresh, err := f.journeys.FindByID(context.Background(), journey.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.AvailableSeats, "no seat restoration once the trip is underway")
}

func TestCancelBookingOnCompletedJourneyRejected(t *testing.T) {
	f := newBookingFixture(t)
	journey := f.seedJourney(t, models.JourneyStatusCompleted)
	booking, _ := f.seedHeldBooking(t, journey, 2, 1)

	_, err := f.service.CancelByPassenger(context.Background(), booking.ID, 2)
	var transition *InvalidStateTransitionError
	require.ErrorAs(t, err, &transition)
}

func TestCancelBookingRequiresOwnership(t *testing.T) {
	f := newBookingFixture(t)
	journey := f.seedJourney(t, models.JourneyStatusScheduled)
	booking, err := f.service.Create(context.Background(), 2, journey.ID, 1)
	require.NoError(t, err)

	_, err = f.service.CancelByPassenger(context.Background(), booking.ID, 3)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestCancelAlreadyCancelledBookingRejected(t *testing.T) {
	f := newBookingFixture(t)
	journey := f.seedJourney(t, models.JourneyStatusScheduled)
	booking, err := f.service.Create(context.Background(), 2, journey.ID, 1)
	require.NoError(t, err)

	_, err = f.service.CancelByPassenger(context.Background(), booking.ID, 2)
	require.NoError(t, err)

	_, err = f.service.CancelByPassenger(context.Background(), booking.ID, 2)
	var transition *InvalidStateTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, string(models.BookingStatusCancelled), transition.Current)
}
