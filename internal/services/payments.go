package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/takumbeng/covoit-backend/internal/gateway"
	"github.com/takumbeng/covoit-backend/internal/models"
	"github.com/takumbeng/covoit-backend/pkg/utils"
)

// GatewayClient is the slice of the payment provider the ledger needs.
type GatewayClient interface {
	ChargeMobileMoney(ctx context.Context, charge gateway.MobileMoneyCharge) (*gateway.ChargeResult, error)
	ChargeCard(ctx context.Context, charge gateway.CardCharge) (*gateway.ChargeResult, error)
	VerifyTransaction(ctx context.Context, transactionID int64) (*gateway.VerifyResult, error)
}

// PaymentService owns the escrow payment lifecycle: it is the only component
// that moves a payment between pending, held, released, refunded and failed.
// Transitions use conditional store updates so that a webhook and a
// release/refund racing on the same payment can never both win from the same
// prior state.
type PaymentService struct {
	payments   PaymentStore
	bookings   BookingStore
	journeys   JourneyStore
	gateway    GatewayClient
	notifier   Notifier
	feePercent int64
}

// NewPaymentService wires the ledger. feePercent is the platform cut in whole
// percent; values outside (0, 100] fall back to 10.
func NewPaymentService(payments PaymentStore, bookings BookingStore, journeys JourneyStore, gw GatewayClient, notifier Notifier, feePercent int) *PaymentService {
	if feePercent <= 0 || feePercent > 100 {
		feePercent = 10
	}
	return &PaymentService{
		payments:   payments,
		bookings:   bookings,
		journeys:   journeys,
		gateway:    gw,
		notifier:   notifier,
		feePercent: int64(feePercent),
	}
}

// SplitAmount computes the platform fee (integer floor) and driver payout for
// an amount in minor units. The two always sum back to the amount.
func (s *PaymentService) SplitAmount(amount int64) (fee, payout int64) {
	fee = amount * s.feePercent / 100
	payout = amount - fee
	return fee, payout
}

// InitiatePaymentRequest carries the charge details supplied by the paying
// passenger. Card fields are only read for the CARD method, phone only for
// mobile money.
type InitiatePaymentRequest struct {
	BookingID   uint
	PassengerID uint
	Method      models.PaymentMethod
	PhoneNumber string
	CardNumber  string
	CVV         string
	ExpiryMonth string
	ExpiryYear  string
	Email       string
	FullName    string
	RedirectURL string
}

// Initiate creates (or re-initiates) the escrow record for a booking and
// starts the charge. A synchronous successful charge moves the payment to
// held; a pending answer leaves it pending awaiting the webhook; a definitive
// rejection moves it to failed. A gateway that cannot be reached leaves the
// record pending and surfaces gateway.ErrUnreachable so the caller can tell
// the client to poll.
func (s *PaymentService) Initiate(ctx context.Context, req InitiatePaymentRequest) (*models.Payment, error) {
	booking, err := s.bookings.FindByID(ctx, req.BookingID)
	if err != nil {
		return nil, ErrNotFound
	}
	if booking.PassengerID != req.PassengerID {
		return nil, ErrUnauthorized
	}
	if booking.Status != models.BookingStatusPending {
		return nil, validationf("booking is %s, payment can no longer be initiated", booking.Status)
	}

	journey, err := s.journeys.FindByID(ctx, booking.JourneyID)
	if err != nil {
		return nil, ErrNotFound
	}

	switch req.Method {
	case models.PaymentMethodMTNMomo, models.PaymentMethodOrangeMoney:
		if req.PhoneNumber == "" {
			return nil, validationf("phone number is required for mobile money payments")
		}
	case models.PaymentMethodCard:
		if req.CardNumber == "" || req.CVV == "" || req.ExpiryMonth == "" || req.ExpiryYear == "" {
			return nil, validationf("card details are required for card payments")
		}
	case models.PaymentMethodCash:
		// no charge details needed
	default:
		return nil, validationf("unsupported payment method: %s", req.Method)
	}

	amount := booking.TotalAmount
	if amount < 1 {
		return nil, validationf("booking amount must be positive")
	}
	fee, payout := s.SplitAmount(amount)
	txRef := utils.NewTxRef()

	payment, err := s.payments.FindByBookingID(ctx, req.BookingID)
	switch {
	case err == nil && payment.Status == models.PaymentStatusPending:
		// Retry of a not-yet-confirmed attempt: fresh txRef, same record.
		ok, uerr := s.payments.UpdateIfStatus(ctx, payment.ID, models.PaymentStatusPending, map[string]interface{}{
			"tx_ref":         txRef,
			"method":         req.Method,
			"flw_ref":        "",
			"transaction_id": 0,
		})
		if uerr != nil {
			return nil, uerr
		}
		if !ok {
			fresh, ferr := s.payments.FindByID(ctx, payment.ID)
			if ferr != nil {
				return nil, ferr
			}
			return fresh, &InvalidStateTransitionError{
				Entity:    "payment",
				Current:   string(fresh.Status),
				Attempted: string(models.PaymentStatusPending),
			}
		}
		payment.TxRef = txRef
		payment.Method = req.Method
	case err == nil:
		return payment, &InvalidStateTransitionError{
			Entity:    "payment",
			Current:   string(payment.Status),
			Attempted: string(models.PaymentStatusPending),
		}
	default:
		payment = &models.Payment{
			BookingID:    booking.ID,
			JourneyID:    journey.ID,
			PassengerID:  booking.PassengerID,
			DriverID:     journey.DriverID,
			Amount:       amount,
			PlatformFee:  fee,
			DriverPayout: payout,
			Currency:     journey.Currency,
			Method:       req.Method,
			Status:       models.PaymentStatusPending,
			TxRef:        txRef,
		}
		if cerr := s.payments.Create(ctx, payment); cerr != nil {
			return nil, cerr
		}
	}

	// Cash is settled in person on the ride; the escrow record tracks the
	// platform fee and is treated as held from the start.
	if req.Method == models.PaymentMethodCash {
		if err := s.markHeld(ctx, payment, "", 0); err != nil {
			return nil, err
		}
		return s.payments.FindByID(ctx, payment.ID)
	}

	result, err := s.charge(ctx, payment, req)
	if err != nil {
		if errors.Is(err, gateway.ErrUnreachable) {
			// Not a confirmed failure: stay pending, resolve via webhook or
			// poll later.
			log.Printf("Gateway unreachable for payment %d (txRef %s), leaving pending", payment.ID, payment.TxRef)
			return payment, fmt.Errorf("charge not confirmed: %w", err)
		}
		var rejected *gateway.RejectedError
		reason := err.Error()
		if errors.As(err, &rejected) {
			reason = rejected.Message
		}
		if ferr := s.markFailed(ctx, payment, reason); ferr != nil {
			log.Printf("Failed to mark payment %d failed: %v", payment.ID, ferr)
		}
		fresh, _ := s.payments.FindByID(ctx, payment.ID)
		if fresh != nil {
			payment = fresh
		}
		return payment, err
	}

	switch result.Status {
	case gateway.ChargeStatusSuccessful:
		if err := s.markHeld(ctx, payment, result.FlwRef, result.TransactionID); err != nil {
			return nil, err
		}
	case gateway.ChargeStatusFailed:
		if err := s.markFailed(ctx, payment, "charge declined by provider"); err != nil {
			log.Printf("Failed to mark payment %d failed: %v", payment.ID, err)
		}
	default:
		// Pending: remember the provider references for later verification.
		if _, err := s.payments.UpdateIfStatus(ctx, payment.ID, models.PaymentStatusPending, map[string]interface{}{
			"flw_ref":        result.FlwRef,
			"transaction_id": result.TransactionID,
		}); err != nil {
			log.Printf("Failed to record gateway refs for payment %d: %v", payment.ID, err)
		}
	}

	return s.payments.FindByID(ctx, payment.ID)
}

func (s *PaymentService) charge(ctx context.Context, payment *models.Payment, req InitiatePaymentRequest) (*gateway.ChargeResult, error) {
	switch req.Method {
	case models.PaymentMethodMTNMomo, models.PaymentMethodOrangeMoney:
		network := "MTN"
		if req.Method == models.PaymentMethodOrangeMoney {
			network = "ORANGE"
		}
		return s.gateway.ChargeMobileMoney(ctx, gateway.MobileMoneyCharge{
			TxRef:       payment.TxRef,
			Amount:      payment.Amount,
			Currency:    payment.Currency,
			Country:     "CM",
			Network:     network,
			PhoneNumber: req.PhoneNumber,
			Email:       req.Email,
			FullName:    req.FullName,
		})
	case models.PaymentMethodCard:
		return s.gateway.ChargeCard(ctx, gateway.CardCharge{
			TxRef:       payment.TxRef,
			Amount:      payment.Amount,
			Currency:    payment.Currency,
			CardNumber:  req.CardNumber,
			CVV:         req.CVV,
			ExpiryMonth: req.ExpiryMonth,
			ExpiryYear:  req.ExpiryYear,
			Email:       req.Email,
			FullName:    req.FullName,
			RedirectURL: req.RedirectURL,
		})
	}
	return nil, validationf("unsupported payment method: %s", req.Method)
}

// WebhookPayload is the parsed body of a gateway webhook delivery.
type WebhookPayload struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

type WebhookData struct {
	ID          int64   `json:"id"`
	TxRef       string  `json:"tx_ref"`
	FlwRef      string  `json:"flw_ref"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Status      string  `json:"status"`
	PaymentType string  `json:"payment_type"`
}

// ReconcileWebhook applies a signature-validated webhook to the local record.
// Duplicate deliveries and webhooks for already-terminal payments are no-ops;
// unknown txRefs are logged and ignored so the receiving path never fails on
// provider replays.
func (s *PaymentService) ReconcileWebhook(ctx context.Context, payload WebhookPayload) error {
	if payload.Data.TxRef == "" {
		return validationf("webhook payload missing tx_ref")
	}

	payment, err := s.payments.FindByTxRef(ctx, payload.Data.TxRef)
	if err != nil {
		log.Printf("Webhook for unknown txRef %s ignored", payload.Data.TxRef)
		return nil
	}

	if payment.Status.Terminal() || payment.Status == models.PaymentStatusHeld {
		// Already reconciled; duplicate delivery.
		return nil
	}

	switch payload.Data.Status {
	case gateway.ChargeStatusSuccessful:
		return s.markHeld(ctx, payment, payload.Data.FlwRef, payload.Data.ID)
	case gateway.ChargeStatusFailed:
		return s.markFailed(ctx, payment, "charge failed (webhook)")
	default:
		log.Printf("Webhook with status %q for txRef %s ignored", payload.Data.Status, payload.Data.TxRef)
		return nil
	}
}

// Status returns the payment without contacting the gateway. Visible to the
// paying passenger and the journey's driver only.
func (s *PaymentService) Status(ctx context.Context, paymentID, requesterID uint) (*models.Payment, error) {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, ErrNotFound
	}
	if payment.PassengerID != requesterID && payment.DriverID != requesterID {
		return nil, ErrUnauthorized
	}
	return payment, nil
}

// PollStatus returns the payment, resolving a pending state against the
// gateway first when a provider transaction id is known. Verification
// failures are logged and the local state returned untouched; a poll must
// never invent a failure.
func (s *PaymentService) PollStatus(ctx context.Context, paymentID, requesterID uint) (*models.Payment, error) {
	payment, err := s.Status(ctx, paymentID, requesterID)
	if err != nil {
		return nil, err
	}

	if payment.Status == models.PaymentStatusPending && payment.TransactionID != 0 {
		verified, verr := s.gateway.VerifyTransaction(ctx, payment.TransactionID)
		if verr != nil {
			log.Printf("Verify failed for payment %d: %v", payment.ID, verr)
			return payment, nil
		}
		switch verified.Status {
		case gateway.ChargeStatusSuccessful:
			if herr := s.markHeld(ctx, payment, verified.FlwRef, verified.TransactionID); herr != nil {
				log.Printf("Failed to apply verify result for payment %d: %v", payment.ID, herr)
			}
		case gateway.ChargeStatusFailed:
			if ferr := s.markFailed(ctx, payment, "charge failed (verify)"); ferr != nil {
				log.Printf("Failed to apply verify result for payment %d: %v", payment.ID, ferr)
			}
		}
		return s.payments.FindByID(ctx, payment.ID)
	}

	return payment, nil
}

// Release moves a held payment to released, authorizing the driver payout.
// Only the journey lifecycle calls this, on trip completion. No gateway call
// is made; settlement of the payout itself happens out-of-band.
func (s *PaymentService) Release(ctx context.Context, paymentID uint) error {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return ErrNotFound
	}

	now := time.Now()
	ok, err := s.payments.UpdateIfStatus(ctx, paymentID, models.PaymentStatusHeld, map[string]interface{}{
		"status":      models.PaymentStatusReleased,
		"released_at": &now,
	})
	if err != nil {
		return err
	}
	if !ok {
		fresh, ferr := s.payments.FindByID(ctx, paymentID)
		if ferr == nil {
			log.Printf("Release rejected for payment %d: status is %s", paymentID, fresh.Status)
		}
		return ErrPaymentNotHeld
	}

	if _, err := s.bookings.UpdateIfStatus(ctx, payment.BookingID, models.BookingStatusConfirmed, map[string]interface{}{
		"status": models.BookingStatusCompleted,
	}); err != nil {
		log.Printf("Failed to complete booking %d after release: %v", payment.BookingID, err)
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, payment.DriverID, EventPaymentReleased, map[string]interface{}{
			"paymentId": payment.ID,
			"bookingId": payment.BookingID,
			"payout":    payment.DriverPayout,
			"currency":  payment.Currency,
		})
	}
	return nil
}

// Refund moves a held payment to refunded. Seat restoration, when it applies,
// is the caller's concern.
func (s *PaymentService) Refund(ctx context.Context, paymentID uint) error {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return ErrNotFound
	}

	ok, err := s.payments.UpdateIfStatus(ctx, paymentID, models.PaymentStatusHeld, map[string]interface{}{
		"status": models.PaymentStatusRefunded,
	})
	if err != nil {
		return err
	}
	if !ok {
		fresh, ferr := s.payments.FindByID(ctx, paymentID)
		if ferr == nil {
			log.Printf("Refund rejected for payment %d: status is %s", paymentID, fresh.Status)
		}
		return ErrPaymentNotHeld
	}

	if _, err := s.bookings.UpdateIfStatus(ctx, payment.BookingID, models.BookingStatusConfirmed, map[string]interface{}{
		"status": models.BookingStatusRefunded,
	}); err != nil {
		log.Printf("Failed to mark booking %d refunded: %v", payment.BookingID, err)
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, payment.PassengerID, EventPaymentRefunded, map[string]interface{}{
			"paymentId": payment.ID,
			"bookingId": payment.BookingID,
			"amount":    payment.Amount,
			"currency":  payment.Currency,
		})
	}
	return nil
}

// markHeld applies the pending -> held transition. A lost race against
// another writer is tolerated when the other writer got the payment to held.
func (s *PaymentService) markHeld(ctx context.Context, payment *models.Payment, flwRef string, transactionID int64) error {
	fields := map[string]interface{}{
		"status": models.PaymentStatusHeld,
	}
	if flwRef != "" {
		fields["flw_ref"] = flwRef
	}
	if transactionID != 0 {
		fields["transaction_id"] = transactionID
	}

	ok, err := s.payments.UpdateIfStatus(ctx, payment.ID, models.PaymentStatusPending, fields)
	if err != nil {
		return err
	}
	if !ok {
		fresh, ferr := s.payments.FindByID(ctx, payment.ID)
		if ferr != nil {
			return ferr
		}
		if fresh.Status == models.PaymentStatusHeld {
			return nil
		}
		return &InvalidStateTransitionError{
			Entity:    "payment",
			Current:   string(fresh.Status),
			Attempted: string(models.PaymentStatusHeld),
		}
	}

	if _, err := s.bookings.UpdateIfStatus(ctx, payment.BookingID, models.BookingStatusPending, map[string]interface{}{
		"status": models.BookingStatusConfirmed,
	}); err != nil {
		log.Printf("Failed to confirm booking %d after hold: %v", payment.BookingID, err)
	}

	if s.notifier != nil {
		payload := map[string]interface{}{
			"paymentId": payment.ID,
			"bookingId": payment.BookingID,
			"amount":    payment.Amount,
			"currency":  payment.Currency,
		}
		s.notifier.Notify(ctx, payment.PassengerID, EventPaymentHeld, payload)
		s.notifier.Notify(ctx, payment.DriverID, EventPaymentHeld, payload)
	}
	return nil
}

// markFailed applies the pending -> failed transition and finalizes the
// booking: the reservation is cancelled and its seats go back to the journey.
func (s *PaymentService) markFailed(ctx context.Context, payment *models.Payment, reason string) error {
	ok, err := s.payments.UpdateIfStatus(ctx, payment.ID, models.PaymentStatusPending, map[string]interface{}{
		"status":         models.PaymentStatusFailed,
		"failure_reason": reason,
	})
	if err != nil {
		return err
	}
	if !ok {
		fresh, ferr := s.payments.FindByID(ctx, payment.ID)
		if ferr != nil {
			return ferr
		}
		if fresh.Status == models.PaymentStatusFailed {
			return nil
		}
		return &InvalidStateTransitionError{
			Entity:    "payment",
			Current:   string(fresh.Status),
			Attempted: string(models.PaymentStatusFailed),
		}
	}

	cancelled, err := s.bookings.UpdateIfStatus(ctx, payment.BookingID, models.BookingStatusPending, map[string]interface{}{
		"status": models.BookingStatusCancelled,
	})
	if err != nil {
		log.Printf("Failed to cancel booking %d after payment failure: %v", payment.BookingID, err)
	}
	if cancelled {
		if booking, berr := s.bookings.FindByID(ctx, payment.BookingID); berr == nil {
			if _, serr := s.journeys.AdjustSeats(ctx, payment.JourneyID, booking.Seats); serr != nil {
				log.Printf("Failed to restore %d seats on journey %d: %v", booking.Seats, payment.JourneyID, serr)
			}
		}
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, payment.PassengerID, EventPaymentFailed, map[string]interface{}{
			"paymentId": payment.ID,
			"bookingId": payment.BookingID,
			"reason":    reason,
		})
	}
	return nil
}
