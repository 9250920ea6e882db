package services

import (
	"context"
	"encoding/json"
	"log"

	"github.com/takumbeng/covoit-backend/internal/models"
)

// Notification event kinds emitted by the core services.
const (
	EventBookingCreated   = "booking_created"
	EventPaymentHeld      = "payment_held"
	EventPaymentFailed    = "payment_failed"
	EventPaymentReleased  = "payment_released"
	EventPaymentRefunded  = "payment_refunded"
	EventJourneyStarted   = "journey_started"
	EventJourneyCompleted = "journey_completed"
	EventJourneyCancelled = "journey_cancelled"
)

// Notifier delivers lifecycle events to a recipient. Delivery is
// fire-and-forget from the caller's perspective; implementations log their
// own failures and never propagate them.
type Notifier interface {
	Notify(ctx context.Context, recipientID uint, event string, payload map[string]interface{})
}

// Dispatcher fans an event out over the WebSocket hub and FCM push.
type Dispatcher struct {
	hub    *Hub
	tokens TokenLookup
}

// TokenLookup resolves a user's registered device tokens.
type TokenLookup interface {
	TokensForUser(ctx context.Context, userID uint) ([]string, error)
}

func NewDispatcher(hub *Hub, tokens TokenLookup) *Dispatcher {
	return &Dispatcher{hub: hub, tokens: tokens}
}

func (d *Dispatcher) Notify(ctx context.Context, recipientID uint, event string, payload map[string]interface{}) {
	// Realtime path over WebSocket
	if d.hub != nil {
		d.emitRealtime(recipientID, event, payload)
	}

	// Push path over FCM
	if d.tokens == nil || MessagingClient == nil {
		return
	}
	tokens, err := d.tokens.TokensForUser(ctx, recipientID)
	if err != nil {
		log.Printf("Failed to load device tokens for user %d: %v", recipientID, err)
		return
	}
	for _, token := range tokens {
		if err := SendPushNotification(ctx, token, pushPayloadFor(event, payload)); err != nil {
			log.Printf("Failed to push %s to user %d: %v", event, recipientID, err)
		}
	}
}

// emitRealtime translates a lifecycle event into the typed WebSocket update
// for its entity.
func (d *Dispatcher) emitRealtime(recipientID uint, event string, payload map[string]interface{}) {
	switch event {
	case EventPaymentHeld, EventPaymentFailed, EventPaymentReleased, EventPaymentRefunded:
		amount := payloadInt64(payload, "amount")
		if amount == 0 {
			amount = payloadInt64(payload, "payout")
		}
		d.hub.SendPaymentUpdate(recipientID, PaymentUpdate{
			PaymentID: payloadUint(payload, "paymentId"),
			BookingID: payloadUint(payload, "bookingId"),
			Status:    string(paymentStatusForEvent(event)),
			Amount:    amount,
			Currency:  payloadString(payload, "currency"),
		})
	case EventJourneyStarted, EventJourneyCompleted, EventJourneyCancelled:
		d.hub.SendJourneyUpdate(recipientID, JourneyUpdate{
			JourneyID: payloadUint(payload, "journeyId"),
			Status:    string(journeyStatusForEvent(event)),
		})
	case EventBookingCreated:
		d.hub.SendBookingUpdate(recipientID, BookingUpdate{
			BookingID: payloadUint(payload, "bookingId"),
			JourneyID: payloadUint(payload, "journeyId"),
			Seats:     int(payloadInt64(payload, "seats")),
			Status:    string(models.BookingStatusPending),
		})
	default:
		message := WebSocketMessage{Type: event, Data: payload}
		data, err := json.Marshal(message)
		if err != nil {
			log.Printf("Error marshaling %s notification: %v", event, err)
			return
		}
		d.hub.BroadcastToUser(recipientID, data)
	}
}

func paymentStatusForEvent(event string) models.PaymentStatus {
	switch event {
	case EventPaymentHeld:
		return models.PaymentStatusHeld
	case EventPaymentFailed:
		return models.PaymentStatusFailed
	case EventPaymentReleased:
		return models.PaymentStatusReleased
	case EventPaymentRefunded:
		return models.PaymentStatusRefunded
	}
	return ""
}

func journeyStatusForEvent(event string) models.JourneyStatus {
	switch event {
	case EventJourneyStarted:
		return models.JourneyStatusInProgress
	case EventJourneyCompleted:
		return models.JourneyStatusCompleted
	case EventJourneyCancelled:
		return models.JourneyStatusCancelled
	}
	return ""
}

func payloadUint(payload map[string]interface{}, key string) uint {
	switch v := payload[key].(type) {
	case uint:
		return v
	case int:
		return uint(v)
	case int64:
		return uint(v)
	case float64:
		return uint(v)
	}
	return 0
}

func payloadInt64(payload map[string]interface{}, key string) int64 {
	switch v := payload[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case uint:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func payloadString(payload map[string]interface{}, key string) string {
	s, _ := payload[key].(string)
	return s
}

func pushPayloadFor(event string, payload map[string]interface{}) NotificationPayload {
	titles := map[string]string{
		EventBookingCreated:   "New booking on your journey",
		EventPaymentHeld:      "Payment confirmed",
		EventPaymentFailed:    "Payment failed",
		EventPaymentReleased:  "Payout released",
		EventPaymentRefunded:  "Payment refunded",
		EventJourneyStarted:   "Your journey has started",
		EventJourneyCompleted: "Journey completed",
		EventJourneyCancelled: "Journey cancelled",
	}
	title := titles[event]
	if title == "" {
		title = "Covoit update"
	}

	data := map[string]interface{}{"type": event}
	for k, v := range payload {
		data[k] = v
	}

	return NotificationPayload{
		Title:     title,
		Body:      "Open the app for details",
		Data:      data,
		ChannelID: "covoit_trips",
		Priority:  "high",
	}
}
