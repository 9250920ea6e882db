package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	return hub
}

func registerClient(t *testing.T, hub *Hub, userID uint, userType string, buffer int) *Client {
	t.Helper()
	client := &Client{
		ID:       userID,
		UserType: userType,
		Send:     make(chan []byte, buffer),
		Hub:      hub,
	}
	before := hub.GetConnectedClients()
	hub.register <- client
	require.Eventually(t, func() bool {
		return hub.GetConnectedClients() == before+1
	}, time.Second, 5*time.Millisecond)
	return client
}

func TestHubSurvivesConcurrentBroadcastsToSlowClients(t *testing.T) {
	hub := startHub(t)

	// Unbuffered, never-read channels: every broadcast hits the eviction path
	for i := 0; i < 4; i++ {
		registerClient(t, hub, 1, "passenger", 0)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.BroadcastToUser(1, []byte(`{"type":"payment_update"}`))
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.GetConnectedClients(), "slow clients are evicted exactly once")
}

func TestHubBroadcastReachesOnlyTargetUser(t *testing.T) {
	hub := startHub(t)
	target := registerClient(t, hub, 7, "driver", 4)
	other := registerClient(t, hub, 8, "driver", 4)

	hub.BroadcastToUser(7, []byte(`{"type":"ping"}`))

	select {
	case <-target.Send:
	case <-time.After(time.Second):
		t.Fatal("target client never received the broadcast")
	}
	select {
	case <-other.Send:
		t.Fatal("broadcast leaked to another user")
	default:
	}
}

func receiveMessage(t *testing.T, client *Client) WebSocketMessage {
	t.Helper()
	select {
	case raw := <-client.Send:
		var message WebSocketMessage
		require.NoError(t, json.Unmarshal(raw, &message))
		return message
	case <-time.After(time.Second):
		t.Fatal("no WebSocket message received")
		return WebSocketMessage{}
	}
}

func TestDispatcherEmitsTypedPaymentUpdate(t *testing.T) {
	hub := startHub(t)
	client := registerClient(t, hub, 7, "driver", 4)
	dispatcher := NewDispatcher(hub, nil)

	dispatcher.Notify(context.Background(), 7, EventPaymentReleased, map[string]interface{}{
		"paymentId": uint(3),
		"bookingId": uint(9),
		"payout":    int64(9000),
		"currency":  "XAF",
	})

	message := receiveMessage(t, client)
	assert.Equal(t, "payment_update", message.Type)

	data := message.Data.(map[string]interface{})
	assert.Equal(t, float64(3), data["paymentId"])
	assert.Equal(t, "released", data["status"])
	assert.Equal(t, float64(9000), data["amount"])
	assert.Equal(t, "XAF", data["currency"])
}

func TestDispatcherEmitsTypedJourneyAndBookingUpdates(t *testing.T) {
	hub := startHub(t)
	client := registerClient(t, hub, 5, "passenger", 4)
	dispatcher := NewDispatcher(hub, nil)

	dispatcher.Notify(context.Background(), 5, EventJourneyCancelled, map[string]interface{}{
		"journeyId": uint(11),
		"bookingId": uint(2),
	})
	message := receiveMessage(t, client)
	assert.Equal(t, "journey_update", message.Type)
	data := message.Data.(map[string]interface{})
	assert.Equal(t, float64(11), data["journeyId"])
	assert.Equal(t, "cancelled", data["status"])

	dispatcher.Notify(context.Background(), 5, EventBookingCreated, map[string]interface{}{
		"bookingId": uint(2),
		"journeyId": uint(11),
		"seats":     3,
	})
	message = receiveMessage(t, client)
	assert.Equal(t, "booking_update", message.Type)
	data = message.Data.(map[string]interface{})
	assert.Equal(t, float64(3), data["seats"])
	assert.Equal(t, "pending", data["status"])
}

func TestAnnounceJourneyReachesPassengersOnly(t *testing.T) {
	hub := startHub(t)
	passenger := registerClient(t, hub, 5, "passenger", 4)
	driver := registerClient(t, hub, 6, "driver", 4)

	hub.AnnounceJourney(JourneyUpdate{JourneyID: 11, Status: "scheduled"})

	message := receiveMessage(t, passenger)
	assert.Equal(t, "new_journey_available", message.Type)

	select {
	case <-driver.Send:
		t.Fatal("journey announcement leaked to a driver")
	default:
	}
}
