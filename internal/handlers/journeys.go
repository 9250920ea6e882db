package handlers

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/takumbeng/covoit-backend/internal/models"
	"github.com/takumbeng/covoit-backend/internal/services"
)

// CreateJourney handles the creation of a new journey by a driver
func CreateJourney(journeys *services.JourneyService, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		userType := c.GetString("userType")

		if userType != string(models.UserTypeDriver) {
			c.JSON(403, gin.H{"error": "Only drivers can create journeys"})
			return
		}

		var input struct {
			DepartureCity string `json:"departureCity" binding:"required"`
			ArrivalCity   string `json:"arrivalCity" binding:"required"`
			DepartureDate string `json:"departureDate" binding:"required"`
			DepartureTime string `json:"departureTime" binding:"required"`
			Seats         int    `json:"seats" binding:"required"`
			PricePerSeat  int64  `json:"pricePerSeat" binding:"required"`
			Currency      string `json:"currency"`
			Vehicle       string `json:"vehicle"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		journey, err := journeys.Create(c.Request.Context(), services.CreateJourneyRequest{
			DriverID:      userId,
			DepartureCity: input.DepartureCity,
			ArrivalCity:   input.ArrivalCity,
			DepartureDate: input.DepartureDate,
			DepartureTime: input.DepartureTime,
			Seats:         input.Seats,
			PricePerSeat:  input.PricePerSeat,
			Currency:      input.Currency,
			Vehicle:       input.Vehicle,
		})
		if err != nil {
			respondServiceError(c, err)
			return
		}

		// Announce the new journey to connected passengers and to the push
		// topic subscribers
		if hub != nil {
			hub.AnnounceJourney(services.JourneyUpdate{
				JourneyID: journey.ID,
				Status:    string(journey.Status),
			})
		}
		go func() {
			ctx := context.Background()
			payload := services.NotificationPayload{
				Title: "New journey available",
				Body: fmt.Sprintf("From %s to %s on %s - %d %s per seat",
					journey.DepartureCity, journey.ArrivalCity, journey.DepartureDate,
					journey.PricePerSeat, journey.Currency),
				Data: map[string]interface{}{
					"type":      "new_journey_available",
					"journeyId": fmt.Sprintf("%d", journey.ID),
				},
				ChannelID: "covoit_journeys",
				Priority:  "high",
			}
			if err := services.SendTopicNotification(ctx, "passengers-new-journeys", payload); err != nil {
				log.Printf("Failed to announce journey %d: %v", journey.ID, err)
			}
		}()

		c.JSON(201, journey)
	}
}

// SearchJourneys lists bookable journeys with optional filters
func SearchJourneys(journeys *services.JourneyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		criteria := services.JourneySearch{
			DepartureCity: c.Query("departureCity"),
			ArrivalCity:   c.Query("arrivalCity"),
			Date:          c.Query("date"),
		}

		results, err := journeys.Search(c.Request.Context(), criteria)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to search journeys"})
			return
		}

		c.JSON(200, results)
	}
}

// GetJourney returns a single journey
func GetJourney(journeys *services.JourneyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		journeyID, err := parseID(c.Param("id"))
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid journey ID"})
			return
		}

		journey, err := journeys.Get(c.Request.Context(), journeyID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(200, journey)
	}
}

// GetDriverJourneys lists the authenticated driver's journeys
func GetDriverJourneys(journeys *services.JourneyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		results, err := journeys.ListByDriver(c.Request.Context(), userId)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch journeys"})
			return
		}

		c.JSON(200, results)
	}
}

// StartJourney moves a scheduled journey to in progress
func StartJourney(journeys *services.JourneyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		journeyID, err := parseID(c.Param("id"))
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid journey ID"})
			return
		}

		journey, err := journeys.Start(c.Request.Context(), journeyID, userId)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		if err := services.PublishJourneyUpdate(c.Request.Context(), journeyID, string(journey.Status), nil); err != nil {
			log.Printf("Failed to publish journey update: %v", err)
		}

		c.JSON(200, journey)
	}
}

// CompleteJourney finishes a journey and releases held payments. Release
// failures degrade the response but never undo the completion.
func CompleteJourney(journeys *services.JourneyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		journeyID, err := parseID(c.Param("id"))
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid journey ID"})
			return
		}

		summary, err := journeys.Complete(c.Request.Context(), journeyID, userId)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		if err := services.PublishJourneyUpdate(c.Request.Context(), journeyID, string(models.JourneyStatusCompleted), nil); err != nil {
			log.Printf("Failed to publish journey update: %v", err)
		}

		message := "Journey completed"
		if summary.Failed > 0 {
			message = "Journey completed with payment release failures"
		}
		c.JSON(200, gin.H{
			"message":  message,
			"journey":  summary.Journey,
			"payments": summary.Outcomes,
			"failed":   summary.Failed,
		})
	}
}

// CancelJourney cancels a journey and refunds held payments
func CancelJourney(journeys *services.JourneyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		journeyID, err := parseID(c.Param("id"))
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid journey ID"})
			return
		}

		summary, err := journeys.Cancel(c.Request.Context(), journeyID, userId)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		if err := services.PublishJourneyUpdate(c.Request.Context(), journeyID, string(models.JourneyStatusCancelled), nil); err != nil {
			log.Printf("Failed to publish journey update: %v", err)
		}

		message := "Journey cancelled"
		if summary.Failed > 0 {
			message = "Journey cancelled with refund failures"
		}
		c.JSON(200, gin.H{
			"message":  message,
			"journey":  summary.Journey,
			"payments": summary.Outcomes,
			"failed":   summary.Failed,
		})
	}
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
