package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/takumbeng/covoit-backend/internal/models"
	"github.com/takumbeng/covoit-backend/internal/services"
)

// CreateBooking reserves seats on a journey for the authenticated passenger
func CreateBooking(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		userType := c.GetString("userType")

		if userType != string(models.UserTypePassenger) {
			c.JSON(403, gin.H{"error": "Only passengers can create bookings"})
			return
		}

		var input struct {
			JourneyID uint `json:"journeyId" binding:"required"`
			Seats     int  `json:"seats" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		booking, err := bookings.Create(c.Request.Context(), userId, input.JourneyID, input.Seats)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(201, booking)
	}
}

// GetBooking returns a booking to its passenger or the journey's driver
func GetBooking(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		bookingID, err := parseID(c.Param("id"))
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid booking ID"})
			return
		}

		booking, err := bookings.Get(c.Request.Context(), bookingID, userId)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(200, booking)
	}
}

// GetMyBookings lists the authenticated passenger's bookings
func GetMyBookings(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		results, err := bookings.ListByPassenger(c.Request.Context(), userId)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch bookings"})
			return
		}

		c.JSON(200, results)
	}
}

// CancelBooking withdraws the authenticated passenger's reservation
func CancelBooking(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		bookingID, err := parseID(c.Param("id"))
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid booking ID"})
			return
		}

		booking, err := bookings.CancelByPassenger(c.Request.Context(), bookingID, userId)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(200, booking)
	}
}
