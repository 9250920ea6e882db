package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/takumbeng/covoit-backend/internal/services"
)

// respondServiceError translates a service error into an HTTP response.
// State-transition violations carry the current authoritative state so the
// client can resynchronize. Internal details never leak.
func respondServiceError(c *gin.Context, err error) {
	var validation *services.ValidationError
	if errors.As(err, &validation) {
		c.JSON(400, gin.H{"error": validation.Message})
		return
	}

	var transition *services.InvalidStateTransitionError
	if errors.As(err, &transition) {
		c.JSON(409, gin.H{
			"error":         transition.Error(),
			"currentStatus": transition.Current,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(403, gin.H{"error": "Unauthorized"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(404, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrPaymentNotHeld):
		c.JSON(409, gin.H{"error": "Payment is not held"})
	case errors.Is(err, services.ErrSeatsExhausted):
		c.JSON(409, gin.H{"error": "Not enough seats available"})
	case errors.Is(err, services.ErrSeatsOverflow):
		c.JSON(409, gin.H{"error": "Seat restoration exceeds total seats"})
	default:
		c.JSON(500, gin.H{"error": "Internal server error"})
	}
}
