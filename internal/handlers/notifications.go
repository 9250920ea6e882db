package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/takumbeng/covoit-backend/internal/database"
)

// RegisterDeviceToken stores an FCM token for the authenticated user
func RegisterDeviceToken(tokens *database.TokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input struct {
			Token    string `json:"token" binding:"required"`
			Platform string `json:"platform"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if err := tokens.Register(c.Request.Context(), userId, input.Token, input.Platform); err != nil {
			c.JSON(500, gin.H{"error": "Failed to register token"})
			return
		}

		c.JSON(200, gin.H{"message": "Token registered"})
	}
}

// RemoveDeviceToken removes an FCM token for the authenticated user
func RemoveDeviceToken(tokens *database.TokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input struct {
			Token string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if err := tokens.Remove(c.Request.Context(), userId, input.Token); err != nil {
			c.JSON(500, gin.H{"error": "Failed to remove token"})
			return
		}

		c.JSON(200, gin.H{"message": "Token removed"})
	}
}
