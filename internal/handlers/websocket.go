package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/takumbeng/covoit-backend/internal/services"
)

// WebSocketHandler upgrades the connection and registers the client with the
// hub for realtime lifecycle updates
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		userType := c.GetString("userType")

		services.HandleWebSocket(hub, c.Writer, c.Request, userId, userType)
	}
}
