package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Register mounts the notification endpoints on router.
func Register(router *gin.Engine, email *EmailHandler, ws *WebSocketHandler) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "notification-service",
			"status":  "healthy",
		})
	})

	emailRoutes := router.Group("/api/notifications/email")
	{
		emailRoutes.POST("/send", email.SendEmail)
	}

	router.GET("/ws/notifications/:user_id", ws.Connect)
	router.POST("/ws/send", ws.Send)
}
