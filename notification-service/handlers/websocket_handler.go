package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portal-backend/notification-service/services"
	"portal-backend/shared/clients"
)

type WebSocketHandler struct {
	hub *services.Hub
}

func NewWebSocketHandler(hub *services.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// Connect godoc
// @Summary WebSocket connection
// @Description Subscribe to realtime events; staff clients pass channel=staff
// @Tags websocket
// @Param user_id path string true "User ID"
// @Param channel query string false "Channel to join"
// @Router /ws/notifications/{user_id} [get]
func (h *WebSocketHandler) Connect(c *gin.Context) {
	h.hub.Serve(c)
}

// Send godoc
// @Summary Push realtime event
// @Description Deliver an event to one user or every subscriber of a channel
// @Tags websocket
// @Accept json
// @Produce json
// @Param payload body clients.PushRequest true "Push request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /ws/send [post]
func (h *WebSocketHandler) Send(c *gin.Context) {
	var request clients.PushRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request payload"})
		return
	}

	delivered, err := h.hub.Publish(request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	// Nobody listening is not an error for the sender.
	c.JSON(http.StatusOK, gin.H{"delivered": delivered})
}
