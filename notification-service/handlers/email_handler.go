package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"portal-backend/notification-service/services"
	"portal-backend/shared/clients"
)

// EmailHandler handles email-related HTTP requests
type EmailHandler struct {
	emailService *services.EmailService
}

func NewEmailHandler(emailService *services.EmailService) *EmailHandler {
	return &EmailHandler{emailService: emailService}
}

// SendEmail godoc
// @Summary Send templated email
// @Description Render one of the portal mail templates and deliver it over SMTP
// @Tags email
// @Accept json
// @Produce json
// @Param email body clients.SendEmailRequest true "Email request"
// @Success 200 {object} clients.EmailResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /api/notifications/email/send [post]
func (eh *EmailHandler) SendEmail(c *gin.Context) {
	var request clients.SendEmailRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request format", "errors": err.Error()})
		return
	}

	response, err := eh.emailService.Send(c.Request.Context(), request)
	if err != nil {
		if errors.Is(err, services.ErrUnknownTemplate) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"detail": "Failed to send email"})
		return
	}

	c.JSON(http.StatusOK, response)
}
