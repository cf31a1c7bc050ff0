package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portal-backend/portal-service/middleware"
	"portal-backend/portal-service/services"
	"portal-backend/shared/apperrors"
	"portal-backend/shared/utils/payload"
)

type AuthFlowHandler struct {
	flows *services.AuthFlowService
}

func NewAuthFlowHandler(flows *services.AuthFlowService) *AuthFlowHandler {
	return &AuthFlowHandler{flows: flows}
}

// EmailRequest is the body of a password reset request.
type EmailRequest struct {
	Email string `json:"email" example:"anna@example.com"`
}

// PasswordRequest is the body of a password reset.
type PasswordRequest struct {
	Password string `json:"password" example:"Brandnew789"`
}

// POST /api/users/request-email-verification/
// @Summary Request email verification
// @Description Mails a verification link; at most one every 2 hours
// @Tags verification
// @Produce json
// @Security TokenAuth
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string "VerificationAlreadyActive or PermissionDenied"
// @Failure 502 {object} map[string]string "EmailDeliveryFailed"
// @Router /users/request-email-verification/ [post]
func (h *AuthFlowHandler) RequestEmailVerification(c *gin.Context) {
	out, err := h.flows.RequestEmailVerification(c.Request.Context(), middleware.GetViewer(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/users/verify-email/{token}/
// @Summary Verify email
// @Tags verification
// @Produce json
// @Param token path string true "Verification token"
// @Security TokenAuth
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string "TokenNotFound, TokenExpired or PermissionDenied"
// @Router /users/verify-email/{token}/ [post]
func (h *AuthFlowHandler) VerifyEmail(c *gin.Context) {
	out, err := h.flows.VerifyEmail(c.Request.Context(), middleware.GetViewer(c), c.Param("token"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/users/request-password-reset/
// @Summary Request password reset
// @Description Mails a reset link; at most one every 15 minutes
// @Tags verification
// @Accept json
// @Produce json
// @Param body body EmailRequest true "Account email"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "UserDoesNotExist or missing email"
// @Failure 403 {object} map[string]string "PasswordResetAlreadyActive or PermissionDenied"
// @Failure 502 {object} map[string]string "EmailDeliveryFailed"
// @Router /users/request-password-reset/ [post]
func (h *AuthFlowHandler) RequestPasswordReset(c *gin.Context) {
	var p payload.EmailPayload
	if !bindJSON(c, &p) {
		return
	}

	out, err := h.flows.RequestPasswordReset(c.Request.Context(), middleware.GetViewer(c), &p, clientInfo(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/users/reset-password/{token}/
// @Summary Reset password
// @Tags verification
// @Accept json
// @Produce json
// @Param token path string true "Reset token"
// @Param body body PasswordRequest true "New password"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string][]string
// @Failure 403 {object} map[string]string "TokenNotFound, TokenExpired or PermissionDenied"
// @Router /users/reset-password/{token}/ [post]
func (h *AuthFlowHandler) ResetPassword(c *gin.Context) {
	var p payload.PasswordPayload
	if !bindJSON(c, &p) {
		return
	}

	out, err := h.flows.ResetPassword(c.Request.Context(), middleware.GetViewer(c), c.Param("token"), &p)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
