package apperrors

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portal-backend/shared/logger"
)

// Respond writes err to the client. Anything that is not an AppError becomes a
// 500 with a generic detail message.
func Respond(c *gin.Context, err error) {
	appErr, ok := AsAppError(err)
	if !ok {
		appErr = Internal(err)
	}

	if appErr.HTTPCode >= 500 {
		logger.WithContext(c.Request.Context()).Error("request failed",
			zap.String("code", string(appErr.Code)),
			zap.Error(appErr.Unwrap()),
		)
	}

	_ = c.Error(appErr)
	c.AbortWithStatusJSON(appErr.HTTPCode, appErr.Body())
}
