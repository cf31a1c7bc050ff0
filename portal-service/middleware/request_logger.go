package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"portal-backend/shared/logger"
)

const RequestIDHeader = "X-Request-ID"

// RequestID injects a correlation identifier into the request context and
// the response headers.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}

		c.Writer.Header().Set(RequestIDHeader, reqID)
		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey{}, reqID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// Logger emits one access log line per request with masked client IP.
func Logger(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", logger.RequestIDFromContext(c.Request.Context())),
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", logger.MaskIP(c.ClientIP())),
		}
		if viewer := GetViewer(c); !viewer.IsAnonymous() {
			fields = append(fields, zap.String("user_id", viewer.User.ID.String()))
		}

		switch {
		case len(c.Errors) > 0 && c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request failed", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		case len(c.Errors) > 0:
			log.Warn("request rejected", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		log.Info("request completed", fields...)
	}
}
