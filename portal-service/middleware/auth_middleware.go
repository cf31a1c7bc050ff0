package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"portal-backend/shared/apperrors"
	"portal-backend/shared/database/models"
	"portal-backend/shared/utils/permission"
)

const viewerKey = "viewer"

// SessionResolver maps a session token to its user.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// ResolveViewer identifies the caller. Requests without an Authorization
// header continue anonymously; a header with a bad token is rejected.
func ResolveViewer(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Set(viewerKey, permission.Anonymous())
			c.Next()
			return
		}

		token, ok := ExtractToken(authHeader)
		if !ok {
			apperrors.Respond(c, apperrors.Unauthorized("Invalid authorization header. Expected Token {token} or Bearer {token}."))
			return
		}

		user, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}

		c.Set(viewerKey, permission.As(user))
		c.Next()
	}
}

// ExtractToken accepts "Token <t>" and "Bearer <t>".
func ExtractToken(authHeader string) (string, bool) {
	tokenParts := strings.Fields(authHeader)
	if len(tokenParts) != 2 {
		return "", false
	}
	switch strings.ToLower(tokenParts[0]) {
	case "token", "bearer":
		return tokenParts[1], true
	}
	return "", false
}

// GetViewer returns the viewer resolved for this request.
func GetViewer(c *gin.Context) permission.Viewer {
	if v, exists := c.Get(viewerKey); exists {
		if viewer, ok := v.(permission.Viewer); ok {
			return viewer
		}
	}
	return permission.Anonymous()
}
