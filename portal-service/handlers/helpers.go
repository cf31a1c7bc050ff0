package handlers

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"portal-backend/portal-service/services"
	"portal-backend/shared/apperrors"
)

// bindJSON decodes the request body into dst. An empty body leaves dst
// untouched so that required-field checks report what is missing.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		apperrors.Respond(c, apperrors.BadRequest(apperrors.KeyDetail, "JSON parse error - "+err.Error()))
		return false
	}
	return true
}

func clientInfo(c *gin.Context) services.ClientInfo {
	return services.ClientInfo{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// userIDParam parses :id. A malformed id becomes uuid.Nil, which never
// matches a user, so access rules still run before the lookup fails.
func userIDParam(c *gin.Context) uuid.UUID {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func submissionIDParam(c *gin.Context) uint {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// withToken merges the session token into a profile view.
func withToken(profile map[string]any, token string) map[string]any {
	if token == "" {
		return profile
	}
	out := make(map[string]any, len(profile)+1)
	for k, v := range profile {
		out[k] = v
	}
	out["token"] = token
	return out
}
