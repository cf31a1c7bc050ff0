package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portal-backend/portal-service/handlers"
	"portal-backend/portal-service/middleware"
)

// Handlers bundles everything the portal routes dispatch to.
type Handlers struct {
	Users     *handlers.UserHandler
	Flows     *handlers.AuthFlowHandler
	Documents *handlers.IDDocumentHandler
}

// Limits configures the per endpoint rate limits.
type Limits struct {
	Limiter       *middleware.RateLimiter
	General       middleware.RateLimitConfig
	Login         middleware.RateLimitConfig
	PasswordReset middleware.RateLimitConfig
}

// Setup registers the /api routes on router.
func Setup(router *gin.Engine, h Handlers, resolver middleware.SessionResolver, limits *Limits) {
	api := router.Group("/api")
	api.Use(middleware.ResolveViewer(resolver))

	loginLimit, resetLimit := passThrough, passThrough
	if limits != nil && limits.Limiter != nil {
		api.Use(limits.Limiter.RateLimitMiddleware(limits.General))
		loginLimit = limits.Limiter.LoginRateLimitMiddleware(limits.Login)
		resetLimit = limits.Limiter.PasswordResetRateLimitMiddleware(limits.PasswordReset)
	}

	users := api.Group("/users")
	{
		users.GET("/", h.Users.ListUsers)
		users.POST("/", loginLimit, h.Users.CreateOrLogin)

		users.POST("/request-email-verification/", h.Flows.RequestEmailVerification)
		users.POST("/verify-email/:token/", h.Flows.VerifyEmail)
		users.POST("/request-password-reset/", resetLimit, h.Flows.RequestPasswordReset)
		users.POST("/reset-password/:token/", resetLimit, h.Flows.ResetPassword)

		users.GET("/:id/", h.Users.GetUser)
		users.PUT("/:id/", h.Users.UpdateUser)
		users.PATCH("/:id/", h.Users.UpdateUser)
	}

	docs := api.Group("/id-documents")
	{
		docs.GET("/", h.Documents.List)
		docs.POST("/", h.Documents.Submit)
		docs.PUT("/:id/verify/", h.Documents.Verify)
		docs.GET("/by-user/:id/", h.Documents.ListByUser)
	}
}

func passThrough(c *gin.Context) { c.Next() }

// Health reports liveness plus the state of optional backends.
func Health(checks map[string]func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{"status": "healthy", "service": "portal"}
		for name, check := range checks {
			if err := check(); err != nil {
				body[name] = "unavailable"
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				continue
			}
			body[name] = "ok"
		}
		c.JSON(status, body)
	}
}
