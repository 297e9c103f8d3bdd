package api

import (
	"github.com/gin-gonic/gin"

	"github.com/seongjae-dev/optionpulse/internal/api/handlers"
	"github.com/seongjae-dev/optionpulse/internal/middleware"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Health  *handlers.HealthHandler
	Signals *handlers.SignalHandler
	Stream  *handlers.StreamHandler
	Auth    *middleware.AuthMiddleware
}

// SetupRoutes mounts all HTTP endpoints. The run trigger and the live
// stream are authenticated; read-only signal lookups are public.
func SetupRoutes(router *gin.Engine, h Handlers) {
	router.GET("/health", h.Health.Check)

	v1 := router.Group("/api/v1")
	{
		signals := v1.Group("/signals")
		{
			signals.POST("/run", h.Auth.RequireAuth(), h.Signals.Run)
			signals.GET("/preview", h.Signals.Preview)
			signals.GET("/latest", h.Signals.Latest)
			signals.GET("/:id", h.Signals.GetByID)
		}

		v1.GET("/stream", h.Auth.RequireAuth(), h.Stream.Stream)
	}
}
