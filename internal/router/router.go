package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"                   // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware" // echo's built-in middleware (CORS, recover, logging)
	"github.com/redis/go-redis/v9"

	"github.com/fengtai-hotel/shuttle-reservation/internal/config"
	"github.com/fengtai-hotel/shuttle-reservation/internal/handler"    // import the handlers that implement business logic
	"github.com/fengtai-hotel/shuttle-reservation/internal/middleware" // import the Redis-backed rate limiter
)

// RegisterRoutes registers the base middleware and unauthenticated routes on
// the provided Echo instance: panic recovery, request logging, CORS for the
// hotel-web origins, the health check and the QR image endpoint.
func RegisterRoutes(e *echo.Echo, corsOrigins []string) {
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: corsOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))

	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
	e.GET("/health", handler.Health)

	// The QR image endpoint is public: the payload itself is the credential
	// and carries no personal data beyond a hashed email.
	e.GET("/api/qr/:payload", handler.QRCode)
}

// RegisterOps registers the multiplexed booking endpoint.  The rate limiter
// guards it because this is the only route anonymous guests can write
// through.
func RegisterOps(e *echo.Echo, h *handler.OpsHandler, rl config.RateLimitConfig, rdb *redis.Client) {
	e.POST("/api/ops", h.Ops, middleware.RateLimit(rl, rdb))
}
