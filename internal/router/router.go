package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/middleware"
)

// Register wires every route of the API onto the provided Echo instance.
//
// Layout:
//
//	GET  /healthz                      liveness probe, no auth
//	POST /v1/auth/register|login|...   session management, no auth
//	/v1/...                            everything else behind JWT auth
//
// Booking writes additionally pass through the Redis token bucket so a
// single client cannot hammer the lock path.
func Register(e *echo.Echo, cfg config.Config, rdb *redis.Client,
	auth *handler.AuthHandler, events *handler.EventHandler, bookings *handler.BookingHandler) {

	e.GET("/healthz", handler.Health)

	// Session endpoints do not require an existing access token.
	a := e.Group("/v1/auth")
	a.POST("/register", auth.Register)
	a.POST("/login", auth.Login)
	a.POST("/refresh", auth.Refresh)
	a.POST("/logout", auth.Logout)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(cfg.JWTSecret))

	v1.GET("/me", auth.Me)
	// Authenticated logout revokes every session of the caller; the
	// unauthenticated variant above needs a refresh token in the body.
	v1.POST("/logout", auth.Logout)

	v1.POST("/events", events.Create)
	v1.GET("/events", events.List)
	v1.GET("/events/:id", events.Get)
	v1.GET("/events/:id/availability", events.Availability)
	v1.GET("/events/:id/bookings", bookings.ListByEvent)

	// Contended write path gets its own group so the rate limiter only
	// covers booking creation and cancellation.
	writes := e.Group("/v1/bookings")
	writes.Use(middleware.JWTAuth(cfg.JWTSecret))
	writes.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	writes.POST("", bookings.Create)
	writes.DELETE("/:id", bookings.Cancel)

	v1.GET("/bookings", bookings.ListMine)
	v1.GET("/bookings/top", bookings.TopBookers)
}
