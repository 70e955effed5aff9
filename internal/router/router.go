package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/game-station-rental/internal/handler"
)

// RegisterRoutes wires the cashier's command surface onto the provided Echo
// instance.  The optional rate-limit middleware is applied to the whole /v1
// group; pass nil to skip it.  The health check lives outside the group so
// load balancers are never throttled.
func RegisterRoutes(e *echo.Echo, h *handler.BookingHandler, rateLimit echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)

	g := e.Group("/v1")
	if rateLimit != nil {
		g.Use(rateLimit)
	}

	// Booking lifecycle: create (assign or queue), cancel an active session,
	// remove a waiting customer from a queue.
	g.POST("/bookings", h.CreateBooking)
	g.DELETE("/devices/:id/bookings/:bookingId", h.CancelBooking)
	g.DELETE("/devices/:id/queue/:bookingId", h.RemoveQueued)

	// The promotion decision: when a device goes idle with customers
	// waiting, the engine raises a signal and the operator answers here.
	g.POST("/devices/:id/promotion", h.DecidePromotion)
	g.GET("/promotions", h.GetPromotions)

	// Settings: the two duration tiers.
	g.GET("/tiers", h.GetTiers)
	g.PUT("/tiers/:key", h.UpdateTier)

	// Read-only board for the operator's screen.
	g.GET("/devices", h.GetBoard)
	g.GET("/revenue", h.GetRevenue)
}
