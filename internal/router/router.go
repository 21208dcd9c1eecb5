// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/sportshub-ticketing/internal/handler"
	"github.com/iliyamo/sportshub-ticketing/internal/middleware"
	"github.com/iliyamo/sportshub-ticketing/internal/model"
)

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	Auth      *handler.AuthHandler
	Booking   *handler.BookingHandler
	Stadium   *handler.StadiumHandler
	Events    *handler.EventsHandler
	Payment   *handler.PaymentHandler
	Health    echo.HandlerFunc
	JWTSecret string
	// Users backs the token gate; every protected request checks that the
	// account still exists and is active.
	Users middleware.UserLookup
	// RateLimit runs after the token gate on protected routes so that
	// per-user keys see the caller.  Nil disables limiting.
	RateLimit echo.MiddlewareFunc
	// EventsCache is applied to /events only; it may be a pass-through.
	EventsCache echo.MiddlewareFunc
}

// RegisterRoutes mounts the public operational endpoints and the /auth,
// /booking, /stadiums, /events and /payments groups.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	limit := h.RateLimit
	if limit == nil {
		limit = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	authn := middleware.JWTAuth(h.JWTSecret, h.Users)

	e.GET("/health", h.Health, limit)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	a := e.Group("/auth")
	a.POST("/signup", h.Auth.Signup, limit)
	a.POST("/login", h.Auth.Login, limit)
	a.POST("/refresh", h.Auth.Refresh, limit)
	a.POST("/logout", h.Auth.Logout, authn, limit)
	a.GET("/me", h.Auth.Me, authn, limit)

	b := e.Group("/booking", authn, limit)
	b.POST("/book-seats", h.Booking.BookSeats)
	b.GET("/", h.Booking.GetBookings)
	b.POST("/cancel-booking", h.Booking.CancelBooking)

	s := e.Group("/stadiums", authn, limit)
	s.GET("/", h.Stadium.ListSeatMaps)
	s.GET("/seat-map/:id", h.Stadium.GetSeatMap)
	owner := middleware.RequireRole(model.RoleOwner)
	s.POST("/seat-map", h.Stadium.CreateSeatMap, owner)
	s.PATCH("/seats/:id/price", h.Stadium.UpdateSeatPrice, owner)

	ev := e.Group("/events", authn, limit)
	if h.EventsCache != nil {
		ev.Use(h.EventsCache)
	}
	ev.GET("/", h.Events.ListEvents)

	p := e.Group("/payments", authn, limit)
	p.POST("/process", h.Payment.Process)
}
