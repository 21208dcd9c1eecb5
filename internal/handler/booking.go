package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sportshub-ticketing/internal/booking"
	"github.com/iliyamo/sportshub-ticketing/internal/logging"
	"github.com/iliyamo/sportshub-ticketing/internal/model"
)

// BookingService is the part of booking.Coordinator the handlers use.
type BookingService interface {
	ReserveSeats(ctx context.Context, req booking.ReserveRequest) (*model.Booking, error)
	CancelBooking(ctx context.Context, bookingID, userID uint64) (*model.Booking, error)
	ListBookings(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
}

// BookingHandler serves /booking.  Every route sits behind JWTAuth.
type BookingHandler struct {
	svc BookingService
}

func NewBookingHandler(svc BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

// maxSeatsPerBooking mirrors the max on bookSeatsReq.SeatIDs.  Every id
// becomes a placeholder in the seat lock query.
const maxSeatsPerBooking = 100

type bookSeatsReq struct {
	EventID uint64   `json:"eventId" validate:"required"`
	SeatIDs []uint64 `json:"seatIds" validate:"required,min=1,max=100"`
}

type cancelReq struct {
	BookingID uint64 `json:"bookingId" validate:"required"`
}

// BookSeats handles POST /booking/book-seats.
func (h *BookingHandler) BookSeats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req bookSeatsReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx := c.Request().Context()
	b, err := h.svc.ReserveSeats(ctx, booking.ReserveRequest{
		SeatMapID: req.EventID,
		SeatIDs:   req.SeatIDs,
		UserID:    userID,
	})
	if err != nil {
		return respondError(c, err)
	}
	logging.Ctx(ctx).Info().Uint64("booking_id", b.ID).Uint64("user_id", userID).
		Int("seats", len(b.Seats)).Msg("seats booked")
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Seats booked successfully",
		"booking": b,
	})
}

// GetBookings handles GET /booking/, newest first.
func (h *BookingHandler) GetBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	list, err := h.svc.ListBookings(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	if list == nil {
		list = []model.BookingDetail{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "bookings": list})
}

// CancelBooking handles POST /booking/cancel-booking.  Every attempt gets
// an explicit success or failure body.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req cancelReq
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx := c.Request().Context()
	b, err := h.svc.CancelBooking(ctx, req.BookingID, userID)
	if err != nil {
		return respondError(c, err)
	}
	logging.Ctx(ctx).Info().Uint64("booking_id", b.ID).Uint64("user_id", userID).Msg("booking cancelled")
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Booking cancelled successfully",
		"booking": b,
	})
}
