package handler // HTTP handlers for the echo router

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sportshub-ticketing/internal/booking"
	"github.com/iliyamo/sportshub-ticketing/internal/logging"
	"github.com/iliyamo/sportshub-ticketing/internal/validation"
)

// statusFor maps an error kind onto the HTTP status the web client expects.
// Unavailable seats are a 400, not a 409; the client branches on 400.
func statusFor(k booking.Kind) int {
	switch k {
	case booking.KindValidation, booking.KindSeatUnavailable:
		return http.StatusBadRequest
	case booking.KindUnauthorized:
		return http.StatusUnauthorized
	case booking.KindForbidden:
		return http.StatusForbidden
	case booking.KindNotFound:
		return http.StatusNotFound
	case booking.KindInvalidState:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes {success:false, message, kind}.  Internal failures
// are logged with their cause and answered with a generic message.
func respondError(c echo.Context, err error) error {
	var re *validation.RequestError
	if errors.As(err, &re) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": re.Error(),
			"kind":    booking.KindValidation,
			"errors":  re.Fields,
		})
	}

	kind := booking.KindOf(err)
	msg := "Internal server error"
	var be *booking.Error
	if errors.As(err, &be) && kind != booking.KindInternal {
		msg = be.Message
	}
	if kind == booking.KindInternal {
		logging.Ctx(c.Request().Context()).Error().Err(err).
			Str("route", c.Path()).Msg("request failed")
	}
	body := echo.Map{"success": false, "message": msg, "kind": kind}
	if be != nil && len(be.SeatIDs) > 0 {
		body["seatIds"] = be.SeatIDs
	}
	return c.JSON(statusFor(kind), body)
}

func badRequest(msg string) error {
	return &booking.Error{Kind: booking.KindValidation, Message: msg}
}

func notFound(msg string) error {
	return &booking.Error{Kind: booking.KindNotFound, Message: msg}
}

func conflict(msg string) error {
	return &booking.Error{Kind: booking.KindInvalidState, Message: msg}
}

func unauthorized(msg string) error {
	return &booking.Error{Kind: booking.KindUnauthorized, Message: msg}
}
