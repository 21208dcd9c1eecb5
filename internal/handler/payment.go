package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sportshub-ticketing/internal/logging"
	"github.com/iliyamo/sportshub-ticketing/internal/model"
	"github.com/iliyamo/sportshub-ticketing/internal/payment"
	"github.com/iliyamo/sportshub-ticketing/internal/repository"
	"github.com/iliyamo/sportshub-ticketing/internal/validation"
)

// PaymentProcessor settles card payments.
type PaymentProcessor interface {
	Process(ctx context.Context, userID uint64, r payment.Request) (*model.Payment, error)
}

// BookingLookup loads a booking for the payment ownership check.
// repository.BookingRepo satisfies it.
type BookingLookup interface {
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
}

type PaymentHandler struct {
	Processor PaymentProcessor
	Bookings  BookingLookup
}

type processPaymentReq struct {
	BookingID   *uint64 `json:"booking_id"`
	AmountCents int64   `json:"amount_cents" validate:"gt=0"`
	CardNumber  string  `json:"card_number" validate:"required"`
	CardName    string  `json:"card_name" validate:"required,max=100"`
	ExpiryDate  string  `json:"expiry_date" validate:"required,mmyy"`
	CVV         string  `json:"cvv" validate:"required,numeric,min=3,max=4"`
}

type paymentResp struct {
	ID          string    `json:"id"`
	BookingID   *uint64   `json:"booking_id,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	CardNumber  string    `json:"card_number"`
	CardName    string    `json:"card_name"`
	ExpiryDate  string    `json:"expiry_date"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Process handles POST /payments/process.  Failures are answered with
// {success:false, error}.
func (h *PaymentHandler) Process(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req processPaymentReq
	if err := c.Bind(&req); err != nil {
		return paymentError(c, http.StatusBadRequest, "invalid request body")
	}
	if err := validation.Struct(&req); err != nil {
		return paymentError(c, http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	if req.BookingID != nil {
		if status, msg := h.checkBooking(ctx, *req.BookingID, userID); status != 0 {
			return paymentError(c, status, msg)
		}
	}
	p, err := h.Processor.Process(ctx, userID, payment.Request{
		BookingID:   req.BookingID,
		AmountCents: req.AmountCents,
		CardNumber:  req.CardNumber,
		CardName:    req.CardName,
		ExpiryDate:  req.ExpiryDate,
		CVV:         req.CVV,
	})
	var invalid *payment.InvalidError
	switch {
	case errors.As(err, &invalid):
		return paymentError(c, http.StatusBadRequest, invalid.Reason)
	case errors.Is(err, payment.ErrDeclined):
		return paymentError(c, http.StatusPaymentRequired, err.Error())
	case err != nil:
		logging.Ctx(ctx).Error().Err(err).Msg("payment failed")
		return paymentError(c, http.StatusInternalServerError, "Payment processing error")
	}

	logging.Ctx(ctx).Info().Str("payment_id", p.ID).Int64("amount_cents", p.AmountCents).Msg("payment completed")
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": paymentResp{
			ID:          p.ID,
			BookingID:   p.BookingID,
			AmountCents: p.AmountCents,
			CardNumber:  p.MaskedCard(),
			CardName:    p.CardName,
			ExpiryDate:  p.ExpiryDate,
			Status:      p.Status,
			CreatedAt:   p.CreatedAt,
		},
	})
}

// checkBooking returns a non-zero status when the caller may not pay for
// the booking: it must exist, be theirs and still be booked.
func (h *PaymentHandler) checkBooking(ctx context.Context, bookingID, userID uint64) (int, string) {
	b, err := h.Bookings.GetByID(ctx, bookingID)
	switch {
	case errors.Is(err, repository.ErrBookingNotFound):
		return http.StatusNotFound, "Booking not found"
	case err != nil:
		logging.Ctx(ctx).Error().Err(err).Uint64("booking_id", bookingID).Msg("booking lookup failed")
		return http.StatusInternalServerError, "Payment processing error"
	case b.UserID != userID:
		return http.StatusForbidden, "You can only pay for your own bookings"
	case !b.Active():
		return http.StatusConflict, "Booking is not active"
	}
	return 0, ""
}

func paymentError(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "error": msg})
}
